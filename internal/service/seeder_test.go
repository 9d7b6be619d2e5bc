package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/minkyo/topiko/internal/domain"
)

func newSeederFixture() (*Seeder, *fakeStore, *fakeEmbedder) {
	store := newFakeStore()
	embedder := newFakeEmbedder()
	seeder := NewSeeder(store, embedder, nil, nil, quietLogger(), &SeederConfig{
		BatchSize:  5,
		PauseDelay: 0,
	})
	return seeder, store, embedder
}

func TestSeeder_DeduplicatesAndSkipsInvalid(t *testing.T) {
	seeder, store, _ := newSeederFixture()

	// One survivor each for "machine learning" and "deep neural"; the rest
	// are normalization duplicates, a single word, and an empty line.
	phrases := []string{
		"machine learning",
		"Machine   Learning",
		"machine learning",
		"golang",
		"   ",
		"deep neural networks",
	}

	stats, err := seeder.SeedPhrases(context.Background(), phrases)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Total != len(phrases) {
		t.Errorf("expected total %d, got %d", len(phrases), stats.Total)
	}
	if stats.Created != 2 {
		t.Errorf("expected 2 created, got %d", stats.Created)
	}
	if stats.Skipped != 4 {
		t.Errorf("expected 4 skipped, got %d", stats.Skipped)
	}
	if stats.Failed != 0 {
		t.Errorf("expected 0 failed, got %d", stats.Failed)
	}

	if _, err := store.FindByName(context.Background(), "deep neural"); err != nil {
		t.Errorf("expected truncated phrase to be seeded: %v", err)
	}
}

func TestSeeder_RerunSkipsExisting(t *testing.T) {
	seeder, _, _ := newSeederFixture()
	phrases := []string{"machine learning", "graph databases"}

	first, err := seeder.SeedPhrases(context.Background(), phrases)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Created != 2 {
		t.Fatalf("expected 2 created on first run, got %d", first.Created)
	}

	second, err := seeder.SeedPhrases(context.Background(), phrases)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Created != 0 || second.Skipped != 2 {
		t.Errorf("re-run should skip everything, got created=%d skipped=%d", second.Created, second.Skipped)
	}
}

func TestSeeder_PartialFailureContinues(t *testing.T) {
	seeder, store, embedder := newSeederFixture()
	embedder.errs["bad phrase"] = domain.ErrServiceUnavailable

	var phrases []string
	for i := 0; i < 10; i++ {
		phrases = append(phrases, fmt.Sprintf("topic number%d", i))
	}
	phrases = append(phrases, "bad phrase")

	stats, err := seeder.SeedPhrases(context.Background(), phrases)
	if err != nil {
		t.Fatalf("transient failures must not halt the run: %v", err)
	}
	if stats.Created != 10 {
		t.Errorf("expected 10 created, got %d", stats.Created)
	}
	if stats.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", stats.Failed)
	}
	if count, _ := store.Count(context.Background()); count != 10 {
		t.Errorf("expected 10 rows, got %d", count)
	}
}

func TestSeeder_HaltsOnInvalidResponse(t *testing.T) {
	seeder, _, embedder := newSeederFixture()
	// Candidates are processed in sorted order; "aaa broken" sorts first.
	embedder.errs["aaa broken"] = domain.ErrInvalidResponse

	phrases := []string{"zzz fine", "aaa broken", "mmm fine"}
	stats, err := seeder.SeedPhrases(context.Background(), phrases)
	if !errors.Is(err, domain.ErrInvalidResponse) {
		t.Fatalf("expected run to halt with ErrInvalidResponse, got %v", err)
	}
	if stats.Created != 0 {
		t.Errorf("halt on first candidate should create nothing, got %d", stats.Created)
	}
}

func TestSeeder_CancellationStopsBetweenBatches(t *testing.T) {
	store := newFakeStore()
	embedder := newFakeEmbedder()
	seeder := NewSeeder(store, embedder, nil, nil, quietLogger(), &SeederConfig{
		BatchSize:  2,
		PauseDelay: 0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	phrases := []string{"aa one", "bb two", "cc three", "dd four"}
	stats, err := seeder.SeedPhrases(ctx, phrases)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// The first batch completes before the pause observes cancellation.
	if stats.Created != 2 {
		t.Errorf("expected 2 created before cancellation, got %d", stats.Created)
	}
}
