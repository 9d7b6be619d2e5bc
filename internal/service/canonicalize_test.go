package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/minkyo/topiko/internal/domain"
)

func newCanonicalizeFixture(threshold float64) (*CanonicalizeService, *fakeStore, *fakeEmbedder) {
	store := newFakeStore()
	embedder := newFakeEmbedder()
	matcher := NewMatcher(store, nil, threshold)
	svc := NewCanonicalizeService(store, embedder, matcher, nil, quietLogger())
	return svc, store, embedder
}

func TestStandardize_ValidationErrors(t *testing.T) {
	svc, _, _ := newCanonicalizeFixture(0.85)
	ctx := context.Background()

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"empty input", "", domain.ErrEmptyInput},
		{"whitespace only", "   ", domain.ErrEmptyInput},
		{"single word with no exact match", "golang", domain.ErrAmbiguousSingleWord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Standardize(ctx, tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !domain.IsValidation(err) {
				t.Errorf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestStandardize_RegistersNewTopic(t *testing.T) {
	svc, store, embedder := newCanonicalizeFixture(0.85)
	embedder.vectors["machine learning"] = domain.Vector{1, 0, 0}

	result, err := svc.Standardize(context.Background(), "  Machine   Learning ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.WasNew {
		t.Error("expected a new registration")
	}
	if result.CanonicalName != "machine learning" {
		t.Errorf("expected normalized canonical name, got %q", result.CanonicalName)
	}

	stored, err := store.FindByName(context.Background(), "machine learning")
	if err != nil {
		t.Fatalf("registered topic not persisted: %v", err)
	}
	if !stored.Embedding.Equal(domain.Vector{1, 0, 0}) {
		t.Errorf("stored embedding mismatch: %v", stored.Embedding)
	}
}

func TestStandardize_ExactMatchSkipsEmbedding(t *testing.T) {
	svc, store, embedder := newCanonicalizeFixture(0.85)
	id := store.seed("machine learning", domain.Vector{1, 0, 0})

	result, err := svc.Standardize(context.Background(), "MACHINE learning")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WasNew {
		t.Error("exact match must not register a new topic")
	}
	if result.CanonicalID != id {
		t.Errorf("expected canonical ID %d, got %d", id, result.CanonicalID)
	}
	if embedder.callCount() != 0 {
		t.Errorf("exact match must not call the embedder, got %d calls", embedder.callCount())
	}
}

func TestStandardize_SingleWordExactMatchResolves(t *testing.T) {
	svc, store, _ := newCanonicalizeFixture(0.85)
	id := store.seed("golang", domain.Vector{1, 0, 0})

	// A single word that already exists resolves via the exact shortcut;
	// only the registration of new single words is refused.
	result, err := svc.Standardize(context.Background(), "Golang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CanonicalID != id || result.WasNew {
		t.Errorf("expected resolution to existing single-word topic, got %+v", result)
	}
}

func TestStandardize_VectorMatchReusesExisting(t *testing.T) {
	svc, store, embedder := newCanonicalizeFixture(0.85)
	id := store.seed("machine learning", domain.Vector{1, 0, 0})
	embedder.vectors["ml algorithms"] = domain.Vector{1, 0.05, 0}

	result, err := svc.Standardize(context.Background(), "ML Algorithms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WasNew {
		t.Error("expected vector match, not a new registration")
	}
	if result.CanonicalID != id {
		t.Errorf("expected canonical ID %d, got %d", id, result.CanonicalID)
	}

	if count, _ := store.Count(context.Background()); count != 1 {
		t.Errorf("expected dictionary size 1, got %d", count)
	}
}

func TestStandardize_TruncationFlagSurvivesEveryPath(t *testing.T) {
	svc, store, embedder := newCanonicalizeFixture(0.85)
	embedder.vectors["deep neural"] = domain.Vector{0, 1, 0}

	// New registration path.
	result, err := svc.Standardize(context.Background(), "deep neural networks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.WasTruncated || result.CanonicalName != "deep neural" {
		t.Fatalf("expected truncated registration of %q, got %+v", "deep neural", result)
	}

	// Exact-match path with a fresh truncation.
	result, err = svc.Standardize(context.Background(), "deep neural architecture search")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WasNew || !result.WasTruncated {
		t.Errorf("expected truncated exact match, got %+v", result)
	}

	if count, _ := store.Count(context.Background()); count != 1 {
		t.Errorf("expected one stored topic, got %d", count)
	}
}

func TestStandardize_Idempotent(t *testing.T) {
	svc, _, embedder := newCanonicalizeFixture(0.85)
	embedder.vectors["machine learning"] = domain.Vector{1, 0, 0}

	first, err := svc.Standardize(context.Background(), "machine learning")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Standardize(context.Background(), "machine learning")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !first.WasNew || second.WasNew {
		t.Errorf("expected first=new second=existing, got %v / %v", first.WasNew, second.WasNew)
	}
	if first.CanonicalID != second.CanonicalID {
		t.Errorf("repeated calls must return the same ID: %d vs %d", first.CanonicalID, second.CanonicalID)
	}
}

func TestStandardize_DuplicateInsertConverges(t *testing.T) {
	svc, store, embedder := newCanonicalizeFixture(0.85)
	embedder.vectors["machine learning"] = domain.Vector{1, 0, 0}

	// Concurrent requests for the same phrase race on the insert; every
	// caller must end up with the same canonical ID and exactly one row
	// must exist afterwards.
	const workers = 8
	results := make([]*domain.StandardizeResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Standardize(context.Background(), "machine learning")
		}(i)
	}
	wg.Wait()

	var canonicalID uint
	newCount := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if canonicalID == 0 {
			canonicalID = results[i].CanonicalID
		}
		if results[i].CanonicalID != canonicalID {
			t.Errorf("worker %d got ID %d, expected %d", i, results[i].CanonicalID, canonicalID)
		}
		if results[i].WasNew {
			newCount++
		}
	}
	if newCount > 1 {
		t.Errorf("at most one caller may observe WasNew, got %d", newCount)
	}
	if count, _ := store.Count(context.Background()); count != 1 {
		t.Errorf("expected exactly one row after the race, got %d", count)
	}
}

func TestStandardize_EmbeddingFailurePropagates(t *testing.T) {
	svc, store, embedder := newCanonicalizeFixture(0.85)
	embedder.errs["machine learning"] = domain.ErrServiceUnavailable

	_, err := svc.Standardize(context.Background(), "machine learning")
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected embedding failure to surface, got %v", err)
	}
	if count, _ := store.Count(context.Background()); count != 0 {
		t.Error("no topic may be registered when embedding fails")
	}
}

func TestStandardize_IndexUpsertOnRegistration(t *testing.T) {
	store := newFakeStore()
	embedder := newFakeEmbedder()
	index := newFakeIndex()
	matcher := NewMatcher(store, nil, 0.85)
	svc := NewCanonicalizeService(store, embedder, matcher, index, quietLogger())

	result, err := svc.Standardize(context.Background(), "graph databases")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name, ok := index.upserts[result.CanonicalID]; !ok || name != "graph databases" {
		t.Errorf("expected index upsert for new topic, got %v", index.upserts)
	}
}
