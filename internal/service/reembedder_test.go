package service

import (
	"context"
	"errors"
	"testing"

	"github.com/minkyo/topiko/internal/domain"
)

func newReembedFixture(pageLimit int) (*Reembedder, *fakeStore, *fakeEmbedder) {
	store := newFakeStore()
	embedder := newFakeEmbedder()
	reembedder := NewReembedder(store, embedder, nil, quietLogger(), &ReembedderConfig{
		PageLimit:  pageLimit,
		PauseDelay: 0,
	})
	return reembedder, store, embedder
}

func TestReembedPage_UpdatesVectors(t *testing.T) {
	reembedder, store, embedder := newReembedFixture(10)
	id := store.seed("machine learning", domain.Vector{0, 0, 1})
	embedder.vectors["machine learning"] = domain.Vector{1, 0, 0}

	stats, err := reembedder.ReembedPage(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 1 || stats.Updated != 1 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.NextOffset != nil {
		t.Errorf("short page must not report a next offset, got %d", *stats.NextOffset)
	}

	topic, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !topic.Embedding.Equal(domain.Vector{1, 0, 0}) {
		t.Errorf("vector not overwritten: %v", topic.Embedding)
	}
}

func TestReembedPage_ReportsNextOffset(t *testing.T) {
	reembedder, store, _ := newReembedFixture(2)
	store.seed("aa one", domain.Vector{1, 0, 0})
	store.seed("bb two", domain.Vector{1, 0, 0})
	store.seed("cc three", domain.Vector{1, 0, 0})

	stats, err := reembedder.ReembedPage(context.Background(), 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.NextOffset == nil || *stats.NextOffset != 2 {
		t.Fatalf("expected next offset 2, got %+v", stats.NextOffset)
	}

	stats, err = reembedder.ReembedPage(context.Background(), *stats.NextOffset, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 1 || stats.NextOffset != nil {
		t.Errorf("expected final short page, got %+v", stats)
	}
}

func TestReembedPage_CountsFailuresAndContinues(t *testing.T) {
	reembedder, store, embedder := newReembedFixture(10)
	store.seed("aa one", domain.Vector{1, 0, 0})
	store.seed("bb two", domain.Vector{1, 0, 0})
	embedder.errs["aa one"] = domain.ErrServiceUnavailable

	stats, err := reembedder.ReembedPage(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("transient failure must not halt the page: %v", err)
	}
	if stats.Processed != 2 || stats.Updated != 1 || stats.Failed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestReembedPage_HaltsOnInvalidResponse(t *testing.T) {
	reembedder, store, embedder := newReembedFixture(10)
	store.seed("aa one", domain.Vector{1, 0, 0})
	store.seed("bb two", domain.Vector{1, 0, 0})
	embedder.errs["aa one"] = domain.ErrInvalidResponse

	stats, err := reembedder.ReembedPage(context.Background(), 0, 10)
	if !errors.Is(err, domain.ErrInvalidResponse) {
		t.Fatalf("expected halt with ErrInvalidResponse, got %v", err)
	}
	if stats.Updated != 0 {
		t.Errorf("no updates expected after halt on first row, got %d", stats.Updated)
	}
}

func TestReembedAll_PagesThroughEverything(t *testing.T) {
	reembedder, store, _ := newReembedFixture(2)
	for _, name := range []string{"aa one", "bb two", "cc three", "dd four", "ee five"} {
		store.seed(name, domain.Vector{0, 1, 0})
	}

	stats, err := reembedder.ReembedAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 5 || stats.Updated != 5 {
		t.Errorf("expected all 5 rows processed, got %+v", stats)
	}

	topics, _ := store.ListAll(context.Background())
	for _, topic := range topics {
		if !topic.Embedding.Equal(domain.Vector{1, 0, 0}) {
			t.Errorf("topic %q not re-embedded: %v", topic.DisplayName, topic.Embedding)
		}
	}
}

func TestReembedAll_RestartIsIdempotent(t *testing.T) {
	reembedder, store, _ := newReembedFixture(2)
	store.seed("aa one", domain.Vector{0, 1, 0})
	store.seed("bb two", domain.Vector{0, 1, 0})

	if _, err := reembedder.ReembedAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A second full run only overwrites with identical values.
	stats, err := reembedder.ReembedAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Updated != 2 || stats.Failed != 0 {
		t.Errorf("restart should update cleanly, got %+v", stats)
	}
}
