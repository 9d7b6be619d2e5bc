package service

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/minkyo/topiko/internal/domain"
	"github.com/minkyo/topiko/internal/logger"
	"github.com/minkyo/topiko/internal/repository"
)

func quietLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Output: io.Discard})
}

// fakeStore is an in-memory TopicStore with the same ordering and uniqueness
// semantics as the real repository.
type fakeStore struct {
	mu     sync.Mutex
	topics []domain.CanonicalTopic
	nextID uint

	insertErr error
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1}
}

func (s *fakeStore) Insert(ctx context.Context, topic *domain.CanonicalTopic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, existing := range s.topics {
		if existing.DisplayName == topic.DisplayName {
			return domain.ErrDuplicateName
		}
	}
	topic.ID = s.nextID
	s.nextID++
	s.topics = append(s.topics, *topic)
	return nil
}

func (s *fakeStore) FindByName(ctx context.Context, name string) (*domain.CanonicalTopic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.topics {
		if s.topics[i].DisplayName == name {
			topic := s.topics[i]
			return &topic, nil
		}
	}
	return nil, domain.ErrTopicNotFound
}

func (s *fakeStore) GetByID(ctx context.Context, id uint) (*domain.CanonicalTopic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.topics {
		if s.topics[i].ID == id {
			topic := s.topics[i]
			return &topic, nil
		}
	}
	return nil, domain.ErrTopicNotFound
}

func (s *fakeStore) ListAll(ctx context.Context) ([]domain.CanonicalTopic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.CanonicalTopic, len(s.topics))
	copy(out, s.topics)
	return out, nil
}

func (s *fakeStore) ListPage(ctx context.Context, offset, limit int) ([]domain.CanonicalTopic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset >= len(s.topics) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.topics) {
		end = len(s.topics)
	}
	out := make([]domain.CanonicalTopic, end-offset)
	copy(out, s.topics[offset:end])
	return out, nil
}

func (s *fakeStore) SearchByName(ctx context.Context, substring string, limit int) ([]domain.CanonicalTopic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CanonicalTopic
	for _, topic := range s.topics {
		if strings.Contains(topic.DisplayName, substring) {
			out = append(out, topic)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateVector(ctx context.Context, id uint, vector domain.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.topics {
		if s.topics[i].ID == id {
			s.topics[i].Embedding = vector
			return nil
		}
	}
	return domain.ErrTopicNotFound
}

func (s *fakeStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.topics {
		if s.topics[i].ID == id {
			s.topics = append(s.topics[:i], s.topics[i+1:]...)
			return nil
		}
	}
	return domain.ErrTopicNotFound
}

func (s *fakeStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.topics)), nil
}

// seed inserts a topic directly, bypassing uniqueness errors in test setup.
func (s *fakeStore) seed(name string, vector domain.Vector) uint {
	topic := &domain.CanonicalTopic{DisplayName: name, Embedding: vector}
	if err := s.Insert(context.Background(), topic); err != nil {
		panic(err)
	}
	return topic.ID
}

// fakeEmbedder returns canned vectors per input text. Texts without a canned
// vector get a fixed default so bulk tests don't need one entry per phrase.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string]domain.Vector
	errs    map[string]error
	calls   int
	dims    int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors: make(map[string]domain.Vector),
		errs:    make(map[string]error),
		dims:    3,
	}
}

func (e *fakeEmbedder) Embed(ctx context.Context, text, title string) (domain.Vector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if err, ok := e.errs[text]; ok {
		return nil, err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return domain.Vector{1, 0, 0}, nil
}

func (e *fakeEmbedder) Dimensions() int {
	return e.dims
}

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeIndex records upserts and serves canned nearest-neighbor hits.
type fakeIndex struct {
	mu       sync.Mutex
	upserts  map[uint]string
	hits     []repository.IndexHit
	searches int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{upserts: make(map[uint]string)}
}

func (f *fakeIndex) Upsert(ctx context.Context, topicID uint, displayName string, vector []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts[topicID] = displayName
	return nil
}

func (f *fakeIndex) SearchNearest(ctx context.Context, vector []float32, topK int) ([]repository.IndexHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) Delete(ctx context.Context, topicID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.upserts, topicID)
	return nil
}
