package artifact

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore keeps uploaded content in memory. Used by unit tests and local
// development without a blob service.
type InMemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailNext makes the next Store call fail with the given error, letting
	// tests exercise the dependency-failure path.
	FailNext error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{objects: make(map[string][]byte)}
}

func (s *InMemoryStore) Store(_ context.Context, upload Upload) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext != nil {
		err := s.FailNext
		s.FailNext = nil
		return Ref{}, err
	}
	url := "mem://" + uuid.NewString()
	s.objects[url] = upload.Content
	return Ref{URL: url, Size: int64(len(upload.Content)), Mime: upload.Mime}, nil
}

// Len reports how many objects have been stored.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
