package claim

import (
	"context"
	"sort"
	"sync"

	id "shamba/pkg/domain"
	"shamba/pkg/platform/sentinel"
)

// InMemoryStore is the default wiring and the unit-test double.
type InMemoryStore struct {
	mu           sync.RWMutex
	claims       map[id.ClaimID]Claim
	endorsements map[id.ClaimID][]EndorsementRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		claims:       make(map[id.ClaimID]Claim),
		endorsements: make(map[id.ClaimID][]EndorsementRecord),
	}
}

func (s *InMemoryStore) Create(_ context.Context, c *Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[c.ID]; ok {
		return sentinel.ErrConflict
	}
	s.claims[c.ID] = cloneClaim(*c)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, claimID id.ClaimID) (*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneClaim(c)
	return &out, nil
}

func (s *InMemoryStore) Update(_ context.Context, c *Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.claims[c.ID] = cloneClaim(*c)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Claim, 0, len(s.claims))
	for _, c := range s.claims {
		out = append(out, cloneClaim(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) AppendEndorsement(_ context.Context, rec EndorsementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endorsements[rec.ClaimID] = append(s.endorsements[rec.ClaimID], rec)
	return nil
}

func (s *InMemoryStore) ListEndorsements(_ context.Context, claimID id.ClaimID) ([]EndorsementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.endorsements[claimID]
	out := make([]EndorsementRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// cloneClaim deep-copies the boundary slice so callers cannot mutate stored
// state through the returned value.
func cloneClaim(c Claim) Claim {
	out := c
	if c.Boundary != nil {
		out.Boundary = append(out.Boundary[:0:0], c.Boundary...)
	}
	return out
}
