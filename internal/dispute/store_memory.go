package dispute

import (
	"context"
	"sort"
	"sync"

	id "shamba/pkg/domain"
	"shamba/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	disputes map[id.DisputeID]Dispute
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{disputes: make(map[id.DisputeID]Dispute)}
}

func (s *InMemoryStore) Create(_ context.Context, d *Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.disputes[d.ID]; ok {
		return sentinel.ErrConflict
	}
	s.disputes[d.ID] = cloneDispute(*d)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, disputeID id.DisputeID) (*Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.disputes[disputeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneDispute(d)
	return &out, nil
}

func (s *InMemoryStore) Update(_ context.Context, d *Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.disputes[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	next := cloneDispute(*d)
	next.Evidence = stored.Evidence
	s.disputes[d.ID] = next
	return nil
}

func (s *InMemoryStore) ListByClaim(_ context.Context, claimID id.ClaimID) ([]Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Dispute
	for _, d := range s.disputes {
		if d.ClaimID == claimID {
			out = append(out, cloneDispute(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FiledAt.Before(out[j].FiledAt)
	})
	return out, nil
}

func (s *InMemoryStore) AppendEvidence(_ context.Context, ev Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.disputes[ev.DisputeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	d.Evidence = append(d.Evidence, ev)
	s.disputes[ev.DisputeID] = d
	return nil
}

func cloneDispute(d Dispute) Dispute {
	out := d
	out.Parties = append([]Party(nil), d.Parties...)
	out.Evidence = append([]Evidence(nil), d.Evidence...)
	if d.Resolution != nil {
		res := *d.Resolution
		out.Resolution = &res
	}
	return out
}
