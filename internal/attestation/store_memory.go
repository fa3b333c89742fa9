package attestation

import (
	"context"
	"sort"
	"sync"

	id "shamba/pkg/domain"
	"shamba/pkg/platform/sentinel"
)

// InMemoryStore is the default wiring and the unit-test double. The map is
// keyed claim -> validator -> row, so the one-vote-per-validator invariant is
// structural, not enforced by lookups.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[id.ClaimID]map[id.ValidatorID]Attestation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[id.ClaimID]map[id.ValidatorID]Attestation)}
}

func (s *InMemoryStore) Upsert(_ context.Context, att Attestation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claimRows := s.rows[att.ClaimID]
	if claimRows == nil {
		claimRows = make(map[id.ValidatorID]Attestation)
		s.rows[att.ClaimID] = claimRows
	}
	prior, replaced := claimRows[att.ValidatorID]
	if replaced {
		att.CreatedAt = prior.CreatedAt
	}
	claimRows[att.ValidatorID] = att
	return replaced, nil
}

func (s *InMemoryStore) ListByClaim(_ context.Context, claimID id.ClaimID) ([]Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]Attestation, 0, len(s.rows[claimID]))
	for _, att := range s.rows[claimID] {
		rows = append(rows, att)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
	})
	return rows, nil
}

func (s *InMemoryStore) Get(_ context.Context, claimID id.ClaimID, validatorID id.ValidatorID) (Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	att, ok := s.rows[claimID][validatorID]
	if !ok {
		return Attestation{}, sentinel.ErrNotFound
	}
	return att, nil
}
