package trust

import (
	"context"

	id "shamba/pkg/domain"
)

// Store persists validator profiles. Save upserts the whole profile; the
// service owns all mutation rules.
type Store interface {
	Get(ctx context.Context, validatorID id.ValidatorID) (Profile, error)
	Save(ctx context.Context, profile Profile) error
	List(ctx context.Context) ([]Profile, error)
}
