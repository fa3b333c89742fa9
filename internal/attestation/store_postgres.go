package attestation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shamba/internal/geo"
	id "shamba/pkg/domain"
	"shamba/pkg/platform/sentinel"
	txcontext "shamba/pkg/platform/tx"
)

// PostgresStore persists attestations with the unique (claim_id, validator_id)
// key enforced by the table itself; the upsert rides ON CONFLICT so the
// replace is atomic in the database, not in application code.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) runner(ctx context.Context) dbRunner {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Upsert(ctx context.Context, att Attestation) (bool, error) {
	query := `
		INSERT INTO attestations (
			claim_id, validator_id, action, comment, distance_km, tier, weight, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (claim_id, validator_id) DO UPDATE SET
			action = EXCLUDED.action,
			comment = EXCLUDED.comment,
			distance_km = EXCLUDED.distance_km,
			tier = EXCLUDED.tier,
			weight = EXCLUDED.weight,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax <> 0) AS replaced
	`
	var replaced bool
	err := s.runner(ctx).QueryRowContext(ctx, query,
		uuid.UUID(att.ClaimID),
		uuid.UUID(att.ValidatorID),
		string(att.Action),
		att.Comment,
		att.DistanceKm,
		string(att.Tier),
		att.Weight,
		att.UpdatedAt,
	).Scan(&replaced)
	if err != nil {
		return false, fmt.Errorf("upsert attestation: %w", err)
	}
	return replaced, nil
}

func (s *PostgresStore) ListByClaim(ctx context.Context, claimID id.ClaimID) ([]Attestation, error) {
	query := `
		SELECT claim_id, validator_id, action, comment, distance_km, tier, weight, created_at, updated_at
		FROM attestations
		WHERE claim_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := s.runner(ctx).QueryContext(ctx, query, uuid.UUID(claimID))
	if err != nil {
		return nil, fmt.Errorf("list attestations: %w", err)
	}
	defer rows.Close()

	var atts []Attestation
	for rows.Next() {
		att, err := scanAttestation(rows)
		if err != nil {
			return nil, err
		}
		atts = append(atts, att)
	}
	return atts, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, claimID id.ClaimID, validatorID id.ValidatorID) (Attestation, error) {
	query := `
		SELECT claim_id, validator_id, action, comment, distance_km, tier, weight, created_at, updated_at
		FROM attestations
		WHERE claim_id = $1 AND validator_id = $2
	`
	row := s.runner(ctx).QueryRowContext(ctx, query, uuid.UUID(claimID), uuid.UUID(validatorID))
	att, err := scanAttestation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attestation{}, sentinel.ErrNotFound
	}
	return att, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttestation(row rowScanner) (Attestation, error) {
	var att Attestation
	var claimID, validatorID uuid.UUID
	var action, tier string
	err := row.Scan(
		&claimID, &validatorID, &action, &att.Comment,
		&att.DistanceKm, &tier, &att.Weight, &att.CreatedAt, &att.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attestation{}, err
		}
		return Attestation{}, fmt.Errorf("scan attestation: %w", err)
	}
	att.ClaimID = id.ClaimID(claimID)
	att.ValidatorID = id.ValidatorID(validatorID)
	att.Action = Action(action)
	att.Tier = geo.Tier(tier)
	return att, nil
}
