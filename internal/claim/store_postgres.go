package claim

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"shamba/internal/geo"
	id "shamba/pkg/domain"
	"shamba/pkg/platform/sentinel"
	txcontext "shamba/pkg/platform/tx"
)

// PostgresStore persists claims. The boundary polygon is stored as JSONB;
// distance math happens in the geo package, not in SQL.
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

const claimColumns = `
	id, owner_id, jurisdiction, lat, lon, boundary, plot_area_hectares,
	status, validation_status, witness_count,
	endorsed_by_leader, rejected, dispute_open, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, c *Claim) error {
	boundary, err := marshalBoundary(c.Boundary)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO claims (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.runner(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		uuid.UUID(c.OwnerID),
		c.Jurisdiction,
		c.Location.Lat,
		c.Location.Lon,
		boundary,
		c.PlotAreaHectares,
		string(c.Status),
		string(c.ValidationStatus),
		c.WitnessCount,
		c.EndorsedByLeader,
		c.Rejected,
		c.DisputeOpen,
		c.CreatedAt,
		c.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, claimID id.ClaimID) (*Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`
	row := s.runner(ctx).QueryRowContext(ctx, query, uuid.UUID(claimID))
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) Update(ctx context.Context, c *Claim) error {
	query := `
		UPDATE claims SET
			status = $2,
			validation_status = $3,
			witness_count = $4,
			endorsed_by_leader = $5,
			rejected = $6,
			dispute_open = $7,
			updated_at = $8
		WHERE id = $1
	`
	res, err := s.runner(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		string(c.Status),
		string(c.ValidationStatus),
		c.WitnessCount,
		c.EndorsedByLeader,
		c.Rejected,
		c.DisputeOpen,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update claim rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims ORDER BY created_at`
	rows, err := s.runner(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (s *PostgresStore) AppendEndorsement(ctx context.Context, rec EndorsementRecord) error {
	query := `
		INSERT INTO claim_endorsements (claim_id, leader_id, comment, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.runner(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.ClaimID), uuid.UUID(rec.LeaderID), rec.Comment, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert endorsement: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEndorsements(ctx context.Context, claimID id.ClaimID) ([]EndorsementRecord, error) {
	query := `
		SELECT claim_id, leader_id, comment, created_at
		FROM claim_endorsements
		WHERE claim_id = $1
		ORDER BY created_at
	`
	rows, err := s.runner(ctx).QueryContext(ctx, query, uuid.UUID(claimID))
	if err != nil {
		return nil, fmt.Errorf("list endorsements: %w", err)
	}
	defer rows.Close()

	var recs []EndorsementRecord
	for rows.Next() {
		var rec EndorsementRecord
		var claimUUID, leaderUUID uuid.UUID
		if err := rows.Scan(&claimUUID, &leaderUUID, &rec.Comment, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan endorsement: %w", err)
		}
		rec.ClaimID = id.ClaimID(claimUUID)
		rec.LeaderID = id.UserID(leaderUUID)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (Claim, error) {
	var c Claim
	var claimUUID, ownerUUID uuid.UUID
	var status, validationStatus string
	var boundary []byte
	err := row.Scan(
		&claimUUID, &ownerUUID, &c.Jurisdiction,
		&c.Location.Lat, &c.Location.Lon, &boundary, &c.PlotAreaHectares,
		&status, &validationStatus, &c.WitnessCount,
		&c.EndorsedByLeader, &c.Rejected, &c.DisputeOpen, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Claim{}, err
		}
		return Claim{}, fmt.Errorf("scan claim: %w", err)
	}
	c.ID = id.ClaimID(claimUUID)
	c.OwnerID = id.UserID(ownerUUID)
	c.Status = Status(status)
	c.ValidationStatus = ValidationStatus(validationStatus)
	if len(boundary) > 0 {
		if err := json.Unmarshal(boundary, &c.Boundary); err != nil {
			return Claim{}, fmt.Errorf("decode boundary: %w", err)
		}
	}
	return c, nil
}

func marshalBoundary(boundary []geo.Point) ([]byte, error) {
	if len(boundary) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(boundary)
	if err != nil {
		return nil, fmt.Errorf("encode boundary: %w", err)
	}
	return b, nil
}
