package dispute

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shamba/internal/claim"
	id "shamba/pkg/domain"
	"shamba/pkg/platform/sentinel"
	txcontext "shamba/pkg/platform/tx"
)

// PostgresStore persists the dispute aggregate across four tables: the
// dispute row, its parties, its evidence log and its resolution. The partial
// unique index on (claim_id) WHERE status IN ('open','investigating') backs
// the one-open-dispute invariant at the database level.
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

func (s *PostgresStore) Create(ctx context.Context, d *Dispute) error {
	r := s.runner(ctx)
	query := `
		INSERT INTO disputes (
			id, claim_id, dispute_type, status, priority, description,
			created_by, filed_at, updated_at, prior_status, prior_validation_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.ExecContext(ctx, query,
		uuid.UUID(d.ID),
		uuid.UUID(d.ClaimID),
		string(d.Type),
		string(d.Status),
		string(d.Priority),
		d.Description,
		uuid.UUID(d.CreatedBy),
		d.FiledAt,
		d.UpdatedAt,
		string(d.PriorStatus),
		string(d.PriorValidationStatus),
	)
	if err != nil {
		return fmt.Errorf("insert dispute: %w", err)
	}
	for _, p := range d.Parties {
		if err := s.insertParty(ctx, d.ID, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) insertParty(ctx context.Context, disputeID id.DisputeID, p Party) error {
	query := `
		INSERT INTO dispute_parties (dispute_id, user_id, role, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dispute_id, user_id) DO NOTHING
	`
	_, err := s.runner(ctx).ExecContext(ctx, query,
		uuid.UUID(disputeID), uuid.UUID(p.UserID), string(p.Role), p.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dispute party: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, disputeID id.DisputeID) (*Dispute, error) {
	query := `
		SELECT id, claim_id, dispute_type, status, priority, description,
		       created_by, assigned_to, filed_at, updated_at,
		       prior_status, prior_validation_status
		FROM disputes
		WHERE id = $1
	`
	row := s.runner(ctx).QueryRowContext(ctx, query, uuid.UUID(disputeID))
	d, err := scanDispute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadChildren(ctx, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) Update(ctx context.Context, d *Dispute) error {
	r := s.runner(ctx)
	query := `
		UPDATE disputes SET
			status = $2,
			priority = $3,
			assigned_to = $4,
			updated_at = $5
		WHERE id = $1
	`
	var assignedTo any
	if !d.AssignedTo.IsNil() {
		assignedTo = uuid.UUID(d.AssignedTo)
	}
	res, err := r.ExecContext(ctx, query,
		uuid.UUID(d.ID), string(d.Status), string(d.Priority), assignedTo, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update dispute: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dispute rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	if d.Resolution != nil {
		if err := s.upsertResolution(ctx, *d.Resolution); err != nil {
			return err
		}
	}
	for _, p := range d.Parties {
		if err := s.insertParty(ctx, d.ID, p); err != nil {
			return err
		}
	}
	return nil
}

// upsertResolution relies on the primary key on dispute_id: a second insert
// for the same dispute fails, keeping the resolution write-once even if two
// resolvers race past the service checks.
func (s *PostgresStore) upsertResolution(ctx context.Context, res Resolution) error {
	query := `
		INSERT INTO dispute_resolutions (dispute_id, decision, summary, notes, resolved_by, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (dispute_id) DO NOTHING
	`
	_, err := s.runner(ctx).ExecContext(ctx, query,
		uuid.UUID(res.DisputeID), string(res.Decision), res.Summary, res.Notes,
		uuid.UUID(res.ResolvedBy), res.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resolution: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByClaim(ctx context.Context, claimID id.ClaimID) ([]Dispute, error) {
	query := `
		SELECT id, claim_id, dispute_type, status, priority, description,
		       created_by, assigned_to, filed_at, updated_at,
		       prior_status, prior_validation_status
		FROM disputes
		WHERE claim_id = $1
		ORDER BY filed_at
	`
	rows, err := s.runner(ctx).QueryContext(ctx, query, uuid.UUID(claimID))
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	defer rows.Close()

	var disputes []Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range disputes {
		if err := s.loadChildren(ctx, &disputes[i]); err != nil {
			return nil, err
		}
	}
	return disputes, nil
}

func (s *PostgresStore) AppendEvidence(ctx context.Context, ev Evidence) error {
	query := `
		INSERT INTO dispute_evidence (dispute_id, submitter_id, evidence_type, description, file_ref, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.runner(ctx).ExecContext(ctx, query,
		uuid.UUID(ev.DisputeID), uuid.UUID(ev.SubmitterID), string(ev.Type),
		ev.Description, ev.FileRef, ev.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadChildren(ctx context.Context, d *Dispute) error {
	if err := s.loadParties(ctx, d); err != nil {
		return err
	}
	if err := s.loadEvidence(ctx, d); err != nil {
		return err
	}
	return s.loadResolution(ctx, d)
}

func (s *PostgresStore) loadParties(ctx context.Context, d *Dispute) error {
	query := `
		SELECT user_id, role, added_at
		FROM dispute_parties
		WHERE dispute_id = $1
		ORDER BY added_at
	`
	rows, err := s.runner(ctx).QueryContext(ctx, query, uuid.UUID(d.ID))
	if err != nil {
		return fmt.Errorf("list parties: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Party
		var userUUID uuid.UUID
		var role string
		if err := rows.Scan(&userUUID, &role, &p.AddedAt); err != nil {
			return fmt.Errorf("scan party: %w", err)
		}
		p.UserID = id.UserID(userUUID)
		p.Role = PartyRole(role)
		d.Parties = append(d.Parties, p)
	}
	return rows.Err()
}

func (s *PostgresStore) loadEvidence(ctx context.Context, d *Dispute) error {
	query := `
		SELECT dispute_id, submitter_id, evidence_type, description, file_ref, submitted_at
		FROM dispute_evidence
		WHERE dispute_id = $1
		ORDER BY submitted_at
	`
	rows, err := s.runner(ctx).QueryContext(ctx, query, uuid.UUID(d.ID))
	if err != nil {
		return fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev Evidence
		var disputeUUID, submitterUUID uuid.UUID
		var evType string
		if err := rows.Scan(&disputeUUID, &submitterUUID, &evType, &ev.Description, &ev.FileRef, &ev.SubmittedAt); err != nil {
			return fmt.Errorf("scan evidence: %w", err)
		}
		ev.DisputeID = id.DisputeID(disputeUUID)
		ev.SubmitterID = id.UserID(submitterUUID)
		ev.Type = EvidenceType(evType)
		d.Evidence = append(d.Evidence, ev)
	}
	return rows.Err()
}

func (s *PostgresStore) loadResolution(ctx context.Context, d *Dispute) error {
	query := `
		SELECT dispute_id, decision, summary, notes, resolved_by, resolved_at
		FROM dispute_resolutions
		WHERE dispute_id = $1
	`
	row := s.runner(ctx).QueryRowContext(ctx, query, uuid.UUID(d.ID))
	var res Resolution
	var disputeUUID, resolverUUID uuid.UUID
	var decision string
	err := row.Scan(&disputeUUID, &decision, &res.Summary, &res.Notes, &resolverUUID, &res.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan resolution: %w", err)
	}
	res.DisputeID = id.DisputeID(disputeUUID)
	res.Decision = Decision(decision)
	res.ResolvedBy = id.UserID(resolverUUID)
	d.Resolution = &res
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDispute(row rowScanner) (Dispute, error) {
	var d Dispute
	var disputeUUID, claimUUID, createdByUUID uuid.UUID
	var assignedTo uuid.NullUUID
	var disputeType, status, priority, priorStatus, priorValidation string
	err := row.Scan(
		&disputeUUID, &claimUUID, &disputeType, &status, &priority, &d.Description,
		&createdByUUID, &assignedTo, &d.FiledAt, &d.UpdatedAt,
		&priorStatus, &priorValidation,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Dispute{}, err
		}
		return Dispute{}, fmt.Errorf("scan dispute: %w", err)
	}
	d.ID = id.DisputeID(disputeUUID)
	d.ClaimID = id.ClaimID(claimUUID)
	d.Type = Type(disputeType)
	d.Status = Status(status)
	d.Priority = Priority(priority)
	d.CreatedBy = id.UserID(createdByUUID)
	if assignedTo.Valid {
		d.AssignedTo = id.UserID(assignedTo.UUID)
	}
	d.PriorStatus = claim.Status(priorStatus)
	d.PriorValidationStatus = claim.ValidationStatus(priorValidation)
	return d, nil
}
