package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	auditcontract "audittrail/contracts/audit"
	id "audittrail/pkg/domain"
	audit "audittrail/pkg/platform/audit"
	"audittrail/pkg/platform/audit/outbox"
	"audittrail/pkg/platform/tx"
)

// EventType is the outbox event type used for exported audit records.
const EventType = "audit_record_appended"

// Store implements audit.Store using PostgreSQL. Writes join the transaction
// carried in ctx, so a record commits or rolls back with the mutation it describes.
type Store struct {
	db     *sql.DB
	outbox outbox.Store
}

// Option configures the Store.
type Option func(*Store)

// WithOutbox also appends every record to ob in the same transaction, for
// export by the outbox worker.
func WithOutbox(ob outbox.Store) Option {
	return func(s *Store) {
		s.outbox = ob
	}
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append inserts a record into audit_records.
func (s *Store) Append(ctx context.Context, record audit.Record) error {
	query := `
		INSERT INTO audit_records (
			id, auditable_type, auditable_id, principal_id, principal_ip, action, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		record.AuditableType,
		record.AuditableID,
		record.PrincipalID,
		record.PrincipalIP,
		string(record.Action),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	if s.outbox == nil {
		return nil
	}
	payload, err := json.Marshal(exported(record))
	if err != nil {
		return fmt.Errorf("encode audit record for outbox: %w", err)
	}
	entry := outbox.NewEntry(record.AuditableType, record.AuditableID, EventType, payload)
	entry.CreatedAt = record.CreatedAt
	if err := s.outbox.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit record to outbox: %w", err)
	}
	return nil
}

// ListByAuditable returns the records of one entity, oldest first.
func (s *Store) ListByAuditable(ctx context.Context, ref audit.Ref) ([]audit.Record, error) {
	query := `
		SELECT id, auditable_type, auditable_id, principal_id, principal_ip, action, created_at
		FROM audit_records
		WHERE auditable_type = $1 AND auditable_id = $2
		ORDER BY seq ASC
	`

	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, ref.Type, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListRecent returns the N most recent records.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Record, error) {
	if limit <= 0 || limit > math.MaxInt32 {
		limit = math.MaxInt32
	}
	query := `
		SELECT id, auditable_type, auditable_id, principal_id, principal_ip, action, created_at
		FROM audit_records
		ORDER BY seq DESC
		LIMIT $1
	`

	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record

	for rows.Next() {
		var (
			record   audit.Record
			recordID uuid.UUID
			action   string
			userID   sql.NullString
			userIP   sql.NullString
		)

		err := rows.Scan(
			&recordID,
			&record.AuditableType,
			&record.AuditableID,
			&userID,
			&userIP,
			&action,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}

		record.ID = id.AuditRecordID(recordID)
		record.Action = audit.Action(action)
		if userID.Valid {
			record.PrincipalID = &userID.String
		}
		if userIP.Valid {
			record.PrincipalIP = &userIP.String
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}

	return records, nil
}

func exported(r audit.Record) auditcontract.ExportedRecord {
	return auditcontract.ExportedRecord{
		Version:       auditcontract.ContractVersion,
		ID:            r.ID.String(),
		AuditableType: r.AuditableType,
		AuditableID:   r.AuditableID,
		PrincipalID:   r.PrincipalID,
		PrincipalIP:   r.PrincipalIP,
		Action:        string(r.Action),
		CreatedAt:     r.CreatedAt,
	}
}
