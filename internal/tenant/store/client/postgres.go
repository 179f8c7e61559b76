package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"audittrail/internal/tenant/models"
	id "audittrail/pkg/domain"
	"audittrail/pkg/platform/sentinel"
	"audittrail/pkg/platform/tx"
)

const selectClient = `
	SELECT id, tenant_id, name, public_id, secret_hash, redirect_uris,
		status, created_at, updated_at
	FROM clients
`

// PostgresStore persists clients in PostgreSQL. Writes join the transaction
// carried in ctx.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed client store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, client *models.Client) error {
	if client == nil {
		return fmt.Errorf("client is required")
	}
	redirectURIs, err := json.Marshal(client.RedirectURIs)
	if err != nil {
		return fmt.Errorf("marshal redirect uris: %w", err)
	}

	query := `
		INSERT INTO clients (
			id, tenant_id, name, public_id, secret_hash, redirect_uris,
			status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(client.ID),
		uuid.UUID(client.TenantID),
		client.Name,
		client.PublicID,
		nullString(client.SecretHash),
		redirectURIs,
		string(client.Status),
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("client already exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, client *models.Client) error {
	if client == nil {
		return fmt.Errorf("client is required")
	}
	redirectURIs, err := json.Marshal(client.RedirectURIs)
	if err != nil {
		return fmt.Errorf("marshal redirect uris: %w", err)
	}

	query := `
		UPDATE clients
		SET name = $2,
			secret_hash = $3,
			redirect_uris = $4,
			status = $5,
			updated_at = $6
		WHERE id = $1
	`
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(client.ID),
		client.Name,
		nullString(client.SecretHash),
		redirectURIs,
		string(client.Status),
		client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return requireAffected(res, "update client")
}

func (s *PostgresStore) Delete(ctx context.Context, client *models.Client) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, uuid.UUID(client.ID))
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return requireAffected(res, "delete client")
}

// FindByID retrieves a client by its internal UUID.
func (s *PostgresStore) FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, selectClient+`WHERE id = $1`, uuid.UUID(clientID))
	return s.one(row, "find client by id")
}

// FindByTenantAndID retrieves a client scoped to a specific tenant.
func (s *PostgresStore) FindByTenantAndID(ctx context.Context, tenantID id.TenantID, clientID id.ClientID) (*models.Client, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, selectClient+`WHERE id = $1 AND tenant_id = $2`,
		uuid.UUID(clientID), uuid.UUID(tenantID))
	return s.one(row, "find client by tenant and id")
}

func (s *PostgresStore) FindByPublicID(ctx context.Context, publicID string) (*models.Client, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, selectClient+`WHERE public_id = $1`, publicID)
	return s.one(row, "find client by client_id")
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.Client, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, selectClient+`WHERE tenant_id = $1 ORDER BY created_at`, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list clients by tenant: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

func (s *PostgresStore) one(row *sql.Row, op string) (*models.Client, error) {
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return client, nil
}

type clientRow interface {
	Scan(dest ...any) error
}

func scanClient(row clientRow) (*models.Client, error) {
	var (
		clientID, tenantID uuid.UUID
		secret             sql.NullString
		redirectBytes      []byte
		status             string
		client             models.Client
	)

	if err := row.Scan(
		&clientID, &tenantID,
		&client.Name, &client.PublicID, &secret,
		&redirectBytes,
		&status, &client.CreatedAt, &client.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if secret.Valid {
		client.SecretHash = secret.String
	}
	if len(redirectBytes) > 0 {
		if err := json.Unmarshal(redirectBytes, &client.RedirectURIs); err != nil {
			return nil, fmt.Errorf("unmarshal redirect_uris: %w", err)
		}
	}

	client.ID = id.ClientID(clientID)
	client.TenantID = id.TenantID(tenantID)
	client.Status = models.ClientStatus(status)
	return &client, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func requireAffected(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
