package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cubby/internal/consent/models"
	id "cubby/pkg/domain"
	"cubby/pkg/platform/sentinel"
	txcontext "cubby/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists consent grants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// q joins the caller's transaction when one is in context, so a grant and
// its audit record commit together.
func (s *PostgresStore) q(ctx context.Context) txcontext.Querier {
	return txcontext.QuerierFor(ctx, s.db)
}

func (s *PostgresStore) Create(ctx context.Context, grant *models.ConsentGrant) error {
	query := `
		INSERT INTO consent_grants (id, child_id, consent_type, method, granted_by, granted_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(grant.ID),
		uuid.UUID(grant.ChildID),
		string(grant.Type),
		string(grant.Method),
		uuid.UUID(grant.GrantedBy),
		grant.GrantedAt,
		grant.ExpiresAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent grant: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, child_id, consent_type, method, granted_by, granted_at, expires_at, revoked_at
	FROM consent_grants
`

func (s *PostgresStore) FindByID(ctx context.Context, consentID id.ConsentID) (*models.ConsentGrant, error) {
	row := s.q(ctx).QueryRowContext(ctx, selectColumns+` WHERE id = $1`, uuid.UUID(consentID))

	grant, err := scanGrant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan consent grant: %w", err)
	}
	return grant, nil
}

func (s *PostgresStore) ListByChild(ctx context.Context, childID id.ChildID) ([]*models.ConsentGrant, error) {
	rows, err := s.q(ctx).QueryContext(ctx, selectColumns+` WHERE child_id = $1 ORDER BY granted_at`, uuid.UUID(childID))
	if err != nil {
		return nil, fmt.Errorf("query consent grants: %w", err)
	}
	defer rows.Close()

	var out []*models.ConsentGrant
	for rows.Next() {
		grant, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan consent grant: %w", err)
		}
		out = append(out, grant)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Revoke(ctx context.Context, consentID id.ConsentID, revokedAt time.Time) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`UPDATE consent_grants SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		revokedAt, uuid.UUID(consentID))
	if err != nil {
		return fmt.Errorf("revoke consent grant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke consent grant: %w", err)
	}
	if affected == 0 {
		// Missing or already revoked; disambiguate for the caller.
		var exists bool
		err := s.q(ctx).QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM consent_grants WHERE id = $1)`,
			uuid.UUID(consentID)).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check consent grant: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrRevoked
	}
	return nil
}

func scanGrant(scan func(dest ...any) error) (*models.ConsentGrant, error) {
	var (
		consentID   uuid.UUID
		childID     uuid.UUID
		consentType string
		method      string
		grantedBy   uuid.UUID
		grant       models.ConsentGrant
		expiresAt   sql.NullTime
		revokedAt   sql.NullTime
	)
	err := scan(&consentID, &childID, &consentType, &method, &grantedBy,
		&grant.GrantedAt, &expiresAt, &revokedAt)
	if err != nil {
		return nil, err
	}
	grant.ID = id.ConsentID(consentID)
	grant.ChildID = id.ChildID(childID)
	grant.Type = id.ConsentType(consentType)
	grant.Method = id.ConsentMethod(method)
	grant.GrantedBy = id.ParentID(grantedBy)
	if expiresAt.Valid {
		grant.ExpiresAt = &expiresAt.Time
	}
	if revokedAt.Valid {
		grant.RevokedAt = &revokedAt.Time
	}
	return &grant, nil
}
