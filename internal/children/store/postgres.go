package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cubby/internal/children/models"
	id "cubby/pkg/domain"
	"cubby/pkg/platform/sentinel"
	txcontext "cubby/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists child profiles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed child store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// q joins the caller's transaction when one is in context, so a profile
// write and its audit record commit together.
func (s *PostgresStore) q(ctx context.Context) txcontext.Querier {
	return txcontext.QuerierFor(ctx, s.db)
}

func (s *PostgresStore) Create(ctx context.Context, child *models.Child) error {
	query := `
		INSERT INTO children (id, parent_id, nickname, birthdate, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(child.ID),
		uuid.UUID(child.ParentID),
		child.Nickname,
		child.Birthdate,
		child.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert child: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, childID id.ChildID) (*models.Child, error) {
	query := `
		SELECT id, parent_id, nickname, birthdate, created_at
		FROM children WHERE id = $1
	`
	row := s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(childID))

	child, err := scanChild(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan child: %w", err)
	}
	return child, nil
}

func (s *PostgresStore) ListByParent(ctx context.Context, parentID id.ParentID) ([]*models.Child, error) {
	query := `
		SELECT id, parent_id, nickname, birthdate, created_at
		FROM children WHERE parent_id = $1
		ORDER BY created_at
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(parentID))
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	var out []*models.Child
	for rows.Next() {
		child, err := scanChild(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		out = append(out, child)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, childID id.ChildID) error {
	result, err := s.q(ctx).ExecContext(ctx, `DELETE FROM children WHERE id = $1`, uuid.UUID(childID))
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanChild(scan func(dest ...any) error) (*models.Child, error) {
	var (
		childID  uuid.UUID
		parentID uuid.UUID
		child    models.Child
	)
	if err := scan(&childID, &parentID, &child.Nickname, &child.Birthdate, &child.CreatedAt); err != nil {
		return nil, err
	}
	child.ID = id.ChildID(childID)
	child.ParentID = id.ParentID(parentID)
	return &child, nil
}
