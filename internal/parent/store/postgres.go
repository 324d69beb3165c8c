package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cubby/internal/parent/models"
	id "cubby/pkg/domain"
	"cubby/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists parent accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed parent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, parent *models.Parent) error {
	query := `
		INSERT INTO parents (id, email, password_hash, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(parent.ID),
		parent.Email,
		parent.PasswordHash,
		parent.DisplayName,
		parent.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert parent: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, parentID id.ParentID) (*models.Parent, error) {
	query := `
		SELECT id, email, password_hash, display_name, created_at
		FROM parents WHERE id = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(parentID)))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Parent, error) {
	query := `
		SELECT id, email, password_hash, display_name, created_at
		FROM parents WHERE email = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Parent, error) {
	var (
		parentID uuid.UUID
		parent   models.Parent
	)
	err := row.Scan(&parentID, &parent.Email, &parent.PasswordHash, &parent.DisplayName, &parent.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan parent: %w", err)
	}
	parent.ID = id.ParentID(parentID)
	return &parent, nil
}
