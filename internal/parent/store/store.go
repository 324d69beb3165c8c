// Package store defines persistence for parent accounts.
package store

import (
	"context"

	"cubby/internal/parent/models"
	id "cubby/pkg/domain"
)

// ParentStore persists parent accounts. Implementations return
// sentinel.ErrNotFound for missing parents and sentinel.ErrConflict for
// duplicate emails.
type ParentStore interface {
	Create(ctx context.Context, parent *models.Parent) error
	FindByID(ctx context.Context, parentID id.ParentID) (*models.Parent, error)
	FindByEmail(ctx context.Context, email string) (*models.Parent, error)
}
