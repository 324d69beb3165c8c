// Package store defines persistence for child profiles.
package store

import (
	"context"

	"cubby/internal/children/models"
	id "cubby/pkg/domain"
)

// ChildStore persists child profiles. Implementations return
// sentinel.ErrNotFound for missing profiles.
type ChildStore interface {
	Create(ctx context.Context, child *models.Child) error
	FindByID(ctx context.Context, childID id.ChildID) (*models.Child, error)
	ListByParent(ctx context.Context, parentID id.ParentID) ([]*models.Child, error)
	Delete(ctx context.Context, childID id.ChildID) error
}
