// Package store defines persistence for the consent ledger.
package store

import (
	"context"
	"time"

	"cubby/internal/consent/models"
	id "cubby/pkg/domain"
)

// ConsentStore persists consent grants. Grants are append-only; Revoke
// stamps RevokedAt rather than deleting. Implementations return
// sentinel.ErrNotFound for missing grants and sentinel.ErrRevoked when
// revoking an already-revoked grant.
type ConsentStore interface {
	Create(ctx context.Context, grant *models.ConsentGrant) error
	FindByID(ctx context.Context, consentID id.ConsentID) (*models.ConsentGrant, error)
	ListByChild(ctx context.Context, childID id.ChildID) ([]*models.ConsentGrant, error)
	Revoke(ctx context.Context, consentID id.ConsentID, revokedAt time.Time) error
}
