package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and platform layers return
// these (optionally wrapped) so services can translate them into domain
// errors where the fact becomes a decision.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: unique constraint or concurrent modification clash
// - ErrExpired: grant/token/session has passed its expiry
// - ErrRevoked: consent grant was explicitly withdrawn
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrRevoked     = errors.New("revoked")
	ErrUnavailable = errors.New("unavailable")
)
