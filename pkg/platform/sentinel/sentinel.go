package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: uniqueness rule violated (e.g. second defense on a case)
// - ErrInvalidState: case in wrong lifecycle state for the requested mutation
// - ErrQuotaExceeded: conditional insert blocked by the subscription limit
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidState  = errors.New("invalid state")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrUnavailable   = errors.New("unavailable")
)
