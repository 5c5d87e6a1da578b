package models

import "errors"

// Sentinel errors surfaced by the write paths. Controllers map these to
// HTTP statuses; anything else is treated as an internal error.
var (
	ErrInvalidChannel  = errors.New("invalid channel")
	ErrInvalidStage    = errors.New("invalid stage")
	ErrInvalidModel    = errors.New("invalid attribution model")
	ErrInvalidRevenue  = errors.New("revenue must be a positive finite number")
	ErrNoTouchpoints   = errors.New("contact has no touchpoints to attribute")
	ErrContactNotFound = errors.New("contact not found")
)
