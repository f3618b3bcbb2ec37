package types

import "errors"

// Domain errors for request and record validation
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrMissingField   = errors.New("missing required field")
	ErrEmptyHash      = errors.New("code hash must be computed")
	ErrInvalidKind    = errors.New("invalid function kind")
)
