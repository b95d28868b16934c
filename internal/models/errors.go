package models

import "errors"

// Transfer error taxonomy. Engine failures wrap one of these sentinels with
// a message carrying the failing filename, device path, or URL, so callers
// can branch with errors.Is without parsing text. Anything not wrapping a
// sentinel is an unanticipated generic failure.
var (
	ErrNotFound          = errors.New("not found")
	ErrNetwork           = errors.New("network error")
	ErrInsufficientSpace = errors.New("insufficient space")
	ErrIO                = errors.New("io error")
)
