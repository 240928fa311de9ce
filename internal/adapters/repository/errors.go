package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrNotFound         = errors.New("weighing not found")
	ErrValidation       = errors.New("invalid weighing")
	ErrAlreadySubmitted = errors.New("weighing already submitted with a different document")
)
