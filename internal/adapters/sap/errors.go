package sap

import "errors"

// Sentinel kinds for gateway errors.
var (
	// ErrNotConnected is returned when submit is attempted while the
	// gateway is down.
	ErrNotConnected = errors.New("sap not connected")

	// ErrAlreadySubmitted is the duplicate-submission guard: the weighing
	// handed to Submit already carries a document.
	ErrAlreadySubmitted = errors.New("weighing already submitted to sap")

	// ErrConnect marks a failure to reach the ERP system; recoverable by
	// retrying connect.
	ErrConnect = errors.New("sap connection failed")

	// ErrSubmit marks a transient submission failure; the caller may retry
	// with the same weighing.
	ErrSubmit = errors.New("sap submission failed")
)
