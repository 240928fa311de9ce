package service

import "errors"

var (
	// ErrNoTruckContext is returned when a capture is attempted before the
	// operator entered a truck number.
	ErrNoTruckContext = errors.New("no truck context set")

	// ErrNoStableReading is returned when a capture is attempted before the
	// scale settled, or while the scale is disconnected.
	ErrNoStableReading = errors.New("no stable reading available")

	// ErrAlreadySent is the idempotency guard on SendLatest: the latest
	// weighing already went out.
	ErrAlreadySent = errors.New("latest weighing already sent")

	// ErrNoWeighings is returned by SendLatest when the ledger is empty.
	ErrNoWeighings = errors.New("no weighings recorded")
)
