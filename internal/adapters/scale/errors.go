package scale

import "errors"

// Sentinel kinds for telemetry errors.
var (
	// ErrConnection marks a link-level failure: the device cannot be opened
	// or stopped responding. Recoverable by reconnecting.
	ErrConnection = errors.New("scale connection failed")

	// ErrNotConnected is returned by operations that need an open link.
	ErrNotConnected = errors.New("scale not connected")

	// ErrRead marks a transient device read failure; the same read may be
	// retried.
	ErrRead = errors.New("scale read failed")

	// ErrConnectionLost is the terminal fault surfaced to observers after
	// two consecutive link-level failures.
	ErrConnectionLost = errors.New("scale connection lost")
)
