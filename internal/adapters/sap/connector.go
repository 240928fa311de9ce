// Package sap submits completed weighings to the downstream ERP system
// exactly once per weighing, tolerating disconnects and caller retries.
package sap

import (
	"context"

	"github.com/scalehouse/weighbridge/internal/domain/model"
)

// Connector abstracts the ERP transport. Whether the real system speaks RFC,
// OData or SOAP is the connector's business; the gateway only needs
// connect/disconnect/submit semantics.
//
// Implementations report unreachable-system failures by wrapping ErrConnect
// and transient submission failures by wrapping ErrSubmit.
type Connector interface {
	// Connect establishes the session with the ERP system.
	Connect(ctx context.Context) error

	// Disconnect releases the session. Safe to call when not connected.
	Disconnect(ctx context.Context) error

	// Submit transmits one weighing and returns the external document id
	// minted by the ERP system.
	Submit(ctx context.Context, w model.Weighing) (string, error)
}
