// Package repository defines the weighing ledger interface and errors.
package repository

import (
	"context"

	"github.com/scalehouse/weighbridge/internal/domain/model"
)

// Ledger is the system of record for weighing events. Implementations must be
// safe for concurrent use; every mutation is atomic with respect to a single
// weighing row.
type Ledger interface {
	// Record persists a new weighing, assigning its id and timestamp.
	// Returns ErrValidation on an empty truck number, a negative weight or
	// an unknown kind.
	Record(ctx context.Context, truckNumber, transporter, product string, weight float64, kind model.Kind) (model.Weighing, error)

	// Get returns the weighing with the given id, or ErrNotFound.
	Get(ctx context.Context, id int64) (model.Weighing, error)

	// Recent returns up to limit weighings, newest first.
	Recent(ctx context.Context, limit int) ([]model.Weighing, error)

	// Unsubmitted returns up to limit weighings not yet accepted by SAP,
	// oldest first, so reconciliation drains in capture order.
	Unsubmitted(ctx context.Context, limit int) ([]model.Weighing, error)

	// MarkSubmitted flips the submission flag and stores the external
	// document id. Re-marking with the same document id is a no-op;
	// a different document id fails with ErrAlreadySubmitted.
	MarkSubmitted(ctx context.Context, id int64, sapDocument string) error

	// UpdateNotes mutates only the operator notes of an existing weighing.
	UpdateNotes(ctx context.Context, id int64, notes string) error

	// PairFor returns the most recent entry/exit pair for the truck.
	// Returns ErrNotFound when the truck has no entry weighing.
	PairFor(ctx context.Context, truckNumber string) (model.Pair, error)

	// Close releases the underlying storage.
	Close() error
}
