// Package scale owns the telemetry link to the weighbridge indicator and
// derives stable readings from its raw sample stream.
package scale

import (
	"context"

	"github.com/scalehouse/weighbridge/internal/config"
	"github.com/scalehouse/weighbridge/internal/domain/model"
)

// Driver abstracts the physical scale link. The byte framing of a specific
// indicator lives behind this interface; the channel only needs samples.
//
// Implementations report link-level failures by wrapping ErrConnection and
// transient device failures by wrapping ErrRead.
type Driver interface {
	// Open establishes the link using the configured port parameters.
	Open(ctx context.Context, cfg config.ScaleConfig) error

	// Read performs one synchronous weight read.
	Read(ctx context.Context) (model.WeightSample, error)

	// Close releases the link unconditionally. Safe to call repeatedly.
	Close() error
}
