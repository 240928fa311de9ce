package sap

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scalehouse/weighbridge/internal/domain/model"
)

// SimConnector mints document numbers locally. Used by tests, the demo CLI
// and stations whose ERP account is still being provisioned.
type SimConnector struct {
	mu        sync.Mutex
	connected bool
	submitted []model.Weighing
	now       func() time.Time
}

// SimConnectorOption applies a configuration option to the SimConnector.
type SimConnectorOption func(*SimConnector)

// WithSimClock overrides the clock used for document numbers.
func WithSimClock(now func() time.Time) SimConnectorOption {
	return func(c *SimConnector) {
		if now != nil {
			c.now = now
		}
	}
}

// NewSimConnector creates a simulated ERP connector.
func NewSimConnector(opts ...SimConnectorOption) *SimConnector {
	c := &SimConnector{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect marks the simulated session established. Never fails.
func (c *SimConnector) Connect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

// Disconnect drops the simulated session.
func (c *SimConnector) Disconnect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

// Submit records the weighing and returns a locally minted document number.
// The uuid suffix keeps numbers unique when two submissions land within the
// same second.
func (c *SimConnector) Submit(_ context.Context, w model.Weighing) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return "", ErrNotConnected
	}

	c.submitted = append(c.submitted, w)
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("DOC%s-%s", c.now().UTC().Format("20060102150405"), suffix), nil
}

// Submitted returns a copy of everything submitted so far.
func (c *SimConnector) Submitted() []model.Weighing {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Weighing, len(c.submitted))
	copy(out, c.submitted)
	return out
}
