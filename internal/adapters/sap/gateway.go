package sap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scalehouse/weighbridge/internal/domain/model"
	"github.com/scalehouse/weighbridge/pkg/logger"
	"github.com/scalehouse/weighbridge/pkg/metrics"
)

// Gateway guards the connector with the duplicate-submission check and
// connection state. It never mutates the ledger: recording the returned
// document id is the caller's responsibility, which keeps a single writer on
// persisted state.
//
// A crash between connector success and the caller's ledger update is the one
// window where a retry resubmits; that window is accepted as at-least-once
// and the receiving system must treat truck/timestamp as idempotency key.
type Gateway struct {
	connector Connector

	mu        sync.Mutex
	connected bool

	logger logger.Logger
}

// Option applies a configuration option to the Gateway.
type Option func(*Gateway)

// WithLogger sets a custom logger for the gateway.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway wraps the given connector.
func NewGateway(connector Connector, opts ...Option) *Gateway {
	g := &Gateway{
		connector: connector,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect establishes the ERP session. Idempotent while connected.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connected {
		return nil
	}
	if err := g.connector.Connect(ctx); err != nil {
		return err
	}
	g.connected = true
	metrics.UpdateSAPConnected(true)
	g.logger.Info(ctx, "sap connected")
	return nil
}

// Disconnect releases the ERP session. Safe to call when not connected.
func (g *Gateway) Disconnect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return nil
	}
	g.connected = false
	metrics.UpdateSAPConnected(false)
	if err := g.connector.Disconnect(ctx); err != nil {
		return err
	}
	g.logger.Info(ctx, "sap disconnected")
	return nil
}

// IsConnected reports whether the ERP session is up.
func (g *Gateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// Submit transmits one weighing and returns the minted document id. The
// submitted flag is checked before any network call; that check is the
// primary duplicate-submission guard. Submit blocks for the network round
// trip, so callers must not hold ledger locks across it.
func (g *Gateway) Submit(ctx context.Context, w model.Weighing) (string, error) {
	if w.Submitted {
		return "", fmt.Errorf("%w: weighing %d carries document %s", ErrAlreadySubmitted, w.ID, w.SAPDocument)
	}
	if !g.IsConnected() {
		return "", ErrNotConnected
	}

	start := time.Now()
	doc, err := g.connector.Submit(ctx, w)
	metrics.RecordSubmissionLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordSubmissionError()
		g.logger.Warn(ctx, "sap submission failed",
			logger.Int64("weighing_id", w.ID),
			logger.Error(err),
		)
		return "", err
	}

	metrics.RecordSubmission()
	g.logger.Info(ctx, "weighing submitted to sap",
		logger.Int64("weighing_id", w.ID),
		logger.String("sap_document", doc),
	)
	return doc, nil
}
