// Package scheduler periodically drains unsent weighings to SAP.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/scalehouse/weighbridge/internal/adapters/repository"
	sap "github.com/scalehouse/weighbridge/internal/adapters/sap"
	"github.com/scalehouse/weighbridge/internal/config"
	"github.com/scalehouse/weighbridge/internal/domain/model"
	"github.com/scalehouse/weighbridge/pkg/logger"
)

// Gateway is the slice of the SAP gateway the sync job needs.
type Gateway interface {
	IsConnected() bool
	Submit(ctx context.Context, w model.Weighing) (string, error)
}

// Scheduler runs the auto-sync cron job. Each tick drains a batch of unsent
// weighings through the same submit-then-mark path the operator uses, so the
// idempotency guards hold regardless of who triggers the send.
type Scheduler struct {
	cron    *cron.Cron
	ledger  repository.Ledger
	gateway Gateway
	cfg     config.SyncConfig
	logger  logger.Logger
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a scheduler over the given ledger and gateway.
func New(cfg config.SyncConfig, ledger repository.Ledger, gateway Gateway, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:    cron.New(),
		ledger:  ledger,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the sync job and starts the cron loop. A no-op unless
// auto-send is enabled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.AutoSend {
		s.logger.Info(ctx, "auto-send disabled, scheduler idle")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.drain); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info(ctx, "auto-send scheduler started",
		logger.String("schedule", s.cfg.Schedule),
		logger.Int("batch_limit", s.cfg.BatchLimit),
	)
	return nil
}

// Stop halts the cron loop and waits for a running drain to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Drain submits one batch of unsent weighings. Exposed for tests and for a
// manual sync trigger; the cron job calls the same path.
func (s *Scheduler) Drain(ctx context.Context) (int, error) {
	if !s.gateway.IsConnected() {
		return 0, nil
	}

	batch, err := s.ledger.Unsubmitted(ctx, s.cfg.BatchLimit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, w := range batch {
		doc, err := s.gateway.Submit(ctx, w)
		if err != nil {
			if errors.Is(err, sap.ErrAlreadySubmitted) {
				continue
			}
			// transient failure ends the batch; the rows stay unsent
			// and the next tick picks them up again
			return sent, err
		}
		if err := s.ledger.MarkSubmitted(ctx, w.ID, doc); err != nil {
			return sent, err
		}
		sent++
		s.logger.Info(ctx, "auto-sent weighing",
			logger.Int64("id", w.ID),
			logger.String("sap_document", doc),
		)
	}
	return sent, nil
}

func (s *Scheduler) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sent, err := s.Drain(ctx)
	if err != nil {
		s.logger.Warn(ctx, "auto-send batch failed", logger.Error(err))
		return
	}
	if sent > 0 {
		s.logger.Info(ctx, "auto-send batch complete", logger.Int("sent", sent))
	}
}
