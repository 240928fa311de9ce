// Package service provides the session controller that coordinates the
// scale, the weighing ledger and the SAP gateway for one operator station.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/scalehouse/weighbridge/internal/adapters/repository"
	"github.com/scalehouse/weighbridge/internal/domain/model"
	"github.com/scalehouse/weighbridge/pkg/logger"
)

// State is the phase of the operator workflow for the current truck context.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingEntry State = "awaiting_entry"
	StateAwaitingExit  State = "awaiting_exit"
	StatePaired        State = "paired"
)

// Telemetry is the slice of the scale channel the controller needs.
type Telemetry interface {
	IsConnected() bool
	Latest() (model.StableReading, bool)
}

// Gateway is the slice of the SAP gateway the controller needs.
type Gateway interface {
	IsConnected() bool
	Submit(ctx context.Context, w model.Weighing) (string, error)
}

// Status is an immutable snapshot of the controller for rendering. Every
// failed operation updates Message, so outcomes are observable without
// inspecting errors.
type Status struct {
	State          State  `json:"state"`
	TruckNumber    string `json:"truck_number"`
	Transporter    string `json:"transporter"`
	Product        string `json:"product"`
	ScaleConnected bool   `json:"scale_connected"`
	SAPConnected   bool   `json:"sap_connected"`
	LastEntryID    int64  `json:"last_entry_id,omitempty"`
	LastExitID     int64  `json:"last_exit_id,omitempty"`
	Message        string `json:"message"`
}

// Service orchestrates a single operator workflow. All durable state lives in
// the ledger; the controller holds only the transient truck context and can
// be rebuilt from the ledger at any time.
type Service struct {
	mu sync.RWMutex

	ledger    repository.Ledger
	telemetry Telemetry
	gateway   Gateway

	historyLimit int

	// session state
	state       State
	truckNumber string
	transporter string
	product     string
	lastEntryID int64
	lastExitID  int64
	message     string

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLedger sets the weighing ledger.
func WithLedger(l repository.Ledger) Option {
	return func(s *Service) {
		s.ledger = l
	}
}

// WithTelemetry sets the scale channel.
func WithTelemetry(t Telemetry) Option {
	return func(s *Service) {
		s.telemetry = t
	}
}

// WithGateway sets the SAP gateway.
func WithGateway(g Gateway) Option {
	return func(s *Service) {
		s.gateway = g
	}
}

// WithHistoryLimit caps the default number of rows returned by Recent.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a session controller.
func New(opts ...Option) *Service {
	s := &Service{
		historyLimit: 100,
		state:        StateIdle,
		message:      "ready",
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTruckContext begins a session for the given truck. The context is
// advisory UI state; changing it mid-session abandons the previous session
// without touching the ledger.
func (s *Service) SetTruckContext(ctx context.Context, truckNumber, transporter, product string) error {
	if truckNumber == "" {
		s.setMessage("truck number is required")
		return fmt.Errorf("%w: empty truck number", repository.ErrValidation)
	}

	s.mu.Lock()
	s.state = StateAwaitingEntry
	s.truckNumber = truckNumber
	s.transporter = transporter
	s.product = product
	s.lastEntryID = 0
	s.lastExitID = 0
	s.message = fmt.Sprintf("session started for %s", truckNumber)
	s.mu.Unlock()

	s.logger.Info(ctx, "truck session started",
		logger.String("truck", truckNumber),
		logger.String("transporter", transporter),
		logger.String("product", product),
	)
	return nil
}

// ClearSession drops the truck context and returns to idle.
func (s *Service) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.truckNumber = ""
	s.transporter = ""
	s.product = ""
	s.lastEntryID = 0
	s.lastExitID = 0
	s.message = "ready"
}

// CaptureEntry records the latest stable reading as the entry leg of the
// current session. A failed capture leaves the truck context unchanged.
func (s *Service) CaptureEntry(ctx context.Context) (model.Weighing, error) {
	return s.capture(ctx, model.KindEntry)
}

// CaptureExit records the latest stable reading as the exit leg.
func (s *Service) CaptureExit(ctx context.Context) (model.Weighing, error) {
	return s.capture(ctx, model.KindExit)
}

func (s *Service) capture(ctx context.Context, kind model.Kind) (model.Weighing, error) {
	s.mu.RLock()
	truck, transporter, product := s.truckNumber, s.transporter, s.product
	s.mu.RUnlock()

	if truck == "" {
		s.setMessage("capture refused: no truck context")
		return model.Weighing{}, ErrNoTruckContext
	}

	if !s.telemetry.IsConnected() {
		s.setMessage("capture refused: scale disconnected")
		return model.Weighing{}, fmt.Errorf("%w: scale disconnected", ErrNoStableReading)
	}
	reading, ok := s.telemetry.Latest()
	if !ok {
		s.setMessage("capture refused: scale has not settled")
		return model.Weighing{}, ErrNoStableReading
	}

	w, err := s.ledger.Record(ctx, truck, transporter, product, reading.Value, kind)
	if err != nil {
		s.setMessage(fmt.Sprintf("capture failed: %v", err))
		return model.Weighing{}, err
	}

	s.mu.Lock()
	switch kind {
	case model.KindEntry:
		s.lastEntryID = w.ID
		s.state = StateAwaitingExit
		s.message = fmt.Sprintf("entry captured for %s at %.0f kg", truck, w.Weight)
	case model.KindExit:
		s.lastExitID = w.ID
		if s.lastEntryID != 0 {
			s.state = StatePaired
		}
		s.message = fmt.Sprintf("exit captured for %s at %.0f kg", truck, w.Weight)
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "weighing captured",
		logger.Int64("id", w.ID),
		logger.String("truck", truck),
		logger.String("kind", string(kind)),
		logger.Float64("weight", w.Weight),
	)
	return w, nil
}

// SendLatest submits the most recent ledger event to SAP and records the
// returned document id. On gateway failure the event stays unsent so the
// operator can retry without creating a duplicate row.
func (s *Service) SendLatest(ctx context.Context) (model.Weighing, error) {
	recent, err := s.ledger.Recent(ctx, 1)
	if err != nil {
		s.setMessage(fmt.Sprintf("send failed: %v", err))
		return model.Weighing{}, err
	}
	if len(recent) == 0 {
		s.setMessage("send refused: ledger is empty")
		return model.Weighing{}, ErrNoWeighings
	}

	latest := recent[0]
	if latest.Submitted {
		s.setMessage(fmt.Sprintf("weighing %d already sent as %s", latest.ID, latest.SAPDocument))
		return model.Weighing{}, fmt.Errorf("%w: weighing %d", ErrAlreadySent, latest.ID)
	}

	doc, err := s.gateway.Submit(ctx, latest)
	if err != nil {
		s.setMessage(fmt.Sprintf("send failed: %v", err))
		return model.Weighing{}, err
	}

	if err := s.ledger.MarkSubmitted(ctx, latest.ID, doc); err != nil {
		s.setMessage(fmt.Sprintf("send succeeded but recording failed: %v", err))
		return model.Weighing{}, err
	}

	s.setMessage(fmt.Sprintf("weighing %d sent as %s", latest.ID, doc))
	s.logger.Info(ctx, "latest weighing sent",
		logger.Int64("id", latest.ID),
		logger.String("sap_document", doc),
	)

	latest.Submitted = true
	latest.SAPDocument = doc
	return latest, nil
}

// Recent returns the newest weighings, capped by the history limit when the
// caller passes a non-positive limit.
func (s *Service) Recent(ctx context.Context, limit int) ([]model.Weighing, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	return s.ledger.Recent(ctx, limit)
}

// Get returns one weighing by id.
func (s *Service) Get(ctx context.Context, id int64) (model.Weighing, error) {
	return s.ledger.Get(ctx, id)
}

// PairFor returns the most recent entry/exit pair for a truck.
func (s *Service) PairFor(ctx context.Context, truckNumber string) (model.Pair, error) {
	return s.ledger.PairFor(ctx, truckNumber)
}

// UpdateNotes edits the operator notes on a weighing.
func (s *Service) UpdateNotes(ctx context.Context, id int64, notes string) error {
	if err := s.ledger.UpdateNotes(ctx, id, notes); err != nil {
		s.setMessage(fmt.Sprintf("notes update failed: %v", err))
		return err
	}
	return nil
}

// Status returns an immutable snapshot of the controller.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		State:          s.state,
		TruckNumber:    s.truckNumber,
		Transporter:    s.transporter,
		Product:        s.product,
		ScaleConnected: s.telemetry != nil && s.telemetry.IsConnected(),
		SAPConnected:   s.gateway != nil && s.gateway.IsConnected(),
		LastEntryID:    s.lastEntryID,
		LastExitID:     s.lastExitID,
		Message:        s.message,
	}
}

func (s *Service) setMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}
