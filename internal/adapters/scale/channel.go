package scale

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/scalehouse/weighbridge/internal/config"
	"github.com/scalehouse/weighbridge/internal/domain/model"
	"github.com/scalehouse/weighbridge/internal/domain/stability"
	"github.com/scalehouse/weighbridge/pkg/logger"
	"github.com/scalehouse/weighbridge/pkg/metrics"
)

// Default channel timing constants.
const (
	defaultPollInterval   = 500 * time.Millisecond
	defaultRetryBackoff   = time.Second
	defaultDisconnectWait = 2 * time.Second
	defaultSubscriberBuf  = 16

	// terminalFailureCount is the number of consecutive link-level
	// failures after which the loop gives up.
	terminalFailureCount = 2
)

// Event is the notification delivered to channel observers. Exactly one field
// is set per event.
type Event struct {
	// Sample is a raw reading. Slow observers may miss these.
	Sample *model.WeightSample

	// Stable is an edge-triggered settled reading. Never dropped: when an
	// observer's buffer is full the oldest pending event is evicted first.
	Stable *model.StableReading

	// Err carries the terminal ErrConnectionLost fault; the loop has
	// stopped when it is delivered.
	Err error
}

// Channel turns the driver's raw stream into discrete stable readings and
// fans both out to observers. One read loop runs per open connection; it is
// the sole writer of the stability state.
type Channel struct {
	driver Driver
	cfg    config.ScaleConfig

	pollInterval   time.Duration
	retryBackoff   time.Duration
	disconnectWait time.Duration
	subscriberBuf  int

	mu        sync.Mutex // guards lifecycle state
	connected bool
	cancel    context.CancelFunc
	done      chan struct{}

	detMu sync.Mutex // guards detector state
	det   *stability.Detector

	subMu   sync.RWMutex
	subs    map[int]chan Event
	nextSub int

	logger logger.Logger
}

// Option applies a configuration option to the Channel.
type Option func(*Channel)

// WithPollInterval sets the continuous read cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithRetryBackoff sets the pause after a transient read failure.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.retryBackoff = d
		}
	}
}

// WithDisconnectWait bounds how long Disconnect waits for the read loop.
func WithDisconnectWait(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.disconnectWait = d
		}
	}
}

// WithDetector replaces the stability detector.
func WithDetector(det *stability.Detector) Option {
	return func(c *Channel) {
		if det != nil {
			c.det = det
		}
	}
}

// WithSubscriberBuffer sets the per-observer event buffer size.
func WithSubscriberBuffer(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.subscriberBuf = n
		}
	}
}

// WithLogger sets a custom logger for the channel.
func WithLogger(l logger.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Channel over the given driver. Timing options default to the
// values in cfg; explicit options win.
func New(driver Driver, cfg config.ScaleConfig, opts ...Option) *Channel {
	c := &Channel{
		driver:         driver,
		cfg:            cfg,
		pollInterval:   defaultPollInterval,
		retryBackoff:   defaultRetryBackoff,
		disconnectWait: defaultDisconnectWait,
		subscriberBuf:  defaultSubscriberBuf,
		det: stability.New(
			stability.WithTolerance(cfg.StabilityToleranceKg),
			stability.WithDwellMillis(int64(cfg.StabilityDwellMS)),
		),
		subs:   make(map[int]chan Event),
		logger: logger.Nop(),
	}
	if d := cfg.PollInterval(); d > 0 {
		c.pollInterval = d
	}
	if d := cfg.RetryBackoff(); d > 0 {
		c.retryBackoff = d
	}
	if d := cfg.DisconnectWait(); d > 0 {
		c.disconnectWait = d
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the link and starts the continuous read loop. Idempotent:
// calling while connected is a no-op returning success.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	if err := c.driver.Open(ctx, c.cfg); err != nil {
		return err
	}

	// A reading settled on a previous connection must not be captured.
	c.detMu.Lock()
	c.det.Reset()
	c.detMu.Unlock()

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.connected = true
	metrics.UpdateScaleConnected(true)

	go c.run(loopCtx, c.done)

	c.logger.Info(ctx, "scale connected",
		logger.String("port", c.cfg.Port),
		logger.Duration("poll_interval", c.pollInterval),
	)
	return nil
}

// Disconnect stops the read loop and releases the link. It waits up to the
// configured bound for the loop to stop, then force-closes. Safe to call when
// not connected.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.connected = false
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(c.disconnectWait):
		c.logger.Warn(context.Background(), "read loop did not stop in time; forcing link closed",
			logger.Duration("waited", c.disconnectWait),
		)
	}

	_ = c.driver.Close()
	metrics.UpdateScaleConnected(false)
}

// IsConnected reports whether the link is open.
func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ReadOnce performs a single synchronous read outside the continuous loop.
func (c *Channel) ReadOnce(ctx context.Context) (model.WeightSample, error) {
	if !c.IsConnected() {
		return model.WeightSample{}, ErrNotConnected
	}
	return c.driver.Read(ctx)
}

// Latest returns the most recent stable reading observed on the current
// connection, if any.
func (c *Channel) Latest() (model.StableReading, bool) {
	c.detMu.Lock()
	defer c.detMu.Unlock()
	return c.det.Latest()
}

// Subscribe registers an observer. The returned cancel func unregisters it
// and closes the event channel.
func (c *Channel) Subscribe() (<-chan Event, func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan Event, c.subscriberBuf)
	c.subs[id] = ch
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// run is the continuous read loop. It is the only writer of detector state
// and checks cancellation at least once per poll interval.
func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	connFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sample, err := c.driver.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.RecordReadError()

			if errors.Is(err, ErrConnection) {
				connFailures++
				if connFailures >= terminalFailureCount {
					c.fail(ctx, err)
					return
				}
			}

			c.logger.Warn(ctx, "transient scale read failure", logger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryBackoff):
			}
			continue
		}

		connFailures = 0
		metrics.RecordSampleRead()
		s := sample
		c.publish(Event{Sample: &s}, true)

		c.detMu.Lock()
		reading, settled := c.det.Observe(sample)
		c.detMu.Unlock()
		if settled {
			metrics.RecordStableReading()
			r := reading
			c.publish(Event{Stable: &r}, false)
			c.logger.Debug(ctx, "stable reading",
				logger.Float64("weight", reading.Value),
			)
		}
	}
}

// fail surfaces a terminal connection loss: observers are notified, the link
// is closed and the channel is left disconnected.
func (c *Channel) fail(ctx context.Context, cause error) {
	metrics.RecordConnectionLost()
	c.logger.Error(ctx, "scale connection lost", logger.Error(cause))

	c.mu.Lock()
	c.connected = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.done = nil
	c.mu.Unlock()

	_ = c.driver.Close()
	metrics.UpdateScaleConnected(false)
	c.publish(Event{Err: ErrConnectionLost}, false)
}

// publish fans an event out to every observer without ever blocking the read
// loop. Droppable events are skipped when a buffer is full; guaranteed events
// evict the oldest pending one instead.
func (c *Channel) publish(ev Event, droppable bool) {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subs {
		select {
		case sub <- ev:
			continue
		default:
		}
		if droppable {
			continue
		}
		// Make room: evict one, then retry once. The loop is the only
		// producer so the second send can only race a consumer, which
		// frees space.
		select {
		case <-sub:
		default:
		}
		select {
		case sub <- ev:
		default:
		}
	}
}
