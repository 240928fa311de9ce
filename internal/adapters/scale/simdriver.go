package scale

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/scalehouse/weighbridge/internal/config"
	"github.com/scalehouse/weighbridge/internal/domain/model"
)

// Default simulation constants.
const (
	defaultNoiseKg  = 4.0
	defaultSimSeed  = 42
	defaultSimPhase = 30 // reads per phase
)

// SimDriver is a deterministic stand-in for a real indicator: it walks a
// scripted weight profile with seeded jitter. Used by tests, the demo CLI and
// stations that run without hardware attached.
type SimDriver struct {
	mu      sync.Mutex
	open    bool
	script  []float64
	phase   int // reads spent on the current script step
	step    int
	noise   float64
	rng     *rand.Rand
	perStep int
}

// SimOption applies a configuration option to the SimDriver.
type SimOption func(*SimDriver)

// WithScript sets the weight plateau sequence the driver walks through.
func WithScript(weights []float64) SimOption {
	return func(d *SimDriver) {
		if len(weights) > 0 {
			d.script = weights
		}
	}
}

// WithNoise sets the jitter amplitude in kilograms.
func WithNoise(kg float64) SimOption {
	return func(d *SimDriver) {
		if kg >= 0 {
			d.noise = kg
		}
	}
}

// WithSeed reseeds the jitter source for reproducible runs.
func WithSeed(seed int64) SimOption {
	return func(d *SimDriver) {
		d.rng = rand.New(rand.NewSource(seed))
	}
}

// WithReadsPerPhase sets how many reads the driver spends on each plateau.
func WithReadsPerPhase(n int) SimOption {
	return func(d *SimDriver) {
		if n > 0 {
			d.perStep = n
		}
	}
}

// NewSimDriver creates a simulated driver. The default script is a classic
// weigh-in/weigh-out day: empty deck, truck arrives, deck clears, loaded
// truck returns.
func NewSimDriver(opts ...SimOption) *SimDriver {
	d := &SimDriver{
		script:  []float64{0, 12000, 0, 38000, 0},
		noise:   defaultNoiseKg,
		rng:     rand.New(rand.NewSource(defaultSimSeed)),
		perStep: defaultSimPhase,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open marks the link established. The simulator never fails to open.
func (d *SimDriver) Open(_ context.Context, _ config.ScaleConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	return nil
}

// Read returns the next scripted sample with jitter applied.
func (d *SimDriver) Read(_ context.Context) (model.WeightSample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return model.WeightSample{}, ErrNotConnected
	}

	base := d.script[d.step]
	d.phase++
	if d.phase >= d.perStep && d.step < len(d.script)-1 {
		d.phase = 0
		d.step++
	}

	jitter := (d.rng.Float64()*2 - 1) * d.noise
	return model.WeightSample{
		Value:      base + jitter,
		ObservedAt: time.Now(),
	}, nil
}

// Close releases the simulated link.
func (d *SimDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}
