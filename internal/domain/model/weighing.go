// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Kind distinguishes the two legs of a truck's weighing transaction.
type Kind string

// Weighing kinds.
const (
	KindEntry Kind = "entry"
	KindExit  Kind = "exit"
)

// Valid reports whether k is one of the known weighing kinds.
func (k Kind) Valid() bool {
	return k == KindEntry || k == KindExit
}

// WeightSample is a single raw reading from the scale. Ephemeral; produced by
// the telemetry channel and consumed immediately, never persisted.
type WeightSample struct {
	Value      float64   // kilograms
	ObservedAt time.Time // when the driver produced the reading
}

// StableReading marks a weight that stayed within tolerance for the full
// dwell window and is eligible for capture.
type StableReading struct {
	Value     float64
	SettledAt time.Time // end of the dwell window
}

// Weighing is the persisted unit of record. ID and Timestamp are assigned by
// the ledger on creation; everything but Notes and the submission fields is
// immutable thereafter.
type Weighing struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	TruckNumber string    `json:"truck_number"`
	Transporter string    `json:"transporter"`
	Product     string    `json:"product"`
	Weight      float64   `json:"weight"`
	Kind        Kind      `json:"kind"`

	// SAPDocument is set exactly once on successful submission and is
	// non-empty if and only if Submitted is true.
	SAPDocument string `json:"sap_document,omitempty"`
	Submitted   bool   `json:"submitted"`

	Notes string `json:"notes,omitempty"`
}

// Pair joins one entry weighing with the exit weighing of the same truck.
// Derived on demand from two persisted rows, never stored.
type Pair struct {
	Entry Weighing  `json:"entry"`
	Exit  *Weighing `json:"exit,omitempty"`
}

// IsComplete reports whether the exit leg exists.
func (p Pair) IsComplete() bool {
	return p.Exit != nil
}

// NetWeight is the billable quantity: the absolute difference between the two
// legs. Sign carries no meaning because a loaded truck may weigh in on either
// leg depending on direction of travel.
func (p Pair) NetWeight() float64 {
	if p.Exit == nil {
		return 0
	}
	return math.Abs(p.Exit.Weight - p.Entry.Weight)
}

// Duration is the time the truck spent on site between the two legs.
func (p Pair) Duration() time.Duration {
	if p.Exit == nil {
		return 0
	}
	return p.Exit.Timestamp.Sub(p.Entry.Timestamp)
}
