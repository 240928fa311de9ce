// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer sources.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// ScaleConfig carries the physical link parameters for the weighbridge
// indicator. The byte framing itself is the driver's concern.
type ScaleConfig struct {
	// Driver selects the telemetry driver. Only "sim" ships in-tree; a
	// serial driver plugs in behind the same interface.
	Driver string `koanf:"driver"`

	Port     string `koanf:"port"`
	BaudRate int    `koanf:"baud_rate"`
	DataBits int    `koanf:"data_bits"`
	Parity   string `koanf:"parity"`
	StopBits int    `koanf:"stop_bits"`

	// ReadTimeoutMS bounds a single device read.
	ReadTimeoutMS int `koanf:"read_timeout_ms"`

	// PollIntervalMS is the continuous read cadence.
	PollIntervalMS int `koanf:"poll_interval_ms"`

	// RetryBackoffMS is the pause after a transient read failure.
	RetryBackoffMS int `koanf:"retry_backoff_ms"`

	// DisconnectWaitMS bounds how long Disconnect waits for the read loop
	// before force-closing the link.
	DisconnectWaitMS int `koanf:"disconnect_wait_ms"`

	// StabilityToleranceKg and StabilityDwellMS gate capture eligibility.
	StabilityToleranceKg float64 `koanf:"stability_tolerance_kg"`
	StabilityDwellMS     int     `koanf:"stability_dwell_ms"`
}

// SAPConfig carries the ERP boundary credentials and endpoint.
type SAPConfig struct {
	// Driver selects the gateway connector: "sim" or "odata".
	Driver string `koanf:"driver"`

	Host     string `koanf:"host"`
	SystemID string `koanf:"system_id"`
	Client   string `koanf:"client"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Locale   string `koanf:"locale"`

	// TimeoutMS bounds one submission round trip.
	TimeoutMS int `koanf:"timeout_ms"`
}

// SyncConfig controls the background reconciliation job.
type SyncConfig struct {
	// AutoSend enables scheduled submission of unsent weighings.
	AutoSend bool `koanf:"auto_send"`

	// Schedule is a cron spec, five fields.
	Schedule string `koanf:"schedule"`

	// BatchLimit caps rows drained per run.
	BatchLimit int `koanf:"batch_limit"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite ledger file.
	DBPath string `koanf:"db_path"`

	// HistoryLimit caps GET /weighings?limit.
	HistoryLimit int `koanf:"history_limit"`

	Scale ScaleConfig `koanf:"scale"`
	SAP   SAPConfig   `koanf:"sap"`
	Sync  SyncConfig  `koanf:"sync"`
}

// New creates a Config with defaults matching a single-operator station.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		Addr:         ":9090",
		DBPath:       "weighbridge.db",
		HistoryLimit: 100,
		Scale: ScaleConfig{
			Driver:               "sim",
			Port:                 "COM1",
			BaudRate:             9600,
			DataBits:             8,
			Parity:               "none",
			StopBits:             1,
			ReadTimeoutMS:        1000,
			PollIntervalMS:       500,
			RetryBackoffMS:       1000,
			DisconnectWaitMS:     2000,
			StabilityToleranceKg: 20,
			StabilityDwellMS:     2000,
		},
		SAP: SAPConfig{
			Driver:    "sim",
			Locale:    "EN",
			TimeoutMS: 15000,
		},
		Sync: SyncConfig{
			AutoSend:   false,
			Schedule:   "* * * * *",
			BatchLimit: 25,
		},
	}
}

// PollInterval returns the continuous read cadence as a duration.
func (s ScaleConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

// RetryBackoff returns the transient failure pause as a duration.
func (s ScaleConfig) RetryBackoff() time.Duration {
	return time.Duration(s.RetryBackoffMS) * time.Millisecond
}

// DisconnectWait returns the bounded disconnect wait as a duration.
func (s ScaleConfig) DisconnectWait() time.Duration {
	return time.Duration(s.DisconnectWaitMS) * time.Millisecond
}

// Timeout returns the SAP round-trip bound as a duration.
func (s SAPConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}
