package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every tunable of both roles. Defaults match the values
// the sculpture has been running with; environment variables (FACET_*)
// override them, and command-line flags in main override both.
type Config struct {
	// Identification
	NodeID string `env:"FACET_NODE_ID" envDefault:"facet-1"`

	// Network
	BindAddr        string        `env:"FACET_BIND_ADDR" envDefault:"0.0.0.0"`
	Port            int           `env:"FACET_PORT" envDefault:"8266"`
	CoordinatorAddr string        `env:"FACET_COORDINATOR_ADDR" envDefault:"192.168.4.1:8266"`
	RequestTimeout  time.Duration `env:"FACET_REQUEST_TIMEOUT" envDefault:"10s"`
	AckTimeout      time.Duration `env:"FACET_ACK_TIMEOUT" envDefault:"5s"`

	// Peer discovery (optional; static CoordinatorAddr is the default path)
	DiscoveryPort  int      `env:"FACET_DISCOVERY_PORT" envDefault:"7946"`
	DiscoverySeeds []string `env:"FACET_DISCOVERY_SEEDS" envSeparator:","`

	// Sensors
	SensorCount    int           `env:"FACET_SENSOR_COUNT" envDefault:"5"`
	SensorPoll     time.Duration `env:"FACET_SENSOR_POLL" envDefault:"100ms"`
	ReinitInterval time.Duration `env:"FACET_REINIT_INTERVAL" envDefault:"20m"`
	DistanceOffset int           `env:"FACET_DISTANCE_OFFSET" envDefault:"50"`
	HotThreshold   int           `env:"FACET_HOT_THRESHOLD" envDefault:"1000"`
	TempStepUp     int           `env:"FACET_TEMP_STEP_UP" envDefault:"10"`
	TempStepDown   int           `env:"FACET_TEMP_STEP_DOWN" envDefault:"2"`
	RiseThreshold  int           `env:"FACET_RISE_THRESHOLD" envDefault:"100"`
	HistoryWindow  time.Duration `env:"FACET_HISTORY_WINDOW" envDefault:"5s"`
	LockCooldown   time.Duration `env:"FACET_LOCK_COOLDOWN" envDefault:"5s"`

	// Scheduling
	SwitchPoll  time.Duration `env:"FACET_SWITCH_POLL" envDefault:"50ms"`
	QueryPoll   time.Duration `env:"FACET_QUERY_POLL" envDefault:"1s"`
	ForceFile   string        `env:"FACET_FORCE_FILE" envDefault:"force_animation.txt"`
	ShapeMarker string        `env:"FACET_SHAPE_MARKER" envDefault:"shape.txt"`
	ShapeDir    string        `env:"FACET_SHAPE_DIR" envDefault:"shapes"`

	// Rotation policy (coordinator role)
	RotationInterval time.Duration `env:"FACET_ROTATION_INTERVAL" envDefault:"60s"`
	LockWindow       time.Duration `env:"FACET_LOCK_WINDOW" envDefault:"10s"`
	MaxLockExtension time.Duration `env:"FACET_MAX_LOCK_EXTENSION" envDefault:"60s"`

	// Watchdog: unconditional restart after this much uptime
	RestartAfter time.Duration `env:"FACET_RESTART_AFTER" envDefault:"30m"`

	Debug bool `env:"FACET_DEBUG" envDefault:"false"`
}

// Load parses the environment on top of the defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without consulting the
// environment; tests use it as a baseline.
func Default() *Config {
	return &Config{
		NodeID:           "facet-1",
		BindAddr:         "0.0.0.0",
		Port:             8266,
		CoordinatorAddr:  "192.168.4.1:8266",
		RequestTimeout:   10 * time.Second,
		AckTimeout:       5 * time.Second,
		DiscoveryPort:    7946,
		SensorCount:      5,
		SensorPoll:       100 * time.Millisecond,
		ReinitInterval:   20 * time.Minute,
		DistanceOffset:   50,
		HotThreshold:     1000,
		TempStepUp:       10,
		TempStepDown:     2,
		RiseThreshold:    100,
		HistoryWindow:    5 * time.Second,
		LockCooldown:     5 * time.Second,
		SwitchPoll:       50 * time.Millisecond,
		QueryPoll:        time.Second,
		ForceFile:        "force_animation.txt",
		ShapeMarker:      "shape.txt",
		ShapeDir:         "shapes",
		RotationInterval: 60 * time.Second,
		LockWindow:       10 * time.Second,
		MaxLockExtension: 60 * time.Second,
		RestartAfter:     30 * time.Minute,
	}
}

// HistoryLength converts the trailing history window into the ring-buffer
// capacity used per sensor: window divided by the poll interval.
func (c *Config) HistoryLength() int {
	if c.SensorPoll <= 0 {
		return 1
	}
	n := int(c.HistoryWindow / c.SensorPoll)
	if n < 1 {
		n = 1
	}
	return n
}
