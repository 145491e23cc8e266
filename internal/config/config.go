package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Monitor   MonitorConfig   `yaml:"monitor"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Tires     TiresConfig     `yaml:"tires"`
	Agent     AgentConfig     `yaml:"agent"`
	Store     StoreConfig     `yaml:"store"`
}

type MonitorConfig struct {
	// PollInterval is the cadence of the pit/tire tracking loop.
	PollInterval time.Duration `yaml:"poll_interval"`
	// TelemetryGrace is how long total telemetry loss is tolerated
	// before the process gives up and exits.
	TelemetryGrace time.Duration `yaml:"telemetry_grace"`
}

type TelemetryConfig struct {
	// BridgeURL is the websocket endpoint of the shared-memory bridge.
	BridgeURL string `yaml:"bridge_url"`
	// PollTimeout bounds a single poll against the source.
	PollTimeout time.Duration `yaml:"poll_timeout"`
	// Freshness is the maximum age of a bridge frame before it is
	// treated as unavailable.
	Freshness time.Duration `yaml:"freshness"`
}

type TiresConfig struct {
	// WearResetThreshold is the wear delta between incoming and
	// outgoing tires beyond which a corner counts as changed.
	WearResetThreshold float64 `yaml:"wear_reset_threshold"`
}

type AgentConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	// StaleAfter is the window after which dead trackers' agent
	// records are swept during cleanup.
	StaleAfter time.Duration `yaml:"stale_after"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

func Default() *Config {
	return &Config{
		Monitor: MonitorConfig{
			PollInterval:   time.Second,
			TelemetryGrace: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			BridgeURL:   "ws://localhost:6397/telemetry",
			PollTimeout: 500 * time.Millisecond,
			Freshness:   2 * time.Second,
		},
		Tires: TiresConfig{
			WearResetThreshold: 0.05,
		},
		Agent: AgentConfig{
			HeartbeatInterval: 30 * time.Second,
			StaleAfter:        2 * time.Minute,
		},
		Store: StoreConfig{
			Path: "pitwall.db",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error; defaults apply unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
