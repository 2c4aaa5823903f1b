package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults for optional configuration keys.
const (
	DefaultIP                  = "0.0.0.0"
	DefaultMetricsPort         = 9000
	DefaultHealthCheckInterval = 30
	DefaultPeerTTL             = 300
	DefaultSearchTTL           = 3
	DefaultMaxFanout           = 3
	DefaultRequestsPerMinute   = 100
	DefaultDownloadsPerMinute  = 10
	DefaultStorageDir          = "data"
)

// RateLimit holds the per-client admission limits.
type RateLimit struct {
	RequestsPerMinute  int `json:"requests_per_minute"`
	DownloadsPerMinute int `json:"downloads_per_minute"`
}

// Config is the peer configuration document. It is read once at startup from
// the JSON file named by PEER_CONFIG. Unknown keys are ignored; missing
// required keys are fatal.
type Config struct {
	Name                string    `json:"name"`
	IP                  string    `json:"ip"`
	RestPort            int       `json:"rest_port"`
	GRPCPort            int       `json:"grpc_port"`
	MetricsPort         int       `json:"metrics_port"`
	SharedDir           string    `json:"shared_dir"`
	StorageDir          string    `json:"storage_dir"`
	FriendPrimary       string    `json:"friend_primary"`
	FriendSecondary     string    `json:"friend_secondary"`
	SelfURL             string    `json:"self_url"`
	HealthCheckInterval int       `json:"health_check_interval"`
	PeerTTL             int       `json:"peer_ttl"`
	SearchTTL           int       `json:"search_ttl"`
	MaxFanout           int       `json:"max_fanout"`
	RateLimit           RateLimit `json:"rate_limit"`
}

// Load reads and validates the configuration document at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{
		IP:                  DefaultIP,
		MetricsPort:         DefaultMetricsPort,
		StorageDir:          DefaultStorageDir,
		HealthCheckInterval: DefaultHealthCheckInterval,
		PeerTTL:             DefaultPeerTTL,
		SearchTTL:           DefaultSearchTTL,
		MaxFanout:           DefaultMaxFanout,
		RateLimit: RateLimit{
			RequestsPerMinute:  DefaultRequestsPerMinute,
			DownloadsPerMinute: DefaultDownloadsPerMinute,
		},
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("missing required key %q", "name")
	case c.RestPort == 0:
		return fmt.Errorf("missing required key %q", "rest_port")
	case c.GRPCPort == 0:
		return fmt.Errorf("missing required key %q", "grpc_port")
	case c.SharedDir == "":
		return fmt.Errorf("missing required key %q", "shared_dir")
	case c.SelfURL == "":
		return fmt.Errorf("missing required key %q", "self_url")
	}
	return nil
}

// SnapshotPath is the location of the durable peer-state snapshot.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.StorageDir, "peer_state.json")
}
