// Package config loads YAML configuration for a discover-based registry.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for an etcdcoord-backed Registry.
type Config struct {
	// Endpoints lists the etcd cluster member addresses.
	Endpoints []string `yaml:"endpoints"`

	// DialTimeout bounds the initial connection attempt.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// MaxBlockingWorkers bounds the registry's blocking-worker pool.
	MaxBlockingWorkers int `yaml:"max_blocking_workers"`

	// TLS enables mutual TLS to the etcd cluster.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig mirrors etcdcoord.TLSConfig so config files don't need to
// import the etcdcoord package's types directly.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

const (
	defaultDialTimeout        = 5 * time.Second
	defaultMaxBlockingWorkers = 16
)

// Load reads and parses a YAML config file at path, applying defaults for
// any field left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyDefaults()

	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("config: endpoints cannot be empty")
	}

	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.MaxBlockingWorkers <= 0 {
		cfg.MaxBlockingWorkers = defaultMaxBlockingWorkers
	}
}
