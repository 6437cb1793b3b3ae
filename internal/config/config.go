// Package config loads pagegraph settings from an optional YAML file, then
// applies environment and flag overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hanpama/pagegraph/internal/httptp"
	"github.com/hanpama/pagegraph/internal/onchain"
)

// APIKeyEnv names the environment variable holding the Airstack API key.
const APIKeyEnv = "AIRSTACK_API_KEY"

// ErrNoAPIKey is returned by Validate when no API key was configured.
var ErrNoAPIKey = errors.New("config: missing API key (set " + APIKeyEnv + " or api_key)")

type Config struct {
	// Endpoint is the GraphQL endpoint queries are posted to.
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key,omitempty"`
	// Timeout bounds every round trip.
	Timeout time.Duration `yaml:"timeout"`

	// Concurrent collects the onchain categories in parallel.
	Concurrent bool `yaml:"concurrent,omitempty"`

	// Weights override individual default scoring weights.
	Weights map[string]float64 `yaml:"weights,omitempty"`

	Server ServerConfig `yaml:"server"`
	Otel   OtelConfig   `yaml:"otel"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	Pretty       bool          `yaml:"pretty,omitempty"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes,omitempty"`
	CORSOrigins  []string      `yaml:"cors_origins,omitempty"`
}

type OtelConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Service  string `yaml:"service"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Endpoint: httptp.DefaultEndpoint,
		Timeout:  60 * time.Second,
		Server: ServerConfig{
			Addr:    ":8080",
			Timeout: 2 * time.Minute,
		},
		Otel: OtelConfig{Service: "pagegraph"},
	}
}

// Load reads the YAML file at path over the defaults. An empty path yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv fills the API key from the environment when the file left it
// empty.
func (c *Config) ApplyEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(APIKeyEnv)
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.Endpoint == "" {
		return errors.New("config: endpoint is empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: negative timeout %s", c.Timeout)
	}
	return nil
}

// ScoreWeights returns the default weights with c.Weights applied.
func (c *Config) ScoreWeights() onchain.Weights {
	w := onchain.DefaultWeights()
	for k, v := range c.Weights {
		w[k] = v
	}
	return w
}

// TransportOptions returns the httptp options described by c.
func (c *Config) TransportOptions() []httptp.Option {
	return []httptp.Option{
		httptp.WithEndpoint(c.Endpoint),
		httptp.WithAPIKey(c.APIKey),
		httptp.WithTimeout(c.Timeout),
	}
}
