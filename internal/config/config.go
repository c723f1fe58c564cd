package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Exchange struct {
		RESTEndpoint     string   `yaml:"rest_endpoint"`
		WSEndpoint       string   `yaml:"ws_endpoint"`
		TimeoutMs        int      `yaml:"timeout_ms"`
		TickerCategories []string `yaml:"ticker_categories"`
	} `yaml:"exchange"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Simulation struct {
		DefaultStops    []float64 `yaml:"default_stops"`
		DefaultCategory string    `yaml:"default_category"`
	} `yaml:"simulation"`
}

func Default() *Config {
	var cfg Config
	cfg.Exchange.RESTEndpoint = "https://api.bybit.com"
	cfg.Exchange.WSEndpoint = "wss://stream.bybit.com/v5/public/linear"
	cfg.Exchange.TimeoutMs = 10000
	cfg.Exchange.TickerCategories = []string{"spot", "linear", "inverse"}
	cfg.Server.Port = 8080
	cfg.Logging.Level = "info"
	cfg.Simulation.DefaultStops = []float64{10, 15, 20}
	cfg.Simulation.DefaultCategory = "linear"
	return &cfg
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error. PORT in the environment overrides server.port.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	for _, p := range c.Simulation.DefaultStops {
		if p <= 0 {
			return fmt.Errorf("simulation.default_stops must be positive, got %v", p)
		}
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Exchange.TimeoutMs) * time.Millisecond
}
