package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the optional YAML config file. Environment variables in
// cmd/main.go override its values.
type ServerConfig struct {
	Version int `yaml:"version"`
	Server  struct {
		Port       int     `yaml:"port"`
		DBPath     string  `yaml:"db_path"`
		AuthSecret string  `yaml:"auth_secret"`
		RateLimit  float64 `yaml:"rate_limit"`
	} `yaml:"server"`
}

// Port returns the configured port, defaulting to 8080 if not set.
func (c *ServerConfig) Port() int {
	if c.Server.Port == 0 {
		return 8080
	}
	return c.Server.Port
}

// DBPath returns the configured database path, defaulting to storyloom.db.
func (c *ServerConfig) DBPath() string {
	if c.Server.DBPath == "" {
		return "storyloom.db"
	}
	return c.Server.DBPath
}

// RateLimit returns the per-IP requests-per-second limit.
func (c *ServerConfig) RateLimit() float64 {
	if c.Server.RateLimit == 0 {
		return 100
	}
	return c.Server.RateLimit
}

// Load reads a config file. A missing path returns an empty config so the
// server can run on defaults and environment variables alone.
func Load(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.Version = 1
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d", cfg.Version)
	}

	return &cfg, nil
}
