// Package config loads the server binary's settings: bind address,
// datastore connection string, and worker count. Precedence, lowest to
// highest: environment variables, an optional YAML file, explicit CLI
// flags.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the settings cmd/graphdb needs to start the server.
type Config struct {
	BindAddr         string `yaml:"bind_addr"`
	ConnectionString string `yaml:"connection_string"`
	Workers          int    `yaml:"workers"`
}

const (
	defaultBindAddr         = "127.0.0.1:8901"
	defaultConnectionString = "memory://"
	defaultWorkers          = 8
)

// LoadFromEnv reads GRAPHDB_BIND_ADDR, GRAPHDB_CONNECTION_STRING, and
// GRAPHDB_WORKERS, falling back to package defaults for anything unset.
func LoadFromEnv() *Config {
	return &Config{
		BindAddr:         getEnv("GRAPHDB_BIND_ADDR", defaultBindAddr),
		ConnectionString: getEnv("GRAPHDB_CONNECTION_STRING", defaultConnectionString),
		Workers:          getEnvInt("GRAPHDB_WORKERS", defaultWorkers),
	}
}

// MergeYAMLFile overrides c's fields with any present in the YAML file at
// path. A field left unset (empty string / zero) in the file leaves c's
// existing value untouched.
func (c *Config) MergeYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}
	if overlay.BindAddr != "" {
		c.BindAddr = overlay.BindAddr
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	return nil
}

// Validate reports a non-nil error if the config cannot be used to start
// a server: an empty bind address, an empty connection string, or a
// non-positive worker count.
func (c *Config) Validate() error {
	if c.BindAddr == "" {
		return fmt.Errorf("bind address must not be empty")
	}
	if c.ConnectionString == "" {
		return fmt.Errorf("connection string must not be empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.Workers)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
