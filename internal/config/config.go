// Package config loads the core's runtime options from a YAML file (spec
// §6), with defaults matching the original prototype's recognized
// options.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExitCode enumerates the process exit codes the demo CLI surfaces for
// configuration and startup failures (spec §6).
type ExitCode int

const (
	ExitOK               ExitCode = 0
	ExitConfigError      ExitCode = 2
	ExitCardUnavailable  ExitCode = 3
	ExitTransportError   ExitCode = 4
)

// Config mirrors the recognized options from spec §6.
type Config struct {
	UDPPort                 int     `yaml:"udp_port"`
	ListenIP                string  `yaml:"listen_ip"`
	HandshakeTimeoutSeconds float64 `yaml:"handshake_timeout_seconds"`
	MessageRetrySeconds     float64 `yaml:"message_retry_seconds"`
	IdleSuspendSeconds      float64 `yaml:"idle_suspend_seconds"`
	PKCSModulePath          string  `yaml:"pkcs_module_path"`
	DiscoveryServiceName    string  `yaml:"discovery_service_name"`
	DBPath                  string  `yaml:"db_path"`
	LogPath                 string  `yaml:"log_path"`
	RootCAPath              string  `yaml:"root_ca_path"`
	Debug                   bool    `yaml:"debug"`
}

// Default returns the configuration the original prototype ships with
// when no file is present.
func Default() Config {
	return Config{
		UDPPort:                 6666,
		ListenIP:                "0.0.0.0",
		HandshakeTimeoutSeconds: 3.0,
		MessageRetrySeconds:     2.0,
		IdleSuspendSeconds:      300,
		DiscoveryServiceName:    "_cardlink._udp",
		DBPath:                  "./cardlink-data",
		LogPath:                 "./cardlink.log",
		RootCAPath:              "./cardlink-data/root_ca.pem",
	}
}

// Load reads path as strict YAML over Default(), rejecting any key it
// does not recognize so a typo in the config file fails loudly instead
// of silently falling back to a default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
