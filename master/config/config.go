// Copyright 2026 R5Valkyrie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config describes the configuration of the master server.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/r5valkyrie/master-server-sub000/master/registration"
	"github.com/r5valkyrie/master-server-sub000/pkg/log"
	"github.com/r5valkyrie/master-server-sub000/pkg/private/serrors"
)

const (
	// DefaultListenAddr is the default address of the HTTP API.
	DefaultListenAddr = ":8080"
	// DefaultRedisAddr is the default address of the backing registry.
	DefaultRedisAddr = "127.0.0.1:6379"
	// DefaultRequestRate is the default global API request rate per second.
	DefaultRequestRate = 100
	// DefaultRequestBurst is the default global API request burst.
	DefaultRequestBurst = 200
	// DefaultDiffInterval is the default cadence of the presence diff task.
	// It must stay below the listing TTL or leaves are detected late.
	DefaultDiffInterval = 15 * time.Second
	// DefaultCountInterval is the default cadence of the population snapshot.
	DefaultCountInterval = 10 * time.Minute
	// DefaultSummaryInterval is the default cadence of the roster summary.
	DefaultSummaryInterval = 5 * time.Minute
)

// Config is the master server configuration.
type Config struct {
	General  General    `toml:"general,omitempty"`
	Logging  log.Config `toml:"log,omitempty"`
	Metrics  Metrics    `toml:"metrics,omitempty"`
	Redis    Redis      `toml:"redis,omitempty"`
	Verify   Verify     `toml:"verify,omitempty"`
	Presence Presence   `toml:"presence,omitempty"`
}

// General holds the top level configuration.
type General struct {
	// ID is the identifier of this instance, used in log labels.
	ID string `toml:"id,omitempty"`
	// ListenAddr is the address the HTTP API listens on.
	ListenAddr string `toml:"listen_addr,omitempty"`
	// RequestRate is the global API request rate per second. A value of 0
	// disables rate limiting.
	RequestRate int `toml:"request_rate,omitempty"`
	// RequestBurst is the global API request burst.
	RequestBurst int `toml:"request_burst,omitempty"`
}

// Metrics configures the prometheus endpoint.
type Metrics struct {
	// Addr is the address to expose /metrics on. Empty serves metrics on
	// the API listener instead of a dedicated one.
	Addr string `toml:"prometheus,omitempty"`
}

// Redis configures the connection to the backing registry.
type Redis struct {
	Addr     string `toml:"addr,omitempty"`
	Password string `toml:"password,omitempty"`
	DB       int    `toml:"db,omitempty"`
}

// Verify configures challenge-response verification and listing lifetime.
type Verify struct {
	// Timeout bounds a single verification exchange.
	Timeout DurWrap `toml:"timeout,omitempty"`
	// TTL is the listing lifetime granted per successful registration.
	TTL DurWrap `toml:"ttl,omitempty"`
}

// Presence configures the cadences of the periodic presence tasks.
type Presence struct {
	DiffInterval    DurWrap `toml:"diff_interval,omitempty"`
	CountInterval   DurWrap `toml:"count_interval,omitempty"`
	SummaryInterval DurWrap `toml:"summary_interval,omitempty"`
}

// InitDefaults populates unset fields with their default values.
func (cfg *Config) InitDefaults() {
	if cfg.General.ID == "" {
		cfg.General.ID = "master"
	}
	if cfg.General.ListenAddr == "" {
		cfg.General.ListenAddr = DefaultListenAddr
	}
	if cfg.General.RequestRate == 0 {
		cfg.General.RequestRate = DefaultRequestRate
	}
	if cfg.General.RequestBurst == 0 {
		cfg.General.RequestBurst = DefaultRequestBurst
	}
	cfg.Logging.InitDefaults()
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Verify.Timeout.Duration == 0 {
		cfg.Verify.Timeout.Duration = registration.DefaultVerifyTimeout
	}
	if cfg.Verify.TTL.Duration == 0 {
		cfg.Verify.TTL.Duration = registration.DefaultListingTTL
	}
	if cfg.Presence.DiffInterval.Duration == 0 {
		cfg.Presence.DiffInterval.Duration = DefaultDiffInterval
	}
	if cfg.Presence.CountInterval.Duration == 0 {
		cfg.Presence.CountInterval.Duration = DefaultCountInterval
	}
	if cfg.Presence.SummaryInterval.Duration == 0 {
		cfg.Presence.SummaryInterval.Duration = DefaultSummaryInterval
	}
}

// Validate checks the configuration for consistency.
func (cfg *Config) Validate() error {
	cfg.InitDefaults()
	if err := cfg.Logging.Validate(); err != nil {
		return serrors.WrapStr("validating logging config", err)
	}
	if cfg.General.RequestRate < 0 {
		return serrors.New("negative request rate", "request_rate", cfg.General.RequestRate)
	}
	if cfg.Verify.Timeout.Duration <= 0 {
		return serrors.New("non-positive verify timeout", "timeout", cfg.Verify.Timeout)
	}
	if cfg.Verify.TTL.Duration <= cfg.Verify.Timeout.Duration {
		return serrors.New("listing TTL must exceed the verify timeout",
			"ttl", cfg.Verify.TTL, "timeout", cfg.Verify.Timeout)
	}
	for _, iv := range []struct {
		name string
		d    time.Duration
	}{
		{"diff_interval", cfg.Presence.DiffInterval.Duration},
		{"count_interval", cfg.Presence.CountInterval.Duration},
		{"summary_interval", cfg.Presence.SummaryInterval.Duration},
	} {
		if iv.d <= 0 {
			return serrors.New("non-positive presence interval", "interval", iv.name)
		}
	}
	return nil
}

// Load reads the configuration from the TOML file at path and validates it.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, serrors.WrapStr("reading config file", err, "file", path)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, serrors.WrapStr("parsing config file", err, "file", path)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, serrors.WrapStr("validating config", err, "file", path)
	}
	return cfg, nil
}
