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

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r5valkyrie/master-server-sub000/master/config"
)

func TestDefaults(t *testing.T) {
	var cfg config.Config
	cfg.InitDefaults()
	assert.Equal(t, "master", cfg.General.ID)
	assert.Equal(t, config.DefaultListenAddr, cfg.General.ListenAddr)
	assert.Equal(t, config.DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, 800*time.Millisecond, cfg.Verify.Timeout.Duration)
	assert.Equal(t, 30*time.Second, cfg.Verify.TTL.Duration)
	assert.Equal(t, config.DefaultDiffInterval, cfg.Presence.DiffInterval.Duration)
	assert.NoError(t, cfg.Validate())
}

func TestSampleParses(t *testing.T) {
	file := filepath.Join(t.TempDir(), "master.toml")
	require.NoError(t, os.WriteFile(file, []byte(config.Sample), 0644))

	cfg, err := config.Load(file)
	require.NoError(t, err)

	// The sample spells out the defaults.
	var want config.Config
	want.InitDefaults()
	assert.Equal(t, want, cfg)
}

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "master.toml")
	raw := `
[general]
listen_addr = ":9090"

[redis]
addr = "redis.example.com:6379"
db = 3

[verify]
timeout = "250ms"
ttl = "45s"
`
	require.NoError(t, os.WriteFile(file, []byte(raw), 0644))

	cfg, err := config.Load(file)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.General.ListenAddr)
	assert.Equal(t, "redis.example.com:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 250*time.Millisecond, cfg.Verify.Timeout.Duration)
	assert.Equal(t, 45*time.Second, cfg.Verify.TTL.Duration)
	// Untouched sections keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Console.Level)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	var want config.Config
	want.InitDefaults()
	assert.Equal(t, want, cfg)
}

func TestValidateRejects(t *testing.T) {
	testCases := map[string]func(cfg *config.Config){
		"ttl below timeout": func(cfg *config.Config) {
			cfg.Verify.Timeout.Duration = time.Second
			cfg.Verify.TTL.Duration = 500 * time.Millisecond
		},
		"negative rate": func(cfg *config.Config) {
			cfg.General.RequestRate = -1
		},
		"negative interval": func(cfg *config.Config) {
			cfg.Presence.DiffInterval.Duration = -time.Second
		},
		"bad log level": func(cfg *config.Config) {
			cfg.Logging.Console.Level = "verbose"
		},
	}
	for name, mutate := range testCases {
		t.Run(name, func(t *testing.T) {
			var cfg config.Config
			cfg.InitDefaults()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
