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

package log

// Config is the configuration for the logger.
type Config struct {
	// Console is the configuration for the console logging.
	Console ConsoleConfig `toml:"console,omitempty"`
}

// ConsoleConfig is the config for the console logger.
type ConsoleConfig struct {
	// Level of console logging (defaults to info).
	Level string `toml:"level,omitempty"`
	// Format of the console logging, either "human" or "json" (defaults to
	// human).
	Format string `toml:"format,omitempty"`
}

// InitDefaults populates unset fields in cfg to their default values.
func (c *Config) InitDefaults() {
	if c.Console.Level == "" {
		c.Console.Level = "info"
	}
	if c.Console.Format == "" {
		c.Console.Format = "human"
	}
}

// Validate checks that the logging level is valid.
func (c *Config) Validate() error {
	c.InitDefaults()
	_, err := parseLevel(c.Console.Level)
	return err
}
