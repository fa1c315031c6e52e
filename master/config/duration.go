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

package config

import (
	"encoding"
	"time"
)

var _ (encoding.TextUnmarshaler) = (*DurWrap)(nil)
var _ (encoding.TextMarshaler) = DurWrap{}

// DurWrap is a wrapper to enable marshalling and unmarshalling of durations
// in TOML configuration values.
type DurWrap struct {
	time.Duration
}

func (d *DurWrap) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d DurWrap) MarshalText() (text []byte, err error) {
	return []byte(d.Duration.String()), nil
}

func (d DurWrap) String() string {
	return d.Duration.String()
}
