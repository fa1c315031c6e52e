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

// Sample is a commented sample configuration file.
const Sample = `[general]
# Identifier of this instance, used in log labels.
id = "master"

# Address the HTTP API listens on.
listen_addr = ":8080"

# Global API request rate per second (0 disables limiting) and burst.
request_rate = 100
request_burst = 200

[log.console]
# Console logging level (debug|info|error).
level = "info"

# Encoding of the console logs (human|json).
format = "human"

[metrics]
# Dedicated address for /metrics. Empty serves metrics on the API listener.
prometheus = ""

[redis]
# Address, password and database of the backing registry.
addr = "127.0.0.1:6379"
password = ""
db = 0

[verify]
# Upper bound on a single challenge-response exchange.
timeout = "800ms"

# Listing lifetime granted per successful registration.
ttl = "30s"

[presence]
# Cadence of join/leave detection. Keep below the listing TTL.
diff_interval = "15s"

# Cadence of the population snapshot.
count_interval = "10m"

# Cadence of the roster summary.
summary_interval = "5m"
`
