// Package config defines the canonical, JSON-serializable configuration
// model for the extraction service. It is intentionally small, explicit, and
// decoded by the standard library so that service configs can be loaded from
// disk and passed through the program without additional glue code.
//
// Example (trimmed):
//
//	{
//	  "server":  { "addr": ":5101" },
//	  "gateway": { "url": "http://sapgw:8001/rfc", "timeout_seconds": 30 },
//	  "extract": { "buffer_size": 400, "window_size": 10000 },
//	  "sink":    { "kind": "postgres", "dsn": "postgresql://...", "auto_create_table": true }
//	}
package config

import (
	"encoding/json"
	"io"
	"os"
)

// Config is the top-level object decoded from a service config file.
type Config struct {
	Server  Server  `json:"server"`
	Gateway Gateway `json:"gateway"`
	Extract Extract `json:"extract"`
	Sink    Sink    `json:"sink"`
	Metrics Metrics `json:"metrics"`
}

// Server configures the HTTP listener.
type Server struct {
	// Addr is the listen address, e.g. ":5101".
	Addr string `json:"addr"`
}

// Gateway carries the transport defaults applied to every remote connection.
// Credentials arrive per-request; they are never stored in the config file.
type Gateway struct {
	// URL is an optional default gateway base URL used when a request omits
	// its own.
	URL string `json:"url,omitempty"`

	// TimeoutSeconds is the per-request timeout. 0 means the client default.
	TimeoutSeconds int `json:"timeout_seconds"`

	// MaxRetries is the number of transport-level retry attempts after the
	// initial request.
	MaxRetries int `json:"max_retries"`

	// InsecureSkipVerify disables TLS verification towards the gateway.
	InsecureSkipVerify bool `json:"insecure_skip_verify"`
}

// Extract tunes the chunk-planning and paging defaults.
type Extract struct {
	// BufferSize is the default per-call byte-width budget for column
	// groups. The remote read function rejects wider requests.
	BufferSize int `json:"buffer_size"`

	// WindowSize is the default number of rows fetched per row window when
	// a read request does not page explicitly.
	WindowSize int `json:"window_size"`

	// Delimiter separates cells in the raw rows. Must not appear in data.
	Delimiter string `json:"delimiter"`

	// BatchSize is the number of rows per sink write.
	BatchSize int `json:"batch_size"`
}

// Sink selects the default persistence backend. A read request may override
// the target per call.
type Sink struct {
	// Kind selects the backend: "postgres", "mysql", "mssql", or "sqlite".
	// Empty disables the default sink (inline-only reads).
	Kind string `json:"kind"`

	// DSN is the backend connection string.
	DSN string `json:"dsn"`

	// AutoCreateTable creates missing target tables as all-text columns.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "pushgateway", "datadog", or "none"/"" (disabled).
	Backend string `json:"backend"`

	// PushgatewayURL is the Prometheus Pushgateway base URL.
	PushgatewayURL string `json:"pushgateway_url"`

	// StatsdAddr is the DogStatsD address for the datadog backend.
	StatsdAddr string `json:"statsd_addr"`

	// Job is the metrics job name; defaults to "saptab".
	Job string `json:"job"`
}

// Defaults mirror the original service's behavior.
const (
	DefaultBufferSize = 400
	DefaultWindowSize = 10000
	DefaultDelimiter  = "|"
	DefaultBatchSize  = 5000
	DefaultAddr       = ":5101"
)

// Load reads and decodes a config file, then fills defaults for omitted
// values. Validation is a separate step (Validate) so callers can surface
// all issues at once.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode decodes a config from r and fills defaults for omitted values.
func Decode(r io.Reader) (Config, error) {
	var c Config
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return Config{}, err
	}
	c.fillDefaults()
	return c, nil
}

func (c *Config) fillDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Extract.BufferSize == 0 {
		c.Extract.BufferSize = DefaultBufferSize
	}
	if c.Extract.WindowSize == 0 {
		c.Extract.WindowSize = DefaultWindowSize
	}
	if c.Extract.Delimiter == "" {
		c.Extract.Delimiter = DefaultDelimiter
	}
	if c.Extract.BatchSize == 0 {
		c.Extract.BatchSize = DefaultBatchSize
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "saptab"
	}
}
