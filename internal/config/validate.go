// This file adds a lightweight linter/validator for Config values. It
// performs static checks over a decoded Config and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be
	// surfaced to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config (e.g. "sink.kind"); Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// knownSinkKinds are the backends compiled into the service binary through
// internal/storage/all.
var knownSinkKinds = map[string]bool{
	"postgres": true,
	"mysql":    true,
	"mssql":    true,
	"sqlite":   true,
}

// Validate performs static validation of a Config. It does not mutate the
// config; it returns a slice of Issue values and lets the caller decide
// whether warnings are fatal.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Server.Addr) == "" {
		issues = append(issues, Issue{SeverityError, "server.addr", "listen address must not be empty"})
	}

	if c.Gateway.TimeoutSeconds < 0 {
		issues = append(issues, Issue{SeverityError, "gateway.timeout_seconds", "timeout must not be negative"})
	}
	if c.Gateway.MaxRetries < 0 {
		issues = append(issues, Issue{SeverityError, "gateway.max_retries", "retries must not be negative"})
	}
	if c.Gateway.InsecureSkipVerify {
		issues = append(issues, Issue{SeverityWarning, "gateway.insecure_skip_verify", "TLS verification is disabled"})
	}

	if c.Extract.BufferSize <= 0 {
		issues = append(issues, Issue{SeverityError, "extract.buffer_size", "byte-width budget must be positive"})
	}
	if c.Extract.WindowSize < 0 {
		issues = append(issues, Issue{SeverityError, "extract.window_size", "window size must not be negative"})
	}
	if len(c.Extract.Delimiter) != 1 {
		issues = append(issues, Issue{SeverityError, "extract.delimiter", "delimiter must be a single character"})
	}
	if c.Extract.BatchSize <= 0 {
		issues = append(issues, Issue{SeverityError, "extract.batch_size", "sink batch size must be positive"})
	}

	issues = append(issues, validateSink(c.Sink)...)
	issues = append(issues, validateMetrics(c.Metrics)...)

	return issues
}

func validateSink(s Sink) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		// No default sink is a valid deployment: reads return data inline.
		return issues
	}
	if !knownSinkKinds[s.Kind] {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "sink.kind",
			Message:  fmt.Sprintf("unknown sink kind %q; known kinds: postgres, mysql, mssql, sqlite", s.Kind),
		})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "sink.dsn", "DSN must not be empty when a sink kind is set"})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "URL must not be empty for the pushgateway backend"})
		}
	case "datadog":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.statsd_addr", "address must not be empty for the datadog backend"})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", m.Backend),
		})
	}
	return issues
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
