package config

import (
	"strings"
	"testing"
)

// These tests validate that the service config JSON decodes into the
// intended struct graph and that defaults are applied. We parse from JSON
// strings to keep tests hermetic and focused on the API surface rather than
// filesystem wiring.

func TestDecode_FullConfig(t *testing.T) {
	t.Parallel()

	const js = `{
	  "server":  { "addr": ":8080" },
	  "gateway": { "url": "http://sapgw:8001/rfc", "timeout_seconds": 10, "max_retries": 2 },
	  "extract": { "buffer_size": 512, "window_size": 2500, "delimiter": ";", "batch_size": 100 },
	  "sink":    { "kind": "postgres", "dsn": "postgresql://u:p@h:5432/db", "auto_create_table": true },
	  "metrics": { "backend": "pushgateway", "pushgateway_url": "http://pgw:9091", "job": "extract_job" }
	}`

	c, err := Decode(strings.NewReader(js))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("server.addr = %q", c.Server.Addr)
	}
	if c.Gateway.URL != "http://sapgw:8001/rfc" || c.Gateway.TimeoutSeconds != 10 || c.Gateway.MaxRetries != 2 {
		t.Fatalf("gateway = %+v", c.Gateway)
	}
	if c.Extract.BufferSize != 512 || c.Extract.WindowSize != 2500 || c.Extract.Delimiter != ";" {
		t.Fatalf("extract = %+v", c.Extract)
	}
	if c.Sink.Kind != "postgres" || !c.Sink.AutoCreateTable {
		t.Fatalf("sink = %+v", c.Sink)
	}
	if c.Metrics.Backend != "pushgateway" || c.Metrics.Job != "extract_job" {
		t.Fatalf("metrics = %+v", c.Metrics)
	}
}

func TestDecode_AppliesDefaults(t *testing.T) {
	t.Parallel()

	c, err := Decode(strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Server.Addr != DefaultAddr {
		t.Fatalf("server.addr = %q, want %q", c.Server.Addr, DefaultAddr)
	}
	if c.Extract.BufferSize != DefaultBufferSize {
		t.Fatalf("buffer_size = %d, want %d", c.Extract.BufferSize, DefaultBufferSize)
	}
	if c.Extract.WindowSize != DefaultWindowSize {
		t.Fatalf("window_size = %d, want %d", c.Extract.WindowSize, DefaultWindowSize)
	}
	if c.Extract.Delimiter != DefaultDelimiter {
		t.Fatalf("delimiter = %q, want %q", c.Extract.Delimiter, DefaultDelimiter)
	}
	if c.Metrics.Job != "saptab" {
		t.Fatalf("metrics.job = %q, want saptab", c.Metrics.Job)
	}
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	if _, err := Decode(strings.NewReader(`{"server": `)); err == nil {
		t.Fatalf("Decode err = nil, want parse error")
	}
}

func findIssue(issues []Issue, path string) *Issue {
	for i := range issues {
		if issues[i].Path == path {
			return &issues[i]
		}
	}
	return nil
}

func TestValidate_CleanConfig(t *testing.T) {
	t.Parallel()

	c, err := Decode(strings.NewReader(`{"sink":{"kind":"sqlite","dsn":"extract.db"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if issues := Validate(c); len(issues) != 0 {
		t.Fatalf("Validate = %v, want no issues", issues)
	}
}

func TestValidate_SinkRequiresDSN(t *testing.T) {
	t.Parallel()

	c, _ := Decode(strings.NewReader(`{"sink":{"kind":"postgres"}}`))
	issues := Validate(c)
	iss := findIssue(issues, "sink.dsn")
	if iss == nil || iss.Severity != SeverityError {
		t.Fatalf("issues = %v, want sink.dsn error", issues)
	}
	if !HasErrors(issues) {
		t.Fatalf("HasErrors = false, want true")
	}
}

func TestValidate_UnknownSinkKindIsWarning(t *testing.T) {
	t.Parallel()

	c, _ := Decode(strings.NewReader(`{"sink":{"kind":"oracle","dsn":"x"}}`))
	issues := Validate(c)
	iss := findIssue(issues, "sink.kind")
	if iss == nil || iss.Severity != SeverityWarning {
		t.Fatalf("issues = %v, want sink.kind warning", issues)
	}
	if HasErrors(issues) {
		t.Fatalf("HasErrors = true, want false (warnings only)")
	}
}

func TestValidate_MetricsBackends(t *testing.T) {
	t.Parallel()

	c, _ := Decode(strings.NewReader(`{"metrics":{"backend":"pushgateway"}}`))
	if iss := findIssue(Validate(c), "metrics.pushgateway_url"); iss == nil {
		t.Fatalf("missing pushgateway_url error")
	}

	c, _ = Decode(strings.NewReader(`{"metrics":{"backend":"datadog"}}`))
	if iss := findIssue(Validate(c), "metrics.statsd_addr"); iss == nil {
		t.Fatalf("missing statsd_addr error")
	}

	c, _ = Decode(strings.NewReader(`{"metrics":{"backend":"graphite"}}`))
	iss := findIssue(Validate(c), "metrics.backend")
	if iss == nil || iss.Severity != SeverityWarning {
		t.Fatalf("want unknown-backend warning, got %v", iss)
	}
}

func TestValidate_ExtractBounds(t *testing.T) {
	t.Parallel()

	c, _ := Decode(strings.NewReader(`{"extract":{"buffer_size":-1,"delimiter":"||"}}`))
	issues := Validate(c)
	if findIssue(issues, "extract.buffer_size") == nil {
		t.Fatalf("missing buffer_size error: %v", issues)
	}
	if findIssue(issues, "extract.delimiter") == nil {
		t.Fatalf("missing delimiter error: %v", issues)
	}
}

func TestIssue_Error(t *testing.T) {
	t.Parallel()

	iss := Issue{SeverityError, "sink.dsn", "DSN must not be empty"}
	want := "error at sink.dsn: DSN must not be empty"
	if iss.Error() != want {
		t.Fatalf("Error() = %q, want %q", iss.Error(), want)
	}
}
