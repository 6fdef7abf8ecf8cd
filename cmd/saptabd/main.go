package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"saptab/internal/config"
	"saptab/internal/metrics"
	"saptab/internal/metrics/datadog"
	"saptab/internal/metrics/prompush"
	"saptab/internal/server"

	// register all sink backends with the storage factory.
	// config picks which to use but support for all of them is built in.
	_ "saptab/internal/storage/all"
)

// main is the entry point for the extraction service. It loads the service
// config, optionally initializes a metrics backend, and serves HTTP.
func main() {
	var (
		cfgPath           string
		addrFlg           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/saptab.json", "service config JSON path")
	flag.StringVar(&addrFlg, "addr", "", "listen address (overrides config)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	if addrFlg != "" {
		cfg.Server.Addr = addrFlg
	}

	// Decide metrics backend: flag → env → config.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	if backendName == "" {
		backendName = cfg.Metrics.Backend
	}
	switch backendName {
	case "pushgateway":
		// Decide Pushgateway URL: flag → env → config.
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = cfg.Metrics.PushgatewayURL
		}

		b, err := prompush.NewBackend(cfg.Metrics.Job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
		} else {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, cfg.Metrics.Job)
			metrics.SetBackend(b)
		}

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:      cfg.Metrics.StatsdAddr,
			Namespace: cfg.Metrics.Job + ".",
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: addr=%v, backend=%v", cfg.Metrics.StatsdAddr, backendName)
			metrics.SetBackend(b)
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	runID := uuid.NewString()
	log.Printf("saptabd: run=%s addr=%s gateway=%s sink=%s",
		runID, cfg.Server.Addr, cfg.Gateway.URL, cfg.Sink.Kind)
	if *verbose {
		log.Printf("saptabd: buffer_size=%d window_size=%d batch_size=%d delimiter=%q",
			cfg.Extract.BufferSize, cfg.Extract.WindowSize, cfg.Extract.BatchSize, cfg.Extract.Delimiter)
	}

	// ListenAndServe only returns on failure. Flush before exiting so a
	// push-style backend doesn't drop its buffered metrics; log.Fatalf
	// skips deferred calls.
	err = server.New(cfg).ListenAndServe()
	flushMetrics()
	log.Fatalf("%v", err)
}

// flushMetrics pushes any buffered metrics; flush failures are logged, never
// fatal.
func flushMetrics() {
	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
