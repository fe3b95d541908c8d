package main

import (
	"fmt"
	"log/slog"

	"fraudprep/internal/config"
	"fraudprep/internal/metrics"
	"fraudprep/internal/metrics/datadog"
	"fraudprep/internal/metrics/prompush"
)

// setupMetrics installs the configured metrics backend and returns a func
// that flushes it. A backend that fails to initialize is logged and metrics
// stay disabled; it never fails the run.
func setupMetrics(log *slog.Logger, p config.Pipeline) (func(), error) {
	flush := func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush error", "err", err)
		}
	}
	var (
		b   metrics.Backend
		err error
	)
	switch p.Metrics.Backend {
	case "pushgateway":
		url := p.Metrics.PushgatewayURL
		if url == "" {
			url = "http://localhost:9091"
		}
		b, err = prompush.NewBackend(p.Job, url)
	case "datadog":
		addr := p.Metrics.DatadogAddr
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       addr,
			GlobalTags: []string{fmt.Sprintf("job:%s", p.Job)},
		})
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}, nil
	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", p.Metrics.Backend)
		return func() {}, nil
	}
	if err != nil {
		log.Warn("metrics: backend init failed; metrics disabled", "backend", p.Metrics.Backend, "err", err)
		return func() {}, nil
	}
	metrics.SetBackend(b)
	log.Debug("metrics: enabled", "backend", p.Metrics.Backend)
	return flush, nil
}
