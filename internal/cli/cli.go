// Package cli is the shared entry point of the pipeline binaries. It loads
// configuration, installs the metrics backend, runs the requested stages and
// maps the outcome to a process exit code.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"datapipe/internal/config"
	"datapipe/internal/metrics"
	"datapipe/internal/metrics/datadog"
	"datapipe/internal/metrics/prompush"
	"datapipe/internal/pipeline"
	"datapipe/internal/stages"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Main loads configuration from the environment and runs the named stages,
// or all six when names is empty. It returns the process exit code.
func Main(names ...string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: %v", err)
		return ExitFailure
	}
	return Run(ctx, cfg, names...)
}

// Run executes the named stages (all of them when names is empty) against cfg.
func Run(ctx context.Context, cfg *config.Config, names ...string) int {
	selected, err := selectStages(cfg, names)
	if err != nil {
		log.Printf("cli: %v", err)
		return ExitFailure
	}

	flush := setupMetrics(cfg)
	defer flush()

	if len(names) == 0 {
		logStart(cfg)
	}
	r := &pipeline.Runner{
		Job:          cfg.Job,
		Stages:       selected,
		StageTimeout: cfg.Runtime.StageTimeout,
		Retries:      cfg.Runtime.StageRetries,
	}
	if res := r.Run(ctx); !res.OK() {
		return ExitFailure
	}
	return ExitOK
}

func selectStages(cfg *config.Config, names []string) ([]pipeline.Stage, error) {
	all := stages.Sequence(cfg)
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]pipeline.Stage, len(all))
	for _, st := range all {
		byName[st.Name] = st
	}
	out := make([]pipeline.Stage, 0, len(names))
	for _, n := range names {
		st, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown stage %q", n)
		}
		out = append(out, st)
	}
	return out, nil
}

// logStart prints the endpoints a full run talks to. Secrets are not logged.
func logStart(cfg *config.Config) {
	log.Printf("pipeline: object store endpoint=%s bucket=%s", cfg.ObjectStore.Endpoint, cfg.ObjectStore.Bucket)
	if cfg.Relational.DSN != "" {
		log.Printf("pipeline: relational kind=%s (dsn configured)", cfg.Relational.Kind)
	} else {
		log.Printf("pipeline: relational kind=%s host=%s:%s db=%s",
			cfg.Relational.Kind, cfg.Relational.Host, cfg.Relational.Port, cfg.Relational.Database)
	}
	log.Printf("pipeline: source bucket=%s prefix=%q", cfg.Source.Bucket, cfg.Source.Prefix)
	for _, iss := range cfg.ValidateAll() {
		if iss.Severity == config.SeverityWarning {
			log.Printf("config: %v", iss)
		}
	}
}

// setupMetrics installs the configured backend and returns a function that
// flushes it. A backend that cannot be built is logged and metrics stay
// disabled.
func setupMetrics(cfg *config.Config) func() {
	var (
		b   metrics.Backend
		err error
	)
	m := cfg.Metrics
	switch m.Backend {
	case "pushgateway":
		b, err = newPushgateway(cfg.Job, m.PushgatewayURL)
	case "datadog":
		b, err = newDatadog(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  "datapipe.",
			GlobalTags: m.Tags,
		})
	case "", "none":
		return func() {}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", m.Backend)
		return func() {}
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", m.Backend, err)
		return func() {}
	}

	log.Printf("metrics: backend=%s job=%s", m.Backend, cfg.Job)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

func newPushgateway(job, url string) (metrics.Backend, error) {
	return prompush.NewBackend(job, url)
}

func newDatadog(cfg datadog.Config) (metrics.Backend, error) {
	return datadog.NewBackend(cfg)
}
