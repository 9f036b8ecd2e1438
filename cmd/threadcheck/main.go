// Command threadcheck exercises the threading primitives: it runs a shared
// counter across many threads and churns mutex/cond init/destroy pairs
// against an allocation tracker, failing on lost updates or leaks.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/Swind/go-threading/core"
	obs "github.com/Swind/go-threading/observability/prometheus"
	"github.com/containerd/log"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

// env holds the state shared by all commands.
type env struct {
	registry *prom.Registry
	exporter *obs.MetricsExporter
	server   *http.Server
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.L.WithError(err).Error("threadcheck failed")
		os.Exit(1)
	}
}

func newApp() *cli.App {
	e := &env{}
	return &cli.App{
		Name:  "threadcheck",
		Usage: "stress the thread and lock primitives",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"THREADCHECK_LOG_LEVEL"},
				Usage:   "log level (trace, debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				EnvVars: []string{"THREADCHECK_METRICS_ADDR"},
				Usage:   "serve Prometheus metrics on this address while running",
			},
		},
		Before: e.before,
		After:  e.after,
		Commands: []*cli.Command{
			counterCommand(e),
			churnCommand(e),
		},
	}
}

func (e *env) before(c *cli.Context) error {
	if err := log.SetLevel(c.String("log-level")); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	e.registry = prom.NewRegistry()
	exporter, err := obs.NewMetricsExporter("threading", e.registry, obs.ExporterOptions{})
	if err != nil {
		return err
	}
	e.exporter = exporter

	if addr := c.String("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
		e.server = &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.G(c.Context).WithError(err).Error("metrics server stopped")
			}
		}()
		log.G(c.Context).WithField("addr", addr).Info("serving metrics")
	}
	return nil
}

func (e *env) after(c *cli.Context) error {
	if e.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return e.server.Shutdown(ctx)
}

// spawnerByName resolves the --spawner flag.
func spawnerByName(name string, opts core.SpawnerOptions) (core.Spawner, error) {
	switch name {
	case "", "default":
		return spawnerByName(core.DefaultSpawner().Name(), opts)
	case "goroutine":
		return core.NewGoroutineSpawner(opts), nil
	case "native":
		return core.NewNativeThreadSpawner(opts), nil
	default:
		return nil, errors.New("unknown spawner " + name + " (want default, goroutine or native)")
	}
}
