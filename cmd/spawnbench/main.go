// Command spawnbench spawns a batch of tasks on a worker pool backend and
// reports how long it took to run them all.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/alitto/spawner/metrics"
)

func main() {
	cfg := defaultConfig()

	flags := pflag.NewFlagSet("spawnbench", pflag.ExitOnError)
	flags.StringVarP(&cfg.Backend, "backend", "b", cfg.Backend, "worker pool backend: native, ants or workerpool")
	flags.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "number of pool workers")
	flags.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "queue size of the native pool")
	flags.IntVarP(&cfg.Tasks, "tasks", "n", cfg.Tasks, "number of tasks to spawn")
	flags.IntVar(&cfg.Submitters, "submitters", cfg.Submitters, "number of goroutines spawning tasks")
	flags.DurationVarP(&cfg.TaskDuration, "task-duration", "d", cfg.TaskDuration, "time each task sleeps")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address and keep running once done")
	logLevel := flags.String("log-level", "info", "log level")
	_ = flags.Parse(os.Args[1:])

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := newPool(ctx, cfg, log.StandardLogger())
	if err != nil {
		log.Fatalf("cannot create %s pool: %v", cfg.Backend, err)
	}
	defer p.StopAndWait()

	if cfg.MetricsAddr != "" {
		if src, ok := p.(metrics.Source); ok {
			if err := metrics.Register(prometheus.DefaultRegisterer, cfg.Backend, src); err != nil {
				log.Fatal(err)
			}
		}
		go serveMetrics(cfg.MetricsAddr)
	}

	summary, err := run(ctx, p, cfg, log.StandardLogger())
	if err != nil {
		log.Fatal(err)
	}

	log.WithFields(log.Fields{
		"backend":    cfg.Backend,
		"workers":    cfg.Workers,
		"tasks":      summary.Tasks,
		"failed":     summary.Failed,
		"elapsed":    summary.Elapsed,
		"throughput": fmt.Sprintf("%.0f tasks/s", summary.Throughput()),
	}).Info("done")

	if cfg.MetricsAddr != "" {
		<-ctx.Done()
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Infof("serving metrics on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("metrics server failed: %v", err)
	}
}

func defaultConfig() *config {
	return &config{
		Backend:      backendNative,
		Workers:      runtime.NumCPU(),
		QueueSize:    2048,
		Tasks:        10000,
		Submitters:   1,
		TaskDuration: time.Millisecond,
	}
}
