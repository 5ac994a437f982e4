package main

import (
	"context"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/alitto/spawner"
	"github.com/alitto/spawner/pool"
	"github.com/alitto/spawner/pool/antspool"
	"github.com/alitto/spawner/pool/wpool"
)

const (
	backendNative     = "native"
	backendAnts       = "ants"
	backendWorkerpool = "workerpool"
)

type config struct {
	Backend      string
	Workers      int
	QueueSize    int
	Tasks        int
	Submitters   int
	TaskDuration time.Duration
	MetricsAddr  string
}

type summary struct {
	Tasks   int
	Failed  int
	Elapsed time.Duration
}

// Throughput returns the number of tasks completed per second.
func (s summary) Throughput() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Tasks-s.Failed) / s.Elapsed.Seconds()
}

func newPool(ctx context.Context, cfg *config, logger logrus.FieldLogger) (spawner.Pool, error) {
	switch cfg.Backend {
	case backendNative:
		p, err := pool.New(cfg.Workers,
			pool.WithContext(ctx),
			pool.WithQueueSize(cfg.QueueSize),
			pool.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return p, nil
	case backendAnts:
		p, err := antspool.New(cfg.Workers, ants.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return p, nil
	case backendWorkerpool:
		return wpool.New(cfg.Workers), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// run spawns cfg.Tasks tasks split among cfg.Submitters goroutines and waits for all of them.
func run(ctx context.Context, p spawner.Pool, cfg *config, logger logrus.FieldLogger) (summary, error) {
	if cfg.Tasks < 0 || cfg.Submitters <= 0 {
		return summary{}, fmt.Errorf("invalid task count %d or submitter count %d", cfg.Tasks, cfg.Submitters)
	}

	s := spawner.From(p, spawner.WithContext(ctx), spawner.WithLogger(logger))
	tasks := make([]spawner.ResultTask[time.Duration], cfg.Tasks)

	start := time.Now()

	group, groupCtx := errgroup.WithContext(ctx)
	for submitter := 0; submitter < cfg.Submitters; submitter++ {
		submitter := submitter
		group.Go(func() error {
			for i := submitter; i < cfg.Tasks; i += cfg.Submitters {
				if err := groupCtx.Err(); err != nil {
					return err
				}

				task, err := spawner.SpawnRes[time.Duration](s, func(ctx context.Context) (time.Duration, error) {
					begin := time.Now()
					select {
					case <-time.After(cfg.TaskDuration):
					case <-ctx.Done():
						return 0, ctx.Err()
					}
					return time.Since(begin), nil
				})
				if err != nil {
					return err
				}
				tasks[i] = task
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return summary{}, err
	}

	result := summary{Tasks: cfg.Tasks}
	for _, task := range tasks {
		if _, err := task.Wait(); err != nil {
			logger.WithError(err).Debug("task failed")
			result.Failed++
		}
	}
	result.Elapsed = time.Since(start)

	return result, nil
}
