package main

import (
	"context"
	"fmt"

	"github.com/Swind/go-threading/core"
	"github.com/containerd/log"
	"github.com/urfave/cli/v2"
)

func counterCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "counter",
		Usage: "increment a shared counter from many threads under one mutex",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "threads",
				Aliases: []string{"k"},
				Value:   64,
				Usage:   "number of threads",
			},
			&cli.IntFlag{
				Name:  "increments",
				Value: 1,
				Usage: "increments per thread",
			},
			&cli.StringFlag{
				Name:  "spawner",
				Value: "default",
				Usage: "spawner to use (default, goroutine, native)",
			},
			&cli.Int64Flag{
				Name:  "max-threads",
				Usage: "bound on live threads, 0 for none",
			},
		},
		Action: func(c *cli.Context) error {
			threads := c.Int("threads")
			if threads < 1 {
				return cli.Exit("threads must be at least 1", 1)
			}
			sp, err := spawnerByName(c.String("spawner"), core.SpawnerOptions{
				MaxThreads:   c.Int64("max-threads"),
				Metrics:      e.exporter,
				PanicHandler: &core.DefaultPanicHandler{},
			})
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			tracker := core.NewTracker(core.TrackerConfig{Metrics: e.exporter})
			got, err := runCounter(c.Context, sp, tracker, threads, c.Int("increments"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("counter failed: %v (code %d)", err, core.ResultCode(err)), 1)
			}
			want := threads * c.Int("increments")
			if got != want {
				return cli.Exit(fmt.Sprintf("counter = %d, want %d", got, want), 1)
			}
			fmt.Printf("✓ counter = %d across %d %s threads\n", got, threads, sp.Name())
			return nil
		},
	}
}

// runCounter starts k threads on sp that each add n to a counter guarded by
// a mutex allocated through tracker, joins them and returns the total.
func runCounter(ctx context.Context, sp core.Spawner, tracker *core.Tracker, k, n int) (int, error) {
	var mu core.Mutex
	if err := core.MutexInit(&mu, &core.MutexAttr{Allocator: tracker}); err != nil {
		return 0, err
	}

	counter := 0
	entry := func(arg any) any {
		for i := 0; i < arg.(int); i++ {
			mu.Lock()
			counter++
			mu.Unlock()
		}
		return nil
	}

	threads := make([]core.Thread, k)
	var firstErr error
	for i := range threads {
		if err := core.CreateWith(sp, &threads[i], nil, entry, n); err != nil {
			firstErr = fmt.Errorf("create thread %d: %w", i, err)
			break
		}
	}
	// Unstarted handles join as no-ops, so every slot can be joined.
	for i := range threads {
		if err := core.Join(&threads[i], nil); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("join thread %d: %w", i, err)
		}
	}

	if err := core.MutexDestroy(&mu); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return counter, firstErr
	}

	log.G(ctx).WithField("threads", k).WithField("spawner", sp.Name()).Debug("counter run complete")
	return counter, tracker.CheckLeaks()
}
