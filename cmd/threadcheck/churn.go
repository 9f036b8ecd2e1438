package main

import (
	"context"
	"fmt"

	"github.com/Swind/go-threading/core"
	"github.com/Swind/go-threading/observability/logging"
	"github.com/containerd/log"
	"github.com/urfave/cli/v2"
)

func churnCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "churn",
		Usage: "repeat mutex and cond init/destroy pairs and check for leaks",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "iterations",
				Aliases: []string{"n"},
				Value:   10000,
				Usage:   "number of init/destroy pairs per primitive",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "cap on live tracked allocations, 0 for none",
			},
		},
		Action: func(c *cli.Context) error {
			n := c.Int("iterations")
			if n < 0 {
				return cli.Exit("iterations must not be negative", 1)
			}
			tracker := core.NewTracker(core.TrackerConfig{
				Limit:   c.Int("limit"),
				Logger:  logging.New(log.G(c.Context)),
				Metrics: e.exporter,
			})
			if err := runChurn(c.Context, tracker, n); err != nil {
				return cli.Exit(fmt.Sprintf("churn failed: %v (code %d)", err, core.ResultCode(err)), 1)
			}
			allocated, freed := tracker.Totals()
			fmt.Printf("✓ %d allocations, %d frees, instrumented=%v\n", allocated, freed, core.Instrumented)
			return nil
		},
	}
}

// runChurn performs n mutex and n cond init/destroy pairs through heap
// handles registered with tracker, then checks it for leaks.
func runChurn(ctx context.Context, tracker *core.Tracker, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var m core.HeapMutex
		var c core.HeapCond
		if err := m.Init(&core.MutexAttr{Allocator: tracker}); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		if err := c.Init(&core.CondAttr{Allocator: tracker}); err != nil {
			_ = m.Destroy()
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		if err := c.Destroy(); err != nil {
			_ = m.Destroy()
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		if err := m.Destroy(); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
	}
	return tracker.CheckLeaks()
}
