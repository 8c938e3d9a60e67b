package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/numbers"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [numbers...]",
	Short: "Run the number-squaring demo",
	Long: `Delivers the given numbers (4 7 9 by default) to a fresh machine, then starts the
worker, which squares and stores each one until the queue is empty.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		values := []uint32{4, 7, 9}
		if len(args) > 0 {
			values = values[:0]
			for _, a := range args {
				v, err := strconv.ParseUint(a, 10, 32)
				if err != nil {
					return fmt.Errorf("invalid number %q: %w", a, err)
				}
				values = append(values, uint32(v))
			}
		}
		delay, _ := cmd.Flags().GetDuration("delay")

		out := cmd.OutOrStdout()
		if f, ok := out.(*os.File); ok && tui.IsTerminal(f) && cfg.Trace.Console {
			tui.PrintBanner(out, arbor.Version)
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logger, out)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, v := range values {
			if err := a.machine.Handle(ctx, numbers.NumberReceived{Value: v}); err != nil {
				return err
			}
		}

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		opts := []numbers.WorkerOption{numbers.WithOutput(out), numbers.WithWorkerLogger(logger)}
		if cfg.Worker.Follow {
			mode, _ := numbers.ParseWaitMode(cfg.Worker.Mode)
			opts = append(opts, numbers.WithFollow(mode, cfg.Worker.PollInterval))
		}
		results, err := numbers.NewWorker(a.machine, opts...).Run(ctx)
		logger.Debug("worker finished", "processed", len(results))
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Duration("delay", 0, "Pause between delivering the numbers and starting the worker")
}
