package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/numbers"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and a following worker",
	Long: `Exposes the numbers machine over HTTP (POST /events, GET /state, /graph, /trace,
/trace/stream, /metrics, /healthz) while a worker processes every number that arrives.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		streams := arborhttp.NewStreamManager(logger)
		a, err := newApp(ctx, cfg, logger, cmd.OutOrStdout(), streams.Hooks())
		if err != nil {
			return err
		}
		defer a.Close()

		handler := arborhttp.NewHandler(a.machine, numbers.DecodeInput,
			arborhttp.WithSnapshot(func() (any, error) { return numbers.Take(a.machine) }),
			arborhttp.WithDiagram(a.Diagram),
			arborhttp.WithTrace(a.trace),
			arborhttp.WithMetrics(a.registry),
			arborhttp.WithStreams(streams),
			arborhttp.WithLogger(logger),
		)
		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}

		mode, _ := numbers.ParseWaitMode(cfg.Worker.Mode)
		worker := numbers.NewWorker(a.machine,
			numbers.WithOutput(cmd.OutOrStdout()),
			numbers.WithWorkerLogger(logger),
			numbers.WithFollow(mode, cfg.Worker.PollInterval),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("starting arbor server", "addr", srv.Addr, "machine", cfg.Machine.Name)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			_, err := worker.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")

			// Give outstanding requests a deadline for completion.
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				return srv.Close()
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("arbor server stopped gracefully", "stored", len(worker.Stored()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
}
