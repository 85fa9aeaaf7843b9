package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowsmith/flowsmith-backend/internal/app"
	"github.com/flowsmith/flowsmith-backend/internal/platform/shutdown"
	"github.com/flowsmith/flowsmith-backend/internal/temporalx/temporalworker"
)

func main() {
	root := &cobra.Command{
		Use:          "flowsmith",
		Short:        "Flowsmith recipe automation backend",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), workerCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New()
			if err != nil {
				return err
			}
			defer a.Close()
			a.Start()
			return a.Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to HTTP_ADDR)")
	return cmd
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal action worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Temporal == nil {
				return fmt.Errorf("TEMPORAL_ADDRESS is not configured")
			}
			runner, err := temporalworker.NewRunner(a.Log, a.Temporal, a.Services.Executor)
			if err != nil {
				return err
			}

			ctx, cancel := shutdown.NotifyContext(cmd.Context())
			defer cancel()
			if err := runner.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			a.Log.Info("Shutting down worker")
			return nil
		},
	}
}
