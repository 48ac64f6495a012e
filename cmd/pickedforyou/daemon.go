package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func daemonCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Keep the recommendation cache warm on a timer",
		Long: `Run the engine in a loop. Each cycle is cheap when the cached list is
still inside its staleness window; the provider is only queried once the
window expires. Handles SIGINT/SIGTERM for graceful shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			logger := newLogger()
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			logger.Info().Dur("interval", interval).Msg("daemon starting")

			cycle := 1
			for {
				start := time.Now()
				items, err := engine.Run(ctx)
				if err != nil {
					logger.Warn().Err(err).Int("cycle", cycle).Msg("cycle finished with error")
				} else {
					logger.Info().
						Int("cycle", cycle).
						Int("items", len(items)).
						Dur("took", time.Since(start).Round(time.Millisecond)).
						Msg("cycle completed")
				}

				cycle++

				// Wait for the next tick or a shutdown signal.
				timer := time.NewTimer(interval)
				select {
				case <-sig:
					timer.Stop()
					logger.Info().Msg("received shutdown signal, exiting")
					return nil
				case <-timer.C:
				}
			}
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Hour, "duration between engine cycles (e.g. 30m, 1h)")
	return cmd
}
