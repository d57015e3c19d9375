package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/liftstation/pumpkernel/internal/config"
	"github.com/liftstation/pumpkernel/internal/telemetry"
)

// newServeMetricsCommand builds a driver from the resolved config,
// attaches a fresh telemetry.Metrics to it, and cycles decision ticks
// across the dataset's full history in the background while serving
// the registry over /metrics (SPEC_FULL.md §2's ambient observability
// surface). --once runs a single pass in the foreground before serving,
// instead of looping in the background.
func newServeMetricsCommand() *cobra.Command {
	var addr string
	var tickInterval time.Duration
	var once bool

	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Run decision ticks against the dataset and expose the pumpkernel Prometheus registry over /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			driver, err := buildDriver(cfg)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") && cfg.MetricsAddr != "" {
				addr = cfg.MetricsAddr
			}

			reg := prometheus.NewRegistry()
			driver.AttachTelemetry(telemetry.New(reg))

			historyLen, ok := driver.HistoryLen()
			if !ok || historyLen == 0 {
				return fmt.Errorf("serve-metrics: dataset has no addressable rows to replay")
			}

			runTicks := func(ctx context.Context) {
				for idx := 0; idx < historyLen; idx++ {
					state, err := driver.StateAt(idx)
					if err != nil {
						continue
					}
					if _, err := driver.Decide(ctx, state); err != nil {
						continue
					}
					if ctx.Err() != nil {
						return
					}
					if tickInterval > 0 {
						time.Sleep(tickInterval)
					}
				}
			}

			if once {
				runTicks(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "replayed %d ticks, serving metrics on %s/metrics\n", historyLen, addr)
			} else {
				go func() {
					ctx := cmd.Context()
					for {
						runTicks(ctx)
						if ctx.Err() != nil {
							return
						}
					}
				}()
				fmt.Fprintf(cmd.OutOrStdout(), "replaying dataset continuously, serving metrics on %s/metrics\n", addr)
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			return http.ListenAndServe(addr, mux)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9090", "address to bind the metrics HTTP server")
	cmd.Flags().DurationVar(&tickInterval, "tick-interval", 0, "delay between replayed ticks (0 runs as fast as possible)")
	cmd.Flags().BoolVar(&once, "once", false, "replay the dataset once before serving, instead of looping forever")
	return cmd
}
