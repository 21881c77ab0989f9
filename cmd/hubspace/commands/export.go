package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"hubspace/internal/metrics"
	"hubspace/internal/poller"
	devicesvc "hubspace/internal/services/device"
)

const shutdownGrace = 5 * time.Second

// export [--address a] [--interval d]: serve device state as Prometheus metrics.
func exportCmd() *cobra.Command {
	var (
		address  string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Serve device state as Prometheus metrics",
		Long: `Poll device state and serve it on /metrics. /health reports the poller
status and answers 503 after repeated poll failures.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				interval = cfg.PollInterval
			}
			ctx := cmd.Context()
			log := wire.Log.WithField("component", "export")

			p := poller.New(interval, exportPoll(wire.Devices, wire.Metrics), pollOptions(wire))
			srv := &http.Server{
				Addr:              address,
				Handler:           exportHandler(wire.Registry, p),
				ReadHeaderTimeout: 10 * time.Second,
			}

			idle := make(chan struct{})
			go func() {
				defer close(idle)
				<-ctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				if err := srv.Shutdown(sctx); err != nil {
					log.WithError(err).Warn("metrics server shutdown")
				}
			}()

			p.Start(ctx)
			defer p.Stop()
			log.WithField("address", address).Info("serving Prometheus metrics")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			<-idle
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "127.0.0.1:9091", "listen address of the metrics server")
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between polls (default from config, 30s)")
	return cmd
}

// exportPoll refreshes every device and publishes its numeric state.
func exportPoll(devices *devicesvc.Service, m *metrics.Metrics) poller.Func {
	return func(ctx context.Context) error {
		_, err := devices.RefreshStates(ctx)
		m.RecordPoll(err, time.Now())
		if err != nil {
			return err
		}
		all, err := devices.Devices(ctx)
		if err != nil {
			return err
		}
		m.PublishDevices(all)
		return nil
	}
}

func exportHandler(reg *prometheus.Registry, p *poller.Poller) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		if !p.IsHealthy() {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = printJSON(w, p.Status())
	})
	return mux
}
