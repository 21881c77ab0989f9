package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hubspace/internal/app"
	"hubspace/internal/device"
	"hubspace/internal/domain"
	"hubspace/internal/poller"
)

// maxPollFailures marks the poller unhealthy after this many failures in a row.
const maxPollFailures = 5

// watch [--interval d]: poll device state and print changes until interrupted.
func watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll device state and print every change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				interval = cfg.PollInterval
			}
			ctx := cmd.Context()
			devices, err := wire.Devices.Devices(ctx)
			if err != nil {
				return err
			}
			names := make(map[string]string, len(devices))
			for _, d := range devices {
				names[d.ID] = d.Name()
			}

			out := cmd.OutOrStdout()
			p := poller.New(interval, func(ctx context.Context) error {
				changes, err := wire.Devices.RefreshStates(ctx)
				wire.Metrics.RecordPoll(err, time.Now())
				if err != nil {
					return err
				}
				printChanges(out, names, changes, time.Now())
				return nil
			}, pollOptions(wire))
			p.Start(ctx)
			p.Wait()
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between polls (default from config, 30s)")
	return cmd
}

func pollOptions(w *app.Wire) poller.Options {
	log := logrus.NewEntry(w.Log)
	return poller.Options{
		Log:                    log,
		MaxConsecutiveFailures: maxPollFailures,
		OnUnhealthy: func(failures int) {
			log.WithField("failures", failures).Warn("device polling is failing")
		},
	}
}

func printChanges(w io.Writer, names map[string]string, changes []domain.StateChange, at time.Time) {
	for _, c := range changes {
		name := names[c.DeviceID]
		if name == "" {
			name = c.DeviceID
		}
		fmt.Fprintf(w, "%s  %s  %s: %s -> %s\n",
			at.Format(time.RFC3339), name, c.Key, device.FormatValue(c.Old), device.FormatValue(c.New))
	}
}
