package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"hubspace/internal/device"
	"hubspace/internal/domain"
)

// state get|set: read or change device state.
func stateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Read or change the state of a device",
	}
	cmd.AddCommand(stateGetCmd(), stateSetCmd())
	return cmd
}

func stateGetCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch the current state of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := wire.Devices.DeviceState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), states)
			}
			return printStates(cmd.OutOrStdout(), states)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func stateSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> class[/instance]=value...",
		Short: "Change one or more functions of a device",
		Example: `  hubspace state set <id> power=on brightness=80
  hubspace state set <id> power/fan-power=off`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			states := make([]domain.State, 0, len(args)-1)
			for _, a := range args[1:] {
				s, err := device.ParseAssignment(a)
				if err != nil {
					return err
				}
				states = append(states, s)
			}
			if err := wire.Devices.SetDeviceState(cmd.Context(), args[0], states...); err != nil {
				return err
			}
			for _, s := range states {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", s.Key(), device.FormatValue(s.Value))
			}
			return nil
		},
	}
}
