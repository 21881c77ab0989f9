package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hubspace/internal/device"
	"hubspace/internal/domain"
)

// devices [--class c] [--json]: list the devices on the account.
func devicesCmd() *cobra.Command {
	var (
		class  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the devices on the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := wire.Devices.Devices(cmd.Context())
			if err != nil {
				return err
			}
			devices := make([]domain.Device, 0, len(all))
			for _, d := range all {
				if class == "" || strings.EqualFold(d.DeviceClass, class) {
					devices = append(devices, d)
				}
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), devices)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tCLASS\tMODEL\tMANUFACTURER")
			for _, d := range devices {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name(), d.DeviceClass, d.Model, d.Manufacturer)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "only show devices of this class (fan, light, ...)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// device <id> [--json]: show one device with its functions and state.
func deviceCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "device <id>",
		Short: "Show a device, its functions and its current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := wire.Devices.Device(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), d)
			}

			out := cmd.OutOrStdout()
			tw := newTable(out)
			fmt.Fprintf(tw, "id:\t%s\n", d.ID)
			fmt.Fprintf(tw, "device id:\t%s\n", d.DeviceID)
			fmt.Fprintf(tw, "name:\t%s\n", d.Name())
			fmt.Fprintf(tw, "class:\t%s\n", d.DeviceClass)
			fmt.Fprintf(tw, "model:\t%s\n", d.Model)
			fmt.Fprintf(tw, "manufacturer:\t%s\n", d.Manufacturer)
			fmt.Fprintf(tw, "image:\t%s\n", d.DefaultImage)
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			tw = newTable(out)
			fmt.Fprintln(tw, "FUNCTION\tTYPE\tVALUES")
			for _, f := range d.Functions {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", functionKey(f), f.Type, functionValues(f))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			return printStates(out, d.States)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func functionKey(f domain.Function) string {
	return domain.State{FunctionClass: f.FunctionClass, FunctionInstance: f.FunctionInstance}.Key()
}

func functionValues(f domain.Function) string {
	parts := make([]string, 0, len(f.Values))
	for _, v := range f.Values {
		if v.Range != nil {
			parts = append(parts, fmt.Sprintf("%g..%g step %g", v.Range.Min, v.Range.Max, v.Range.Step))
			continue
		}
		parts = append(parts, v.Name)
	}
	return strings.Join(parts, ", ")
}

func printStates(w io.Writer, states []domain.State) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "STATE\tVALUE\tUPDATED")
	for _, s := range states {
		updated := "-"
		if s.LastUpdateTime > 0 {
			updated = updateTime(s.LastUpdateTime).Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Key(), device.FormatValue(s.Value), updated)
	}
	return tw.Flush()
}

// updateTime accepts both the millisecond stamps the API reports and the
// second stamps clients write.
func updateTime(ts int64) time.Time {
	if ts > 1e12 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}
