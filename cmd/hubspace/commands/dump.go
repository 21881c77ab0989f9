package commands

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hubspace/internal/device"
)

// dump [--anonymize] [-o file]: write raw metadevice documents.
func dumpCmd() *cobra.Command {
	var (
		anonymize bool
		output    string
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the raw metadevice documents of the account as JSON",
		Long: `Write the metadevice documents exactly as the API returned them.
With --anonymize, identifiers, names and network details are replaced so the
output can be attached to a bug report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raws, err := wire.Devices.RawDevices(cmd.Context())
			if err != nil {
				return err
			}
			if anonymize {
				if raws, err = device.Anonymize(raws); err != nil {
					return err
				}
			}

			var buf bytes.Buffer
			if err := printJSON(&buf, raws); err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d documents to %s\n", len(raws), output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&anonymize, "anonymize", false, "replace identifying values")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
