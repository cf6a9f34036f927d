package app

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/groundlink-io/groundlink/internal/gcs/transport"
)

// newPortsCommand lists the serial ports visible on this machine, for
// filling in the serial connection options.
func newPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List detected serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := transport.ListPorts()
			if err != nil {
				return fmt.Errorf("failed to enumerate serial ports: %w", err)
			}

			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No serial ports detected.")
				return nil
			}

			table := uitable.New()
			table.AddRow("PORT")
			for _, p := range ports {
				table.AddRow(p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
