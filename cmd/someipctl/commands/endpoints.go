package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/someipd/cmd/someipctl/cmdutil"
	"github.com/marmos91/someipd/internal/controlapi/client"
)

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "List local SOME/IP endpoints",
	Long: `List the local TCP and UDP endpoints someipd currently has open.

Examples:
  # List endpoints as a table
  someipctl endpoints

  # List as JSON
  someipctl endpoints -o json`,
	RunE: runEndpoints,
}

// EndpointList renders a slice of client.EndpointView as a table.
type EndpointList []client.EndpointView

func (el EndpointList) Headers() []string {
	return []string{"ADDRESS", "PORT", "PROTOCOL", "VARIANT", "SECURED", "PEERS", "REASSEMBLY KEYS"}
}

func (el EndpointList) Rows() [][]string {
	rows := make([][]string, 0, len(el))
	for _, e := range el {
		rows = append(rows, []string{
			e.Address,
			fmt.Sprintf("%d", e.Port),
			e.Protocol,
			e.Variant,
			cmdutil.BoolToYesNo(e.Secured),
			fmt.Sprintf("%d", e.PeerCount),
			fmt.Sprintf("%d", e.ReassemblyKey),
		})
	}
	return rows
}

func runEndpoints(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	endpoints, err := c.Endpoints()
	if err != nil {
		return fmt.Errorf("failed to list endpoints: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, endpoints, len(endpoints) == 0, "No endpoints found.", EndpointList(endpoints))
}
