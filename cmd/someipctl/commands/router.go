package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/someipd/cmd/someipctl/cmdutil"
	"github.com/marmos91/someipd/internal/controlapi/client"
)

var routerCmd = &cobra.Command{
	Use:   "router",
	Short: "Inspect the service router table",
	Long: `List the (ServiceId, MajorVersion) -> InstanceId registrations
someipd currently holds.

Examples:
  # List the router table as a table
  someipctl router

  # List as JSON
  someipctl router -o json`,
	RunE: runRouter,
}

// RegistrationList renders a slice of client.RegistrationView as a table.
type RegistrationList []client.RegistrationView

func (rl RegistrationList) Headers() []string {
	return []string{"SERVICE ID", "MAJOR VERSION", "INSTANCE ID"}
}

func (rl RegistrationList) Rows() [][]string {
	rows := make([][]string, 0, len(rl))
	for _, r := range rl {
		rows = append(rows, []string{
			fmt.Sprintf("0x%04x", r.ServiceID),
			fmt.Sprintf("%d", r.MajorVersion),
			fmt.Sprintf("0x%04x", r.InstanceID),
		})
	}
	return rows
}

func runRouter(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	registrations, err := c.RouterTable()
	if err != nil {
		return fmt.Errorf("failed to fetch router table: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, registrations, len(registrations) == 0, "No service registrations.", RegistrationList(registrations))
}
