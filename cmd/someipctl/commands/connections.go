package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/someipd/cmd/someipctl/cmdutil"
	"github.com/marmos91/someipd/internal/controlapi/client"
)

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conn", "connection"},
	Short:   "Manage TCP connections",
}

var connectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active TCP connections",
	Long: `List the TCP connections someipd currently holds open.

Examples:
  # List connections as a table
  someipctl connections list

  # List as JSON
  someipctl connections list -o json`,
	RunE: runConnectionsList,
}

var disconnectForce bool

var connectionsDisconnectCmd = &cobra.Command{
	Use:   "disconnect <remote-addr>",
	Short: "Force-disconnect a TCP connection",
	Long: `Force-disconnect the TCP connection from the given remote address.

Examples:
  # Disconnect with confirmation
  someipctl connections disconnect 10.0.0.5:30509

  # Disconnect without prompting
  someipctl connections disconnect 10.0.0.5:30509 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runConnectionsDisconnect,
}

// ConnectionList renders a slice of client.ConnectionView as a table.
type ConnectionList []client.ConnectionView

func (cl ConnectionList) Headers() []string {
	return []string{"LOCAL", "REMOTE", "ROLE", "STATE", "USERS", "CORRELATION ID"}
}

func (cl ConnectionList) Rows() [][]string {
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		rows = append(rows, []string{
			c.LocalAddr,
			c.RemoteAddr,
			c.Role,
			c.State,
			fmt.Sprintf("%d", c.Users),
			cmdutil.EmptyOr(c.CorrelationID, "-"),
		})
	}
	return rows
}

func init() {
	connectionsDisconnectCmd.Flags().BoolVar(&disconnectForce, "force", false, "Skip confirmation prompt")
	connectionsCmd.AddCommand(connectionsListCmd)
	connectionsCmd.AddCommand(connectionsDisconnectCmd)
}

func runConnectionsList(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	connections, err := c.Connections()
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, connections, len(connections) == 0, "No active connections.", ConnectionList(connections))
}

func runConnectionsDisconnect(cmd *cobra.Command, args []string) error {
	addr := args[0]

	c, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	return cmdutil.RunDestructiveWithConfirmation(
		fmt.Sprintf("Force-disconnect %s?", addr), disconnectForce,
		func() error {
			if err := c.Disconnect(addr); err != nil {
				return fmt.Errorf("failed to disconnect %s: %w", addr, err)
			}
			cmdutil.PrintSuccess(fmt.Sprintf("Connection %s disconnected", addr))
			return nil
		},
	)
}
