package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/someipd/cmd/someipctl/cmdutil"
	"github.com/marmos91/someipd/internal/cli/output"
	"github.com/marmos91/someipd/internal/cli/timeutil"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Display the status of the connected someipd daemon.

Examples:
  # Check status of the local daemon
  someipctl status

  # Check a remote daemon
  someipctl status --server http://10.0.0.5:8090

  # Output as JSON
  someipctl status -o json`,
	RunE: runRemoteStatus,
}

// RemoteStatus represents the daemon status for display.
type RemoteStatus struct {
	Server    string `json:"server" yaml:"server"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runRemoteStatus(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	server := cmdutil.Flags.ServerURL
	if server == "" {
		server = "http://127.0.0.1:8090"
	}

	status := RemoteStatus{Server: server}
	health, err := c.Health()
	if err != nil {
		status.Healthy = false
		status.Error = err.Error()
	} else {
		status.Healthy = true
		status.StartedAt = health.StartedAt.Format(timeutil.LocalTimeFormat)
		status.Uptime = health.Uptime
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printRemoteStatus(status)
	}
	return nil
}

func printRemoteStatus(status RemoteStatus) {
	fmt.Printf("Server:  %s\n", status.Server)
	if status.Healthy {
		fmt.Printf("Status:  \033[32m● Healthy\033[0m\n")
		if status.StartedAt != "" {
			fmt.Printf("Started: %s\n", status.StartedAt)
		}
		if status.Uptime != "" {
			fmt.Printf("Uptime:  %s\n", timeutil.FormatUptime(status.Uptime))
		}
	} else {
		fmt.Printf("Status:  \033[31m● Unreachable\033[0m (%s)\n", status.Error)
	}
}
