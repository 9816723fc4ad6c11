package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/someipd/internal/cli/output"
	"github.com/marmos91/someipd/internal/cli/timeutil"
	"github.com/marmos91/someipd/internal/controlapi/client"
)

var (
	statusOutput  string
	statusPidFile string
	statusAPIPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Display the current status of the someipd daemon.

Checks the PID file and, if the control API is enabled, its health
endpoint, then reports running state and uptime.

Examples:
  # Check status (uses default settings)
  someipd status

  # Check status with a custom control API port
  someipd status --api-port 9090

  # Output as JSON
  someipd status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/someipd/someipd.pid)")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 8090, "Control API port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// DaemonStatus reports the someipd daemon's running state.
type DaemonStatus struct {
	Running   bool   `json:"running" yaml:"running"`
	PID       int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Message   string `json:"message" yaml:"message"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := DaemonStatus{
		Running: false,
		Healthy: false,
		Message: "Daemon is not running",
	}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	if pidData, err := os.ReadFile(pidPath); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(pidData))); err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if process.Signal(syscall.Signal(0)) == nil {
					status.Running = true
					status.PID = pid
				}
			}
		}
	}

	c := client.New(fmt.Sprintf("http://127.0.0.1:%d", statusAPIPort))
	if health, err := c.Health(); err == nil {
		status.Running = true
		status.Healthy = true
		status.StartedAt = health.StartedAt.Format(timeutil.LocalTimeFormat)
		status.Uptime = health.Uptime
		status.Message = "Daemon is running and healthy"
	} else if status.Running {
		status.Message = "Daemon process exists but control API did not respond (it may be disabled)"
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

func printStatusTable(status DaemonStatus) {
	fmt.Println()
	fmt.Println("someipd Daemon Status")
	fmt.Println("======================")
	fmt.Println()

	if status.Running {
		if status.Healthy {
			fmt.Printf("  Status:     \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("  Status:     \033[33m● Running (health unknown)\033[0m\n")
		}
		if status.PID != 0 {
			fmt.Printf("  PID:        %d\n", status.PID)
		}
		if status.StartedAt != "" {
			fmt.Printf("  Started:    %s\n", status.StartedAt)
		}
		if status.Uptime != "" {
			fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
		}
	} else {
		fmt.Printf("  Status:     \033[31m○ Stopped\033[0m\n")
	}

	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
