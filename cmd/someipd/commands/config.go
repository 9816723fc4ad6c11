package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/someipd/internal/cli/output"
	"github.com/marmos91/someipd/internal/config"
)

var configShowOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the someipd configuration that would be used to start the
daemon: file values merged with SOMEIPD_* environment overrides and
defaults.

Examples:
  # Show effective config as YAML
  someipd config show

  # Show as JSON
  someipd config show --output json`,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().StringVarP(&configShowOutput, "output", "o", "yaml", "Output format (yaml|json)")
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(configShowOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}
