// Package cmdutil provides shared utilities for someipctl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"

	"github.com/marmos91/someipd/internal/cli/output"
	"github.com/marmos91/someipd/internal/cli/prompt"
	"github.com/marmos91/someipd/internal/controlapi/client"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerURL string
	Token     string
	Output    string
	NoColor   bool
	Verbose   bool
}

// GetClient returns a control API client configured from the current flags.
// The server URL defaults to the local daemon's control API; the token
// comes from --token or the SOMEIPCTL_TOKEN environment variable, since
// someipctl has no login flow of its own (see 'someipctl token').
func GetClient() (*client.Client, error) {
	url := Flags.ServerURL
	if url == "" {
		url = "http://127.0.0.1:8090"
	}

	tok := Flags.Token
	if tok == "" {
		tok = os.Getenv("SOMEIPCTL_TOKEN")
	}

	c := client.New(url)
	if tok != "" {
		c = c.WithToken(tok)
	}
	return c, nil
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses
// tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	printer := output.NewPrinter(os.Stdout, format, !IsColorDisabled())
	printer.Success(msg)
}

// RunDestructiveWithConfirmation prompts for confirmation (unless force is
// true) and runs actionFn, for operations like force-disconnect that drop
// live protocol state.
func RunDestructiveWithConfirmation(label string, force bool, actionFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(label, force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}
	return actionFn()
}

// EmptyOr returns value if not empty, otherwise fallback.
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// BoolToYesNo converts a boolean to "yes"/"no".
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
