package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/someipd/internal/controlapi"
)

var (
	tokenSecret   string
	tokenRole     string
	tokenDuration time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a control API bearer token",
	Long: `Mint a bearer token for someipd's control API.

The control API has no login endpoint: tokens are signed offline with
the same HMAC secret the daemon was started with (SOMEIPD_CONTROL_API_JWT_SECRET
or control_api.jwt_secret in its config file), and carry only a role
claim (operator or admin).

Examples:
  # Mint a read-only operator token valid for 1 hour
  someipctl token --secret "$SOMEIPD_CONTROL_API_JWT_SECRET"

  # Mint an admin token valid for 8 hours
  someipctl token --secret "$SOMEIPD_CONTROL_API_JWT_SECRET" --role admin --duration 8h`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "JWT signing secret (required, must match the daemon's)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "operator", "Token role (operator|admin)")
	tokenCmd.Flags().DurationVar(&tokenDuration, "duration", time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("secret")
}

func runToken(cmd *cobra.Command, args []string) error {
	role := controlapi.Role(tokenRole)
	if role != controlapi.RoleOperator && role != controlapi.RoleAdmin {
		return fmt.Errorf("invalid role %q: must be operator or admin", tokenRole)
	}

	svc, err := controlapi.NewTokenService(controlapi.TokenConfig{
		Secret:        tokenSecret,
		TokenDuration: tokenDuration,
	})
	if err != nil {
		return err
	}

	token, err := svc.GenerateToken(role)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, token)
	return nil
}
