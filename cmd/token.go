// File: cmd/token.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/wa-humanizer/internal/adminapi"
	"github.com/xkilldash9x/wa-humanizer/internal/config"
)

func newTokenCmd(cfg *config.Interface) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the admin API",
		Long: `Signs a token with admin.auth_secret. Send it as "Authorization: Bearer <token>"
to the /api/v1/humanizer routes of a server started with the same secret.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			admin := (*cfg).Admin()
			if ttl <= 0 {
				ttl = admin.TokenTTL
			}
			token, err := adminapi.IssueToken(admin.AuthSecret, subject, ttl, time.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	tokenCmd.Flags().StringVar(&subject, "subject", "operator", "who the token identifies")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default admin.token_ttl)")
	return tokenCmd
}
