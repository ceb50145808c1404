package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sellerdash/backend/internal/infrastructure/auth"
)

var (
	tokenSubject string
	tokenScopes  []string
	tokenTTL     time.Duration
)

// tokenCmd issues an operator token for the write endpoints
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token",
	Long: `Sign a bearer token with auth.jwt_secret. Tokens with the sync:write scope may
trigger synchronizations through the API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens := auth.NewTokenService(cfg.Auth)
		for _, s := range tokenScopes {
			if s != auth.ScopeSyncWrite && s != auth.ScopeReadOnly {
				return fmt.Errorf("unknown scope %q", s)
			}
		}
		token, expiresAt, err := tokens.Issue(tokenSubject, tokenScopes, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token owner, e.g. an email address")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", []string{auth.ScopeSyncWrite}, "Granted scopes")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Lifetime (default auth.token_ttl)")
	_ = tokenCmd.MarkFlagRequired("subject")
}
