package cli

import (
	"fmt"
	"time"

	"github.com/martijn/harvestd/internal/core/service"
	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a bearer token for the API",
	Long:  "Issue a signed bearer token using jwt_secret_key from the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.AuthEnabled() {
			return fmt.Errorf("authentication is disabled: set jwt_secret_key in %s", cfg.ConfigPath)
		}

		tokens := service.NewTokenService(cfg.JWTSecretKey, cfg.JWTAlgorithm)
		token, err := tokens.Issue(tokenSubject, tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}

		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)

	tokenIssueCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "Token subject")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", service.DefaultTokenTTL, "Token lifetime")
}
