package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/content-pipeline/internal/server"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API bearer token",
	Long:  `Sign an HS256 bearer token with SECRET_KEY for calling the API when authentication is enabled.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject, e.g. a service or operator name (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to ACCESS_TOKEN_EXPIRE_MINUTES)")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	jwtCfg, err := settings.JWT()
	if err != nil {
		return err
	}
	if jwtCfg == nil {
		return errors.New("SECRET_KEY is required to mint tokens")
	}

	token, expiresAt, err := server.NewJWTService(jwtCfg).GenerateToken(tokenSubject, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
	return nil
}
