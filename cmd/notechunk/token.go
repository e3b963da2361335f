package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-notes/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-notes/internal/core/services"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for an owner",
	Long: `Mint a signed bearer token for local testing against the API.
The secret defaults to $JWT_SECRET.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

var (
	tokenOwner   string
	tokenSubject string
	tokenSecret  string
	tokenIssuer  string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenOwner, "owner", "", "Owner ID carried by the token")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Optional subject claim")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "Signing secret (default $JWT_SECRET)")
	tokenCmd.Flags().StringVar(&tokenIssuer, "issuer", "sercha-notes", "Issuer claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	secret := tokenSecret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		return errors.New("no signing secret: pass --secret or set JWT_SECRET")
	}

	authService := services.NewAuthService(auth.NewAdapter(secret, tokenIssuer), tokenTTL)
	token, err := authService.IssueToken(cmd.Context(), tokenOwner, tokenSubject)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
