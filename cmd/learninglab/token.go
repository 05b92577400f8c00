package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/learninglab-backend/internal/app"
	"github.com/yungbote/learninglab-backend/internal/services"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local testing",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id to embed (random when empty)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	userID, err := parseUser(tokenUser)
	if err != nil {
		return err
	}
	secret, err := app.JWTSecret(cfg, log)
	if err != nil {
		return err
	}
	auth, err := services.NewAuthService(log, secret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}
	tok, err := auth.IssueToken(userID, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "user: %s\n", userID)
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

func parseUser(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --user: %w", err)
	}
	return id, nil
}
