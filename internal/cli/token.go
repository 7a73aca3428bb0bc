package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"footy-quiz-service/internal/auth"
	"footy-quiz-service/internal/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewTokenCmd signs a development access token with the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID    string
		sessionID string
		email     string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			tok, err := auth.NewVerifier(cfg.JWTSecret()).Sign(userID, sessionID, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to put in the token subject")
	cmd.Flags().StringVar(&sessionID, "session", "", "auth session id (random when empty)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
