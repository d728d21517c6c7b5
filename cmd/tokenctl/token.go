package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/session-service/internal/auth"
)

func newIssueCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:     "issue",
		Short:   "Sign a token for a subject",
		Example: "  tokenctl issue --subject alice --ttl 15m\n  tokenctl issue --subject alice --ttl -1s   # already expired",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, tokens, err := loadTokenService()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = tokens.TTL()
			}
			issued, err := tokens.Encode(subject, time.Now(), ttl)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), signedView(issued))
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "username the token asserts")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: AUTH_ACCESS_TOKEN_TTL_MINUTES)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token's signature and print its claims, expired or not",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tokens, err := loadTokenService()
			if err != nil {
				return err
			}
			claims, err := tokens.Decode(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tokenView{
				ID:        claims.ID,
				Subject:   claims.Subject,
				Issuer:    claims.Issuer,
				IssuedAt:  claims.IssuedAt.UTC(),
				ExpiresAt: claims.ExpiresAt.UTC(),
				Expired:   !time.Now().Before(claims.ExpiresAt.Time),
			})
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <token>",
		Short: "Rotate a valid token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tokens, err := loadTokenService()
			if err != nil {
				return err
			}
			rotated, err := tokens.Refresh(args[0])
			if errors.Is(err, auth.ErrTokenExpired) {
				return fmt.Errorf("%w: log in again to obtain a new token", err)
			}
			if err != nil {
				return fmt.Errorf("cannot refresh: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), signedView(rotated))
		},
	}
}
