package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tokenctl",
		Short: "Issue, inspect and rotate session tokens",
		Long: `tokenctl works with the same signing secret and token settings as the
session service (AUTH_JWT_SECRET and friends, read from the environment or .env).`,
		SilenceUsage: true,
	}

	root.AddCommand(newIssueCmd(), newInspectCmd(), newRefreshCmd(), newUserCmd())
	return root
}

func loadTokenService() (*config.Config, *auth.TokenService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		TTL:    cfg.Auth.AccessTokenTTL(),
		Issuer: cfg.Auth.Issuer,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, tokens, nil
}

type tokenView struct {
	Token     string    `json:"token,omitempty"`
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
}

func signedView(t *auth.SignedToken) tokenView {
	return tokenView{
		Token:     t.Value,
		ID:        t.ID,
		Subject:   t.Subject,
		IssuedAt:  t.IssuedAt.UTC(),
		ExpiresAt: t.ExpiresAt.UTC(),
		Expired:   !time.Now().Before(t.ExpiresAt),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
