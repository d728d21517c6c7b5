package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/config"
	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/observability"
	"github.com/spec-kit/session-service/internal/persistence"
	"github.com/spec-kit/session-service/internal/repository"
	"github.com/spec-kit/session-service/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts in the Postgres user store",
	}
	cmd.AddCommand(newUserAddCmd(), newUserStatusCmd("suspend", domain.UserStatusSuspended), newUserStatusCmd("activate", domain.UserStatusActive))
	return cmd
}

// withAuthService opens the user store for the duration of fn.
func withAuthService(ctx context.Context, fn func(*service.AuthService) error) error {
	cfg, tokens, err := loadTokenService()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.App, config.LoggerConfig{Level: "warn"})
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		return errors.New("POSTGRES_DSN is required for user management")
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return err
		}
	}

	return fn(service.NewAuthService(service.AuthDependencies{
		Users:      repository.NewUserRepository(pg.PoolHandle()),
		Tokens:     tokens,
		Logger:     logger.With(zap.String("component", "tokenctl")),
		BcryptCost: cfg.Auth.BcryptCost,
	}))
}

func newUserAddCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an active account (password read from stdin when --password is omitted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			return withAuthService(cmd.Context(), func(svc *service.AuthService) error {
				user, err := svc.CreateUser(cmd.Context(), username, password)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Username, user.ID)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name, used as the token subject")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newUserStatusCmd(verb string, status domain.UserStatus) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <username>",
		Short: fmt.Sprintf("Mark an account %s", strings.ToLower(string(status))),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuthService(cmd.Context(), func(svc *service.AuthService) error {
				if err := svc.SetUserStatus(cmd.Context(), args[0], status); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], status)
				return err
			})
		},
	}
}
