package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"portal/internal/app"
	"portal/internal/auth"
	"portal/internal/config"
	pkgdatabase "portal/pkg/database"
	"portal/pkg/logger"
	"portal/pkg/types"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. Every subcommand loads configuration the same
// way: defaults, then --config, then PORTAL_* environment variables.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "portal",
		Short:         "Student Interaction Portal messaging server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (yaml, json or toml)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(cfg.Env, cfg.Log.Level)
		return cfg, nil
	}

	root.AddCommand(newServeCmd(load), newMigrateCmd(load), newTokenCmd(load))
	return root
}

type configLoader func() (*config.Config, error)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

// serve runs until SIGINT or SIGTERM, then shuts down gracefully
func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create application")
	}
	if err := application.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	// Timeout context prevents hanging shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return application.Stop(shutdownCtx)
}

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and validate the schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			db, err := pkgdatabase.Open(&cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := app.Migrate(db, &cfg.Database)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			}
			for _, version := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", version)
			}
			return nil
		},
	}
}

func newTokenCmd(load configLoader) *cobra.Command {
	var (
		userID string
		role   string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development JWT for a user (auth.mode=jwt)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Auth.Mode != auth.ModeJWT {
				return errors.Errorf("tokens are only used in %s mode, configured mode is %s", auth.ModeJWT, cfg.Auth.Mode)
			}
			if !types.IsValidID(userID) {
				return errors.Errorf("invalid user id %q", userID)
			}

			issuer, err := auth.NewJWTAuthenticator(cfg.Auth.Secret, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(userID, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id placed in the token subject")
	cmd.Flags().StringVar(&role, "role", types.RoleStudent, "role claim")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
