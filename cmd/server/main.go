package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/supportchat-server/internal/app"
	"github.com/vovakirdan/supportchat-server/internal/config"
	"github.com/vovakirdan/supportchat-server/internal/log"
	"github.com/vovakirdan/supportchat-server/internal/service/users"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	addr       string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "supportchat-server",
		Short:         "Customer support chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	serve.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides config)")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			st, err := app.OpenStore(cmd.Context(), &cfg)
			if err != nil {
				return err
			}
			logger.Info().Str("db_path", cfg.DatabasePath).Msg("schema applied")
			return st.Close()
		},
	}

	var email, password string
	createAdmin := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			st, err := app.OpenStore(cmd.Context(), &cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			u, err := users.New(st).Create(cmd.Context(), email, password, store.RoleAdmin)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			logger.Info().Int64("user_id", u.ID).Str("email", u.Email).Msg("admin created")
			return nil
		},
	}
	createAdmin.Flags().StringVar(&email, "email", "", "admin email")
	createAdmin.Flags().StringVar(&password, "password", "", "admin password")
	_ = createAdmin.MarkFlagRequired("email")
	_ = createAdmin.MarkFlagRequired("password")

	root.AddCommand(serve, migrate, createAdmin)
	return root
}

func loadConfig(opts *options) (config.Config, *zerolog.Logger, error) {
	bootstrap := log.New("info")
	cfg, path, err := config.Load(bootstrap, opts.configPath)
	if err != nil {
		return cfg, bootstrap, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.UpdateFrom(config.Config{Addr: opts.addr})

	logger := log.NewWithOutput(cfg.LogLevel, cfg.Production, os.Stdout)
	return cfg, logger, nil
}

func runServe(ctx context.Context, opts *options) error {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting supportchat server")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
