package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paperdesk/paperchat-server/internal/app"
	"github.com/paperdesk/paperchat-server/internal/auth"
	"github.com/paperdesk/paperchat-server/internal/config"
	"github.com/paperdesk/paperchat-server/internal/log"
	"github.com/paperdesk/paperchat-server/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "paperchat-server",
		Short:        "Paper-scoped messaging server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(serveCmd(&configPath), genTokenCmd(&configPath))
	return root
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the messaging server",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootstrapLogger := log.New("info", "console")
			cfg, path, err := config.Load(bootstrapLogger, *configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := log.New(cfg.LogLevel, cfg.LogFormat)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting paperchat server")

			if cfg.JWTSecret == "" {
				return fmt.Errorf("jwt_secret must be configured")
			}

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

// genTokenCmd mints a development bearer token. Production tokens come from
// the platform's identity service; this exists for local testing against a
// seeded database.
func genTokenCmd(configPath *string) *cobra.Command {
	var (
		userID int64
		name   string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "gentoken",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(nil, *configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("jwt_secret must be configured")
			}

			jwtCfg := &auth.JWTConfig{
				Secret:   []byte(cfg.JWTSecret),
				Issuer:   cfg.JWTIssuer,
				Audience: cfg.JWTAudience,
				TTL:      ttl,
			}
			token, err := auth.GenerateToken(jwtCfg, userID, name, store.Role(role))
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "student", "role (teacher or student)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
