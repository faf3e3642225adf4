// Command izposoja runs the rental order tracker server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/izposoja/internal/api"
	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/metrics"
	"github.com/erazemk/izposoja/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds the loaded config and the flags that override it.
type cli struct {
	cfg     *config.Config
	envFile string

	dbPath     string
	addr       string
	logPath    string
	adminEmail string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "izposoja",
		Short:         "Rental equipment order tracker",
		Long:          "Tracks rental orders from booking through checkout, return and completion.\nSettings come from IZPOSOJA_* environment variables; flags override them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", ".env", "optional dotenv file")
	flags.StringVarP(&c.dbPath, "db", "d", "", "SQLite database path")
	flags.StringVarP(&c.addr, "addr", "a", "", "listen address")
	flags.StringVarP(&c.logPath, "log", "l", "", "log file path")
	flags.StringVarP(&c.adminEmail, "admin-email", "u", "", "admin email on first run")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create the database and admin account, then exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.init(cmd)
			},
		},
		&cobra.Command{
			Use:   "reset-password <email|username>",
			Short: "Generate a new password for a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.resetPassword(cmd, args[0])
			},
		},
	)

	return root
}

// load reads the config and applies flags that were set explicitly.
func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = c.dbPath
	}
	if flags.Changed("addr") {
		cfg.Addr = c.addr
	}
	if flags.Changed("log") {
		cfg.LogPath = c.logPath
	}
	if flags.Changed("admin-email") {
		cfg.AdminEmail = c.adminEmail
	}
	c.cfg = cfg
	return nil
}

func (c *cli) serve(ctx context.Context) error {
	cfg := c.cfg

	closeLog, err := setupLogger(cfg.LogLevel, cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	database, password, err := openDatabase(ctx, cfg.DBPath, cfg.AdminEmail, cfg.AdminName)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return err
	}
	defer database.Close()

	if password != "" {
		printCredentials(os.Stdout, "Admin account created:", cfg.AdminEmail, password)
		fmt.Println()
	}
	slog.Info("database ready", "path", cfg.DBPath)

	secret := cfg.JWTSecret
	if secret == "" {
		secret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			slog.Error("failed to get JWT secret", "error", err)
			return err
		}
	}

	handler := api.NewRouter(api.Options{
		DB:             database,
		JWTSecret:      secret,
		TokenTTL:       cfg.TokenTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Metrics:        metrics.New(),
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

func (c *cli) init(cmd *cobra.Command) error {
	cfg := c.cfg
	if _, err := os.Stat(cfg.DBPath); err == nil {
		return fmt.Errorf("database %s already exists", cfg.DBPath)
	}

	database, password, err := openDatabase(cmd.Context(), cfg.DBPath, cfg.AdminEmail, cfg.AdminName)
	if err != nil {
		return err
	}
	defer database.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database created: %s\n\n", cfg.DBPath)
	printCredentials(out, "Admin account created:", cfg.AdminEmail, password)
	return nil
}

func (c *cli) resetPassword(cmd *cobra.Command, login string) error {
	cfg := c.cfg
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return fmt.Errorf("database %s: %w", cfg.DBPath, err)
	}

	database, _, err := openDatabase(cmd.Context(), cfg.DBPath, cfg.AdminEmail, cfg.AdminName)
	if err != nil {
		return err
	}
	defer database.Close()

	user, password, err := resetPassword(cmd.Context(), database, login)
	if err != nil {
		return err
	}
	printCredentials(cmd.OutOrStdout(), "Password reset:", user.Email, password)
	return nil
}
