// Command fridge generates recipes from what is in the fridge.
//
// Usage:
//
//	FRIDGE_API_URL=https://... fridge generate "晚餐想吃清淡的" -i 番茄 -i 雞蛋
//	GEMINI_API_KEY=...        fridge generate --tui
//	ANTHROPIC_API_KEY=...     fridge generate "宵夜" -i 白飯
//	fridge recipes [--group ID]
//	fridge notifications --group ID
//
// Configuration is read from ~/.fridge/config.yaml (or --config /
// FRIDGE_CONFIG), then the environment and a .env file in the working
// directory, then flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fwojciec/fridge"
	"github.com/fwojciec/fridge/cache"
	"github.com/fwojciec/fridge/sqlite"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const recipesView = "recipes"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Env vars are read here and passed as values.
	home, _ := os.UserHomeDir()
	env := Env{
		Home:            home,
		ConfigPath:      os.Getenv("FRIDGE_CONFIG"),
		APIURL:          os.Getenv("FRIDGE_API_URL"),
		APIToken:        os.Getenv("FRIDGE_API_TOKEN"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Database:        os.Getenv("FRIDGE_DB"),
		LogLevel:        os.Getenv("FRIDGE_LOG_LEVEL"),
	}

	a := newApp(env, os.Stdout, os.Stderr)
	defer a.close()
	return a.rootCmd().ExecuteContext(ctx)
}

// app holds what every subcommand shares once configuration is resolved.
type app struct {
	env    Env
	stdout io.Writer
	stderr io.Writer

	configPath string
	flags      Config
	limit      int

	cfg     Config
	logger  *slog.Logger
	logFile *os.File
	store   *sqlite.Store
	views   *cache.Views
}

func newApp(env Env, stdout, stderr io.Writer) *app {
	return &app{
		env:    env,
		stdout: stdout,
		stderr: stderr,
		limit:  sqlite.DefaultListLimit,
		logger: slog.New(slog.DiscardHandler),
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fridge",
		Short:         "AI recipe generation from your fridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to config file (default ~/.fridge/config.yaml)")
	pf.StringVar(&a.flags.Backend, "backend", "", "Backend: http, gemini, anthropic (auto-detected from config if omitted)")
	pf.StringVar(&a.flags.APIURL, "api-url", "", "Recipe service base URL")
	pf.StringVar(&a.flags.Database, "db", "", "SQLite database path (default ~/.fridge/fridge.db)")
	pf.StringVar(&a.flags.GroupID, "group", "", "Group the recipes belong to")
	pf.StringVar(&a.flags.UserID, "user", "", "User generating the recipes")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.flags.LogFormat, "log-format", "", "Log format: text, json")
	pf.StringVar(&a.flags.LogFile, "log-file", "", "Write logs to this file instead of stderr")

	root.AddCommand(a.generateCmd(), a.recipesCmd(), a.notificationsCmd())
	return root
}

// setup resolves configuration and opens the shared store.
func (a *app) setup(ctx context.Context) error {
	cfg, err := resolveConfig(a.configPath, a.env, a.flags)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logOut := a.stderr
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o700); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		logOut = f
	}
	logger, err := newLogger(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.logger = logger

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o700); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	store, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.store = store

	a.views = cache.New(cache.WithLogger(logger))
	a.views.Register(recipesView, func(ctx context.Context) (any, error) {
		return a.store.ListRecipes(ctx, sqlite.RecipeFilter{Limit: a.limit})
	})
	if cfg.GroupID != "" {
		groupID := cfg.GroupID
		a.views.Register(fridge.GroupRecipesViewKey(groupID), func(ctx context.Context) (any, error) {
			return a.store.ListRecipes(ctx, sqlite.RecipeFilter{GroupID: groupID, Limit: a.limit})
		})
	}
	logger.Debug("configured", "database", cfg.Database, "group_id", cfg.GroupID)
	return nil
}

// historyView returns the cache key listing the configured scope.
func (a *app) historyView() string {
	if a.cfg.GroupID != "" {
		return fridge.GroupRecipesViewKey(a.cfg.GroupID)
	}
	return recipesView
}

func (a *app) history(ctx context.Context) ([]sqlite.SavedRecipe, error) {
	v, err := a.views.Get(ctx, a.historyView())
	if err != nil {
		return nil, err
	}
	recipes, _ := v.([]sqlite.SavedRecipe)
	return recipes, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
