// Package cli содержит команды portalctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/finportal/internal/config"
	"github.com/magabrotheeeer/finportal/internal/lib/jwt"
	"github.com/magabrotheeeer/finportal/internal/lib/password"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/services/auth"
	"github.com/magabrotheeeer/finportal/internal/storage/repository"
)

var errNoConfig = errors.New("config path is not set: use --config or CONFIG_PATH")

type options struct {
	configPath string
	verbose    bool
}

// Execute собирает дерево команд и выполняет его.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Operator tool for the finportal backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "path to the YAML config (default $CONFIG_PATH)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newCreateAdminCmd(opts))
	cmd.AddCommand(newIssueTokenCmd(opts))
	cmd.AddCommand(newSubscriptionsCmd(opts))

	return cmd
}

func (o *options) load() (*config.Config, error) {
	if o.configPath == "" {
		return nil, errNoConfig
	}
	return config.Load(o.configPath)
}

func (o *options) logger(cfg *config.Config) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: sl.LevelFor(cfg.Env)}))
}

// env — зависимости одной команды.
type env struct {
	cfg   *config.Config
	log   *slog.Logger
	db    *repository.Storage
	users *auth.Service
}

func (o *options) open(ctx context.Context) (*env, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	log := o.logger(cfg)
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	tokens := jwt.NewJWTMaker(cfg.JWTToken.SecretKey, cfg.JWTToken.TokenTTL)
	return &env{
		cfg:   cfg,
		log:   log,
		db:    db,
		users: auth.NewService(db, tokens, password.NewHasher(0), log),
	}, nil
}

func (e *env) close() {
	if err := e.db.Close(); err != nil {
		e.log.Warn("failed to close database", sl.Err(err))
	}
}
