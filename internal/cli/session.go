package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ordered/internal/config"
	"github.com/roach88/ordered/internal/order"
	"github.com/roach88/ordered/internal/store"
)

// session is what a database command works with: the resolved config,
// an open store and an Orderer over it.
type session struct {
	cfg     config.Config
	store   *store.Store
	orderer *order.Orderer
	logger  *slog.Logger
	out     *OutputFormatter
}

// openSession loads the config, applies flag overrides and opens the store.
// Callers must Close the session.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		if out.Format == "json" {
			_ = out.Error(ErrCodeConfig, "failed to load config", err.Error())
		}
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	logLevel := cfg.SlogLevel()
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	st, err := store.Open(cfg.Database,
		store.WithDriver(cfg.Driver),
		store.WithLogger(logger),
		store.WithBusyTimeout(cfg.BusyTimeout()),
	)
	if err != nil {
		if out.Format == "json" {
			_ = out.Error(ErrCodeStore, "failed to open database", err.Error())
		}
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", "path", cfg.Database, "driver", cfg.Driver)

	return &session{
		cfg:     cfg,
		store:   st,
		orderer: order.New(st, order.WithLogger(logger)),
		logger:  logger,
		out:     out,
	}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// scope returns the --scope flag when it was given, otherwise the
// configured default scope.
func (s *session) scope(cmd *cobra.Command, flag string) string {
	if cmd.Flags().Changed("scope") {
		return store.NormalizeScope(flag)
	}
	return store.NormalizeScope(s.cfg.DefaultScope)
}

// fail reports err in the configured format and returns the matching
// ExitError. Unknown or ambiguous references are command errors; anything
// else from the store is a failure.
func (s *session) fail(message string, err error) error {
	code, exit := ErrCodeStore, ExitFailure
	switch {
	case errors.Is(err, store.ErrNotFound):
		code, exit = ErrCodeNotFound, ExitCommandError
	case errors.Is(err, store.ErrAmbiguous):
		code, exit = ErrCodeAmbiguous, ExitCommandError
	case errors.Is(err, store.ErrInvalidRecord):
		code, exit = ErrCodeInvalid, ExitCommandError
	}

	if s.out.Format == "json" {
		_ = s.out.Error(code, message, err.Error())
	}
	return WrapExitError(exit, message, err)
}
