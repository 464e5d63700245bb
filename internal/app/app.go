package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/hashgrid/internal/config"
	"github.com/specialistvlad/hashgrid/internal/ctxlog"
	"github.com/specialistvlad/hashgrid/internal/localsession"
	"github.com/specialistvlad/hashgrid/internal/session"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	cfg     *Config
	model   *config.Model
	factory session.SessionFactory
	runID   string

	mu         sync.Mutex
	session    session.Session
	httpServer *http.Server
}

// Option customizes an App.
type Option func(*options)

type options struct {
	logW    io.Writer
	factory session.SessionFactory
}

// WithLogWriter sends logs to w instead of the output writer.
func WithLogWriter(w io.Writer) Option {
	return func(a *options) { a.logW = w }
}

// WithSessionFactory replaces the local session factory.
func WithSessionFactory(f session.SessionFactory) Option {
	return func(a *options) { a.factory = f }
}

// NewApp is the constructor for the main application. It configures an
// isolated logger and loads every grid file named by cfg.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	o := options{logW: outW, factory: &localsession.SessionFactory{}}
	for _, opt := range opts {
		opt(&o)
	}

	runID := uuid.NewString()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, o.logW).With("run", runID)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.GridPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Grid loaded into unified model.", "declarations", len(model.Derivations))

	return &App{
		outW:    outW,
		logger:  logger,
		cfg:     cfg,
		model:   model,
		factory: o.factory,
		runID:   runID,
	}, nil
}

// RunID identifies this run in logs and events.
func (a *App) RunID() string { return a.runID }

func (a *App) currentSession() session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) setSession(s session.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
}
