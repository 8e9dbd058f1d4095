package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/config"
	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/mail"
	"github.com/vovakirdan/supportchat-server/internal/moderation"
	"github.com/vovakirdan/supportchat-server/internal/service/messages"
	"github.com/vovakirdan/supportchat-server/internal/service/uploads"
	"github.com/vovakirdan/supportchat-server/internal/service/users"
	"github.com/vovakirdan/supportchat-server/internal/service/wordlist"
	"github.com/vovakirdan/supportchat-server/internal/store"
	"github.com/vovakirdan/supportchat-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/supportchat-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// JWTConfig derives token settings from cfg.
func JWTConfig(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
}

// OpenStore opens the database and applies the schema.
func OpenStore(ctx context.Context, cfg *config.Config) (*sqlite.SQLiteStore, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return st, nil
}

// NewServices builds the chat core and every service on top of st.
func NewServices(st store.Store, cfg *config.Config, logger *zerolog.Logger) transporthttp.Services {
	authService := auth.NewService(st, mail.NewSMTPMailer(cfg.MailTimeout), JWTConfig(cfg))
	userService := users.New(st)
	messageService := messages.New(st)
	wordList := moderation.NewList(st)

	hub := core.NewHub(core.NewMemoryRegistry(), logger)
	pipeline := core.NewPipeline(userService, wordList, messageService, hub, logger)
	gate := core.NewGate(authService, userService, hub, pipeline, cfg.PipelineTimeout, logger)

	return transporthttp.Services{
		Gate:     gate,
		Auth:     authService,
		Users:    userService,
		Messages: messageService,
		WordList: wordlist.New(st, wordList),
		Uploads:  uploads.New(cfg.UploadDir, cfg.UploadMaxBytes),
	}
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	server := transporthttp.NewServer(NewServices(st, cfg, logger), cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
