package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/soaringjerry/Kringle/internal/ai"
	"github.com/soaringjerry/Kringle/internal/api"
	"github.com/soaringjerry/Kringle/internal/db"
	"github.com/soaringjerry/Kringle/internal/mail"
	"github.com/soaringjerry/Kringle/internal/services"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	cmd := newCmd(cfg)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kringle: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config) error {
	logger, err := newLogger(cfg.verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, cleanup, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	signingKey, err := sessionKey(cfg.sessionSecret, logger)
	if err != nil {
		return err
	}
	auth := services.NewAdminAuth(cfg.adminSecret, cfg.adminSecretHash, signingKey)

	var generator services.Generator
	if cfg.genaiKey != "" {
		client, err := ai.NewClient(ctx, cfg.genaiKey, cfg.genaiModel)
		if err != nil {
			return fmt.Errorf("init genai client: %w", err)
		}
		generator = client
		logger.Info("profile generator enabled")
	} else {
		logger.Info("no genai key set, profiles will use the built-in fallback")
	}
	profiles := services.NewProfileService(generator, logger)

	var mailer *services.MailService
	if cfg.smtpHost != "" {
		sender := mail.NewSMTPSender(cfg.smtpHost, cfg.smtpPort, cfg.smtpUser, cfg.smtpPass, cfg.mailFrom)
		mailer = services.NewMailService(store, sender, cfg.baseURL, logger)
		logger.Info("mail configured", zap.String("host", cfg.smtpHost), zap.String("from", cfg.mailFrom))
	}

	router := api.NewRouter(api.Deps{
		Missions: services.NewMissionService(store, logger),
		Register: services.NewRegisterService(store, profiles, logger),
		Seeds:    services.NewSeedService(store, logger),
		Matches:  services.NewMatchService(store, logger),
		Events:   services.NewEventService(store),
		Mailer:   mailer,
		Auth:     auth,
		BaseURL:  cfg.baseURL,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:         cfg.addr(),
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("baseURL", cfg.baseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newStore(cfg *Config, logger *zap.Logger) (db.Store, func(), error) {
	if cfg.dbPath == "" {
		logger.Warn("no --db path set, using in-memory store; all data is lost on restart")
		return db.NewMemoryStore(), func() {}, nil
	}
	store, err := db.Open(cfg.dbPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("sqlite store ready", zap.String("path", cfg.dbPath))
	return store, func() { _ = store.Close() }, nil
}

// sessionKey returns the admin session signing key. Without an explicit
// secret a random per-boot key is used, which invalidates admin sessions
// across restarts but never weakens them.
func sessionKey(secret string, logger *zap.Logger) ([]byte, error) {
	if secret != "" {
		return []byte(secret), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	logger.Warn("no --session-secret set, admin sessions will not survive a restart")
	return key, nil
}
