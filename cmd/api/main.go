package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ourhouse/backend/internal/config"
	"github.com/ourhouse/backend/internal/handler"
	"github.com/ourhouse/backend/internal/handler/stage"
	"github.com/ourhouse/backend/internal/model/persona"
	"github.com/ourhouse/backend/internal/service/ai"
	"github.com/ourhouse/backend/internal/service/chat"
	"github.com/ourhouse/backend/internal/service/chat/sqlite"
	"github.com/ourhouse/backend/internal/service/dialogue"
	"github.com/ourhouse/backend/internal/service/fortune"
	"github.com/ourhouse/backend/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		logger.WithError(envErr).Debug("no .env file, using process environment only")
	}

	personaStore, err := loadPersonas(cfg.Persona)
	if err != nil {
		logger.WithError(err).Fatal("failed to load personas")
	}

	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		logger.WithError(err).Fatal("failed to open conversation store")
	}
	defer closeStore()

	var (
		generator dialogue.Generator = ai.NewScripted()
		teller    fortune.Teller
	)
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI, cfg.Dialogue.HistoryLimit, logger)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize AI service, falling back to scripted lines")
		} else {
			generator = aiService
			teller = aiService
			logger.Info("AI service initialized successfully")
		}
	} else {
		logger.Info("Ark 凭证未配置，使用预设台词")
	}

	dialogueSvc := dialogue.New(store, personaStore, generator,
		dialogue.WithTimeout(cfg.Dialogue.Timeout),
		dialogue.WithLogger(logger),
	)

	router := handler.NewRouter(handler.Deps{
		Personas: personaStore,
		Dialogue: dialogueSvc,
		Fortune:  fortune.NewService(teller),
		Stage: stage.Config{
			SeedGreeting:   cfg.Dialogue.SeedGreeting,
			TypingInterval: cfg.Dialogue.TypingInterval,
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.WithField("addr", srv.Addr).Info("house backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}

func loadPersonas(cfg config.PersonaConfig) (*persona.MemoryStore, error) {
	if cfg.File == "" {
		return persona.NewMemoryStore(persona.Seed()), nil
	}
	items, err := persona.LoadFile(cfg.File)
	if err != nil {
		return nil, err
	}
	return persona.NewMemoryStore(items), nil
}

func openStore(cfg config.StorageConfig) (chat.Store, func(), error) {
	if cfg.Path == "" {
		return chat.NewMemoryStore(), func() {}, nil
	}
	store, err := sqlite.Open(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
