package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NOTMORSE-PROG/vocanova/internal/auth"
	"github.com/NOTMORSE-PROG/vocanova/internal/config"
	"github.com/NOTMORSE-PROG/vocanova/internal/delivery/telegram"
	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/event"
	"github.com/NOTMORSE-PROG/vocanova/internal/infra/memory"
	"github.com/NOTMORSE-PROG/vocanova/internal/infra/mongo"
	"github.com/NOTMORSE-PROG/vocanova/internal/infra/postgres"
	"github.com/NOTMORSE-PROG/vocanova/internal/infra/redis"
	"github.com/NOTMORSE-PROG/vocanova/internal/logger"
	"github.com/NOTMORSE-PROG/vocanova/internal/metrics"
	"github.com/NOTMORSE-PROG/vocanova/internal/repository"
	"github.com/NOTMORSE-PROG/vocanova/internal/service"
	"github.com/NOTMORSE-PROG/vocanova/internal/video"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("bot stopped with error", zap.Error(err))
	}
	lg.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		return err
	}
	bot.Debug = cfg.Env == "local"
	lg.Info("authorized on account", zap.String("username", bot.Self.UserName))

	// Set commands.
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Start the bot"},
		{Command: "word", Description: "Word of the day"},
		{Command: "quiz", Description: "Take a quiz"},
		{Command: "video", Description: "Video lessons"},
		{Command: "shop", Description: "Buy power-ups"},
		{Command: "balance", Description: "Coins and power-ups"},
		{Command: "achievements", Description: "Your achievements"},
		{Command: "history", Description: "Quiz history"},
		{Command: "saved", Description: "Saved words"},
		{Command: "help", Description: "Help"},
	}
	if _, err := bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		lg.Warn("failed to set bot commands", zap.Error(err))
	}

	store, closeStore, err := openStore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens, closeTokens, err := openTokenStore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeTokens()

	publisher, err := event.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, lg)
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	m := metrics.New()

	// Initialize repositories.
	questionRepo, err := repository.NewQuestionRepository()
	if err != nil {
		return err
	}
	wordRepo, err := repository.NewWordRepository()
	if err != nil {
		return err
	}
	lessonRepo, err := repository.NewLessonRepository()
	if err != nil {
		return err
	}
	if err := wordRepo.Publish(ctx, store); err != nil {
		lg.Warn("failed to publish word catalog", zap.Error(err))
	}

	inventoryRepo := repository.NewPowerUpRepository(store)
	resultRepo := repository.NewQuizResultRepository(store)
	savedWordRepo := repository.NewSavedWordRepository(store)

	// Initialize services.
	authProvider := auth.NewProvider(store, tokens, auth.NewLogMailer(lg), auth.Config{
		SessionTTL: cfg.Auth.SessionTTL,
		ResetTTL:   cfg.Auth.ResetTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, lg)
	userService := service.NewUserService(store, lessonRepo, resultRepo, publisher, m, lg)
	achievementService := service.NewAchievementService(store, publisher, m, lg)
	shopService := service.NewShopService(store, repository.NewPowerUpCatalog(), publisher, m, lg)
	wordService := service.NewWordService(wordRepo, savedWordRepo, cfg.DailyWord.Schedule, lg)

	quizFactory := service.NewQuizEngineFactory(
		questionRepo,
		service.NewInventoryService(store),
		resultRepo,
		userService,
		achievementService,
		publisher,
		service.QuizConfig{
			FreezeDuration:   cfg.Quiz.FreezeDuration,
			ReverseAnimation: cfg.Quiz.ReverseAnimation,
		},
		lg,
		service.WithInventoryWatch(store),
		service.WithQuizMetrics(m),
	)

	handler := telegram.NewHandler(
		bot,
		lg,
		telegram.Services{
			Auth:         authProvider,
			Users:        userService,
			Shop:         shopService,
			Achievements: achievementService,
			Words:        wordService,
			Inventory:    inventoryRepo,
			NewQuiz: func(uid string, refresh docstore.RefreshFunc) telegram.QuizEngine {
				return quizFactory.New(uid, refresh)
			},
		},
		video.NewClockPlayer,
		m,
		telegram.Config{
			QuestionTime:   cfg.Quiz.QuestionTime,
			FreezeDuration: cfg.Quiz.FreezeDuration,
		},
	)
	defer handler.Shutdown()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := handler.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		wordService.Start(gctx)
		return nil
	})

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(m),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			lg.Info("metrics server started", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// openStore connects the configured document store backend.
func openStore(ctx context.Context, cfg *config.Config, lg *zap.Logger) (docstore.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		dsn, err := cfg.DB.DSN()
		if err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
			MaxConns:        int32(cfg.DB.MaxConnections),
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		lg.Info("using postgres document store")
		return postgres.NewStore(pool, lg), pool.Close, nil

	case config.BackendMongo:
		client, err := mongo.NewClient(ctx, mongo.ClientConfig{
			URI:             cfg.Mongo.URI,
			MaxPoolSize:     cfg.Mongo.MaxPoolSize,
			MinPoolSize:     cfg.Mongo.MinPoolSize,
			MaxConnIdleTime: cfg.Mongo.MaxConnIdleTime,
			ConnectTimeout:  10 * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		closeClient := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}

		store := mongo.NewStore(client, cfg.Mongo.Database, lg)
		if err := store.EnsureIndexes(ctx); err != nil {
			closeClient()
			return nil, nil, err
		}
		lg.Info("using mongo document store", zap.String("database", cfg.Mongo.Database))
		return store, closeClient, nil

	default:
		lg.Warn("using in-memory document store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
}

// openTokenStore uses Redis when it is reachable and falls back to memory
// for local runs.
func openTokenStore(ctx context.Context, cfg *config.Config, lg *zap.Logger) (auth.TokenStore, func(), error) {
	client, err := redis.NewClient(ctx, redis.ClientConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.Env == "production" {
			return nil, nil, err
		}
		lg.Warn("redis unavailable, keeping sessions in memory", zap.Error(err))
		return memory.NewTokenStore(), func() {}, nil
	}

	return redis.NewTokenStore(client, cfg.Redis.KeyPrefix), func() { _ = client.Close() }, nil
}
