// Точка входа сервиса хостинга подкастов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// инициализирует блоб-хранилище, сервисный слой и API handlers,
// запускает HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/dlinov/podcasts-hosting/internal/api/handlers"
	"github.com/dlinov/podcasts-hosting/internal/api/middleware"
	"github.com/dlinov/podcasts-hosting/internal/config"
	"github.com/dlinov/podcasts-hosting/internal/database"
	"github.com/dlinov/podcasts-hosting/internal/repository"
	"github.com/dlinov/podcasts-hosting/internal/server"
	"github.com/dlinov/podcasts-hosting/internal/service"
	"github.com/dlinov/podcasts-hosting/internal/storage/blobstore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Podcasts Hosting запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Блоб-хранилище на диске
	store, err := blobstore.NewFileStore(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации блоб-хранилища",
			slog.String("data_dir", cfg.DataDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("Блоб-хранилище готово", slog.String("data_dir", cfg.DataDir))

	// 6. Repositories и services
	audioRepo := repository.NewAudioRepository(pool)
	uploadSvc := service.NewUploadService(cfg, store, audioRepo, logger)
	audioSvc := service.NewAudioService(store, audioRepo, logger)
	feedSvc := service.NewFeedService(cfg, audioRepo, logger)

	// 7. API handlers
	h := server.Handlers{
		Audios: handlers.NewAudiosHandler(cfg, uploadSvc, audioSvc),
		Feed:   handlers.NewFeedHandler(feedSvc),
		Health: handlers.NewHealthHandler(cfg.DataDir, database.NewReadinessChecker(pool)),
	}

	// 8. Middleware: метрики, логирование, JWT
	middlewares := []func(http.Handler) http.Handler{
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	}

	if cfg.JWKSURL != "" {
		jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWKSURL,
			CACertPath:      cfg.CACertPath,
			TLSSkipVerify:   cfg.TLSSkipVerify,
			ClientTimeout:   cfg.JWKSClientTimeout,
			RefreshInterval: cfg.JWKSRefreshInterval,
			JWTLeeway:       cfg.JWTLeeway,
		}, logger)
		if err != nil {
			logger.Error("Ошибка инициализации JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// Фид, скачивание, probes и метрики остаются публичными
		middlewares = append(middlewares, server.JWTAuthWithExclusions(
			jwtAuth.Middleware(),
			"/feed.rss",
			"/download/",
			"/health/",
			"/metrics",
		))
		logger.Info("JWT-аутентификация включена", slog.String("jwks_url", cfg.JWKSURL))
	} else {
		logger.Warn("PH_JWKS_URL не задан, API работает без аутентификации")
	}

	// 9. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, h, middlewares...)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Podcasts Hosting остановлен")
}
