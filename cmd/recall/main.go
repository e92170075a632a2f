package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/gamelink-api/internal/config"
	"github.com/yourusername/gamelink-api/internal/domain/repository"
	"github.com/yourusername/gamelink-api/internal/handler"
	pgRepo "github.com/yourusername/gamelink-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/gamelink-api/internal/repository/redis"
	"github.com/yourusername/gamelink-api/internal/service"
	"github.com/yourusername/gamelink-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}
	if err := cfg.ValidateRecall(); err != nil {
		log.Printf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	profileRepo := pgRepo.NewPlayerProfileRepo(db)

	// Кеш профилей опционален: без Redis сервис работает напрямую с БД.
	var cacheRepo repository.CacheRepository
	if cfg.Redis.Addr != "" || len(cfg.Redis.Addrs) > 0 {
		redisClient, redisErr := database.NewUniversalRedisClient(cfg.Redis)
		if redisErr != nil {
			log.Printf("Failed to connect to Redis: %v. Profile cache disabled.", redisErr)
		} else {
			log.Println("Successfully connected to Redis")
			repo, cacheErr := redisRepo.NewCacheRepo(redisClient)
			if cacheErr != nil {
				log.Printf("Failed to initialize cache repository: %v. Profile cache disabled.", cacheErr)
			} else {
				cacheRepo = repo
			}
		}
	} else {
		log.Println("Redis не сконфигурирован, кеш профилей выключен")
	}

	// Клиент брокера. Проблема с ключом сервисного аккаунта — фатальна:
	// без брокера recall-сервис бесполезен.
	broker, err := service.NewGamesRecallClient(ctx, cfg.Recall.KeyFilePath)
	if err != nil {
		log.Printf("Failed to initialize recall broker client: %v", err)
		os.Exit(1)
	}

	cacheTTL := time.Duration(cfg.Recall.ProfileCacheTTLSec) * time.Second
	recallService, err := service.NewRecallService(broker, profileRepo, cacheRepo, cacheTTL)
	if err != nil {
		log.Printf("Failed to initialize RecallService: %v", err)
		os.Exit(1)
	}

	recallHandler := handler.NewRecallHandler(recallService)

	isProduction := gin.Mode() == gin.ReleaseMode

	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/", recallHandler.Root)
	router.POST("/recall-session", recallHandler.RecallSession)
	router.POST("/create-account", recallHandler.CreateAccount)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting recall server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
