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
	"github.com/yourusername/gamelink-api/internal/handler"
	"github.com/yourusername/gamelink-api/internal/middleware"
	pgRepo "github.com/yourusername/gamelink-api/internal/repository/postgres"
	"github.com/yourusername/gamelink-api/internal/service"
	"github.com/yourusername/gamelink-api/pkg/auth"
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
	// Процесс не стартует без обязательных секретов
	if err := cfg.ValidateLinking(); err != nil {
		log.Printf("Invalid configuration: %v", err)
		os.Exit(1)
	}

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

	// Инициализируем репозитории
	accountRepo := pgRepo.NewAccountRepo(db)
	linkRepo := pgRepo.NewIdentityLinkRepo(db)

	// Session credential сервис. Отсутствие секрета — фатальная ошибка старта.
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Верификаторы провайдеров
	googleVerifier := service.NewGoogleVerifier(cfg.Google)
	facebookVerifier := service.NewFacebookVerifier(cfg.Facebook)

	linkService, err := service.NewLinkService(googleVerifier, facebookVerifier, linkRepo, accountRepo, jwtService)
	if err != nil {
		log.Printf("Failed to initialize LinkService: %v", err)
		os.Exit(1)
	}
	progressService, err := service.NewProgressService(accountRepo)
	if err != nil {
		log.Printf("Failed to initialize ProgressService: %v", err)
		os.Exit(1)
	}

	linkHandler := handler.NewLinkHandler(linkService, progressService)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

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

	// Rate limiting включается только при настроенном Redis:
	// linking endpoints стоят сетевого вызова к провайдеру на каждую попытку.
	linkRoutes := router.Group("/")
	if cfg.Redis.Addr != "" || len(cfg.Redis.Addrs) > 0 {
		redisClient, redisErr := database.NewUniversalRedisClient(cfg.Redis)
		if redisErr != nil {
			log.Printf("Failed to connect to Redis: %v. Rate limiting disabled.", redisErr)
		} else {
			log.Println("Successfully connected to Redis")
			rateLimiter := middleware.NewRateLimiter(redisClient)
			linkRoutes.Use(rateLimiter.Limit(middleware.DefaultLinkRateLimitConfig()))
		}
	} else {
		log.Println("Redis не сконфигурирован, rate limiting выключен")
	}

	{
		linkRoutes.POST("/verify_and_link_google", linkHandler.VerifyAndLinkGoogle)
		linkRoutes.POST("/exchange_authcode_and_link", linkHandler.ExchangeAuthCodeAndLink)
		linkRoutes.POST("/verify_and_link_facebook", linkHandler.VerifyAndLinkFacebook)
	}

	router.POST("/post_count", authMiddleware.RequireSession(), linkHandler.PostCount)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting linking server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
