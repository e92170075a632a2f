package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Google   GoogleConfig
	Facebook FacebookConfig
	Recall   RecallConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	Mode       string   `mapstructure:"mode"`
	Addrs      []string `mapstructure:"addrs"`
	Addr       string   `mapstructure:"addr"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	MasterName string   `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig содержит настройки session credential
type JWTConfig struct {
	// Secret — shared secret для подписи HS256. Обязателен: без него процесс не стартует.
	Secret string `mapstructure:"secret"`
	// ExpirationHrs — окно валидности токена. По умолчанию 168 часов (7 суток).
	ExpirationHrs int `mapstructure:"expirationHrs"`
}

// GoogleConfig содержит client credentials для проверки Google ID токенов
// и обмена auth code (v1 flow).
type GoogleConfig struct {
	WebClientID     string `mapstructure:"web_client_id"`
	WebClientSecret string `mapstructure:"web_client_secret"`
	// RedirectURI для server auth code flow; v1 flow использует "postmessage".
	RedirectURI string `mapstructure:"redirect_uri"`
	// TokenEndpoint и JWKSEndpoint переопределяются только в тестовых стендах;
	// пустые значения означают боевые endpoints Google.
	TokenEndpoint string `mapstructure:"token_endpoint"`
	JWKSEndpoint  string `mapstructure:"jwks_endpoint"`
}

// FacebookConfig содержит app credentials для introspection через debug_token.
type FacebookConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	// GraphBaseURL переопределяется только в тестовых стендах.
	GraphBaseURL string `mapstructure:"graph_base_url"`
}

// RecallConfig содержит настройки брокера cross-device recall.
type RecallConfig struct {
	// KeyFilePath — путь к JSON-ключу сервисного аккаунта.
	KeyFilePath string `mapstructure:"key_file_path"`
	// ProfileCacheTTLSec — TTL кеша профилей в Redis (0 — кеш выключен).
	ProfileCacheTTLSec int `mapstructure:"profile_cache_ttl_sec"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, чтобы избежать глобального состояния

	// Привязываем переменные окружения ЯВНО
	vip.BindEnv("server.port", "SERVER_PORT")

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expirationHrs", "JWT_EXPIRATIONHRS")

	vip.BindEnv("google.web_client_id", "GOOGLE_WEB_CLIENT_ID")
	vip.BindEnv("google.web_client_secret", "GOOGLE_WEB_CLIENT_SECRET")
	vip.BindEnv("google.redirect_uri", "GOOGLE_REDIRECT_URI")

	vip.BindEnv("facebook.app_id", "FACEBOOK_APP_ID")
	vip.BindEnv("facebook.app_secret", "FACEBOOK_APP_SECRET")

	vip.BindEnv("recall.key_file_path", "KEY_FILE_PATH")
	vip.BindEnv("recall.profile_cache_ttl_sec", "RECALL_PROFILE_CACHE_TTL_SEC")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "3000"
	}
	if cfg.JWT.ExpirationHrs <= 0 {
		cfg.JWT.ExpirationHrs = 168
	}
	if cfg.Google.RedirectURI == "" {
		// v1 server auth code flow требует именно это значение
		cfg.Google.RedirectURI = "postmessage"
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("JWT Secret Set: %t", cfg.JWT.Secret != "")
		log.Printf("JWT Expiration Hours: %d", cfg.JWT.ExpirationHrs)
		log.Printf("Google Web Client ID Set: %t", cfg.Google.WebClientID != "")
		log.Printf("Facebook App ID Set: %t", cfg.Facebook.AppID != "")
		log.Printf("Recall Key File: %s", cfg.Recall.KeyFilePath)
		log.Printf("-----------------------------------------")
	}

	return &cfg, nil
}

// ValidateLinking проверяет обязательные параметры для linking-сервиса.
// Любой отсутствующий параметр — отказ в старте процесса.
func (c *Config) ValidateLinking() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT signing secret is required (check JWT_SECRET env var)")
	}
	if c.Google.WebClientID == "" {
		return fmt.Errorf("google web client id is required (check GOOGLE_WEB_CLIENT_ID env var)")
	}
	if c.Google.WebClientSecret == "" {
		return fmt.Errorf("google web client secret is required (check GOOGLE_WEB_CLIENT_SECRET env var)")
	}
	if c.Facebook.AppID == "" || c.Facebook.AppSecret == "" {
		return fmt.Errorf("facebook app credentials are required (check FACEBOOK_APP_ID, FACEBOOK_APP_SECRET env vars)")
	}
	return c.validateDatabase()
}

// ValidateRecall проверяет обязательные параметры для recall-сервиса.
func (c *Config) ValidateRecall() error {
	if c.Recall.KeyFilePath == "" {
		return fmt.Errorf("service account key file path is required (check KEY_FILE_PATH env var)")
	}
	if _, err := os.Stat(c.Recall.KeyFilePath); err != nil {
		return fmt.Errorf("service account key file not found at path %s: %w", c.Recall.KeyFilePath, err)
	}
	return c.validateDatabase()
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	return nil
}
