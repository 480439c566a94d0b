package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Signing schemes accepted by AUTH_SIGNING_SCHEME.
const (
	SchemeHS256 = "HS256"
	SchemeRS256 = "RS256"
	SchemeEdDSA = "EdDSA"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Censor   CensorConfig
	CORS     CORSConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	Backend        string
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig carries the key material and policy for tokens and accounts. It is read
// once at startup and handed to the token provider constructor.
type AuthConfig struct {
	SigningScheme    string
	Secret           string
	PrivateKeyFile   string
	PublicKeyFile    string
	PrivateKeyPEM    []byte
	PublicKeyPEM     []byte
	TokenTTLMinutes  int
	BcryptCost       int
	ModeratorAuthKey string
}

// CensorConfig points at the external bad-words service.
type CensorConfig struct {
	Enabled         bool
	URL             string
	APIKey          string
	TimeoutSeconds  int
	CacheTTLSeconds int
	RatePerSecond   int
	Burst           int
}

// CORSConfig lists what cross-origin callers may do.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

// Load reads configuration from environment variables, applying defaults where possible.
// Missing required values are reported as EnvVarUnset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := getEnv("STORAGE_BACKEND", BackendPostgres)
	var dsn string
	switch backend {
	case BackendPostgres:
		if dsn, err = postgresDSN(); err != nil {
			return nil, err
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", backend)
	}

	authCfg, err := loadAuth()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "qa-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "7878"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			Backend:        backend,
			DSN:            dsn,
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 5)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "warn"),
		},
		Auth: authCfg,
		Censor: CensorConfig{
			Enabled:         getEnvAsBool("CENSOR_ENABLED", true),
			URL:             getEnv("CENSOR_URL", "https://api.apilayer.com/bad_words"),
			APIKey:          os.Getenv("BAD_WORDS_SERVICE_API_KEY"),
			TimeoutSeconds:  getEnvAsInt("CENSOR_TIMEOUT_SECONDS", 5),
			CacheTTLSeconds: getEnvAsInt("CENSOR_CACHE_TTL_SECONDS", 3600),
			RatePerSecond:   getEnvAsInt("CENSOR_RATE_PER_SECOND", 5),
			Burst:           getEnvAsInt("CENSOR_BURST", 10),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnvAsList("CORS_ALLOW_ORIGINS", "http://front-end-service:3000"),
			AllowMethods: getEnvAsList("CORS_ALLOW_METHODS", "PUT,DELETE"),
			AllowHeaders: getEnvAsList("CORS_ALLOW_HEADERS", "content-type"),
		},
	}

	return cfg, nil
}

func loadAuth() (AuthConfig, error) {
	cfg := AuthConfig{
		SigningScheme:    getEnv("AUTH_SIGNING_SCHEME", SchemeHS256),
		Secret:           os.Getenv("AUTH_SECRET"),
		TokenTTLMinutes:  getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 5),
		BcryptCost:       getEnvAsInt("AUTH_BCRYPT_COST", 8),
		ModeratorAuthKey: os.Getenv("MODERATOR_AUTH_KEY"),
		PrivateKeyFile:   os.Getenv("AUTH_PRIVATE_KEY_FILE"),
		PublicKeyFile:    os.Getenv("AUTH_PUBLIC_KEY_FILE"),
	}

	if strings.TrimSpace(cfg.ModeratorAuthKey) == "" {
		return AuthConfig{}, apperrors.EnvVarUnset("MODERATOR_AUTH_KEY")
	}

	switch cfg.SigningScheme {
	case SchemeHS256:
		if cfg.Secret == "" {
			return AuthConfig{}, apperrors.EnvVarUnset("AUTH_SECRET")
		}
	case SchemeRS256, SchemeEdDSA:
		if cfg.PrivateKeyFile == "" {
			return AuthConfig{}, apperrors.EnvVarUnset("AUTH_PRIVATE_KEY_FILE")
		}
		if cfg.PublicKeyFile == "" {
			return AuthConfig{}, apperrors.EnvVarUnset("AUTH_PUBLIC_KEY_FILE")
		}
		priv, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("read private key: %w", err)
		}
		pub, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("read public key: %w", err)
		}
		cfg.PrivateKeyPEM = priv
		cfg.PublicKeyPEM = pub
	default:
		return AuthConfig{}, fmt.Errorf("unsupported AUTH_SIGNING_SCHEME %q", cfg.SigningScheme)
	}

	return cfg, nil
}

// postgresDSN prefers POSTGRES_DSN and otherwise composes one from its parts.
func postgresDSN() (string, error) {
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		return dsn, nil
	}
	parts := []string{"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_DB"}
	values := make(map[string]string, len(parts))
	for _, key := range parts {
		val := os.Getenv(key)
		if val == "" {
			return "", apperrors.EnvVarUnset(key)
		}
		values[key] = val
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(values["POSTGRES_USER"], values["POSTGRES_PASSWORD"]),
		Host:   values["POSTGRES_HOST"] + ":" + values["POSTGRES_PORT"],
		Path:   "/" + values["POSTGRES_DB"],
	}
	return u.String(), nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TokenTTL returns how long issued tokens stay valid.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// Timeout bounds a single call to the censorship service.
func (c CensorConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL is how long censored text is cached.
func (c CensorConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
