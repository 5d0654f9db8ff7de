package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings is the process configuration. Values come from the environment
// (after .env is loaded) and, when present, configs/config.yaml.
type Settings struct {
	Port      string
	GinMode   string
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	LogLevel       string
	LogFormat      string
	AllowedOrigins []string

	PostgresURI string
	MongoURI    string
	MongoDB     string
	RedisAddr   string
	RabbitMQURL string
	MailQueue   string

	// CacheNamespace prefixes Redis cache keys.
	CacheNamespace string

	GCSBucket        string
	GCSPublicURL     string
	GCSUniformAccess bool

	VertexProject  string
	VertexLocation string
	VertexModel    string

	DefaultExpectedScore float64
	ScoreCacheTTL        time.Duration
	ResetTokenTTL        time.Duration

	AuthRateLimit   int
	ImportRateLimit int
	RateWindow      time.Duration

	SnapshotWorkers int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("JWT_ISSUER", "skillradar")
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MONGO_DB", "skillradar")
	v.SetDefault("MAIL_QUEUE", "mail_jobs")
	v.SetDefault("CACHE_NAMESPACE", "skillradar")
	v.SetDefault("VERTEX_LOCATION", "europe-west1")
	v.SetDefault("VERTEX_MODEL", "gemini-1.5-flash")
	v.SetDefault("DEFAULT_EXPECTED_SCORE", 70.0)
	v.SetDefault("SCORE_CACHE_TTL", "5m")
	v.SetDefault("RESET_TOKEN_TTL", "48h")
	v.SetDefault("AUTH_RATE_LIMIT", 20)
	v.SetDefault("IMPORT_RATE_LIMIT", 5)
	v.SetDefault("RATE_WINDOW", "1m")
	v.SetDefault("SNAPSHOT_WORKERS", 3)
}

// LoadSettings reads configuration. A missing config file is not an error;
// a missing JWT_SECRET is.
func LoadSettings() (*Settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	redisAddr := v.GetString("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = v.GetString("REDIS_URL")
	}

	s := &Settings{
		Port:      v.GetString("PORT"),
		GinMode:   v.GetString("GIN_MODE"),
		JWTSecret: v.GetString("JWT_SECRET"),
		JWTIssuer: v.GetString("JWT_ISSUER"),
		TokenTTL:  v.GetDuration("TOKEN_TTL"),

		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),

		PostgresURI: v.GetString("POSTGRES_URI"),
		MongoURI:    v.GetString("MONGO_URI"),
		MongoDB:     v.GetString("MONGO_DB"),
		RedisAddr:   redisAddr,
		RabbitMQURL: v.GetString("RABBITMQ_URL"),
		MailQueue:   v.GetString("MAIL_QUEUE"),

		CacheNamespace: v.GetString("CACHE_NAMESPACE"),

		GCSBucket:        v.GetString("GCS_BUCKET"),
		GCSPublicURL:     v.GetString("GCS_PUBLIC_URL"),
		GCSUniformAccess: v.GetBool("GCS_UNIFORM_ACCESS"),

		VertexProject:  v.GetString("VERTEX_PROJECT"),
		VertexLocation: v.GetString("VERTEX_LOCATION"),
		VertexModel:    v.GetString("VERTEX_MODEL"),

		DefaultExpectedScore: v.GetFloat64("DEFAULT_EXPECTED_SCORE"),
		ScoreCacheTTL:        v.GetDuration("SCORE_CACHE_TTL"),
		ResetTokenTTL:        v.GetDuration("RESET_TOKEN_TTL"),

		AuthRateLimit:   v.GetInt("AUTH_RATE_LIMIT"),
		ImportRateLimit: v.GetInt("IMPORT_RATE_LIMIT"),
		RateWindow:      v.GetDuration("RATE_WINDOW"),

		SnapshotWorkers: v.GetInt("SNAPSHOT_WORKERS"),
	}

	if s.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set")
	}
	return s, nil
}

// splitList parses a comma separated env value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
