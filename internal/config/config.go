package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	MailQueueMemory   = "memory"
	MailQueueRabbitMQ = "rabbitmq"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	JWTSecret     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	EmailTokenTTL time.Duration
	BcryptCost    int

	CacheBackend string
	RedisURL     string
	UserCacheTTL time.Duration

	CORSOrigins          []string
	TrustedProxies       []netip.Prefix
	RateLimitRPM         int
	AuthRateLimitRPM     int
	ContactsRateInterval time.Duration

	MailQueue        string
	RabbitMQURL      string
	RabbitMQPrefetch int
	MailQueueName    string
	MailWorkers      int
	MailQueueSize    int
	MailSendTimeout  time.Duration
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SMTPTimeout      time.Duration
	MailFrom         string
	PublicBaseURL    string

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTAccessTTL:            getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:           getDuration("JWT_REFRESH_TTL", 168*time.Hour),
		EmailTokenTTL:           getDuration("EMAIL_TOKEN_TTL", 24*time.Hour),
		BcryptCost:              getInt("BCRYPT_COST", 12),
		CacheBackend:            strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory)),
		RedisURL:                strings.TrimSpace(os.Getenv("REDIS_URL")),
		UserCacheTTL:            getDuration("USER_CACHE_TTL", 300*time.Second),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
		ContactsRateInterval:    getDuration("CONTACTS_RATE_INTERVAL", 10*time.Second),
		MailQueue:               strings.ToLower(getEnv("MAIL_QUEUE", MailQueueMemory)),
		RabbitMQURL:             strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
		RabbitMQPrefetch:        getInt("RABBITMQ_PREFETCH", 10),
		MailQueueName:           getEnv("MAIL_QUEUE_NAME", "contacts.mail"),
		MailWorkers:             getInt("MAIL_WORKERS", 2),
		MailQueueSize:           getInt("MAIL_QUEUE_SIZE", 100),
		MailSendTimeout:         getDuration("MAIL_SEND_TIMEOUT", 30*time.Second),
		SMTPHost:                strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:                getInt("SMTP_PORT", 587),
		SMTPUsername:            strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
		SMTPPassword:            os.Getenv("SMTP_PASSWORD"),
		SMTPTimeout:             getDuration("SMTP_TIMEOUT", 10*time.Second),
		MailFrom:                getEnv("MAIL_FROM", "no-reply@localhost"),
		PublicBaseURL:           strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
	}

	trusted, err := parsePrefixes(splitCSV(os.Getenv("TRUSTED_PROXIES")))
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	cfg.TrustedProxies = trusted

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 || c.EmailTokenTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL, JWT_REFRESH_TTL and EMAIL_TOKEN_TTL must be positive")
	}

	if c.UserCacheTTL <= 0 {
		return fmt.Errorf("USER_CACHE_TTL must be positive")
	}

	if c.ContactsRateInterval <= 0 {
		return fmt.Errorf("CONTACTS_RATE_INTERVAL must be positive")
	}

	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS and DB_MAX_CONNS are inconsistent")
	}

	switch c.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}

	switch c.MailQueue {
	case MailQueueMemory:
		if c.MailWorkers <= 0 || c.MailQueueSize <= 0 {
			return fmt.Errorf("MAIL_WORKERS and MAIL_QUEUE_SIZE must be positive")
		}
	case MailQueueRabbitMQ:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when MAIL_QUEUE=rabbitmq")
		}
		if c.RabbitMQPrefetch <= 0 {
			return fmt.Errorf("RABBITMQ_PREFETCH must be positive")
		}
	default:
		return fmt.Errorf("unknown MAIL_QUEUE %q", c.MailQueue)
	}

	if c.MailSendTimeout <= 0 {
		return fmt.Errorf("MAIL_SEND_TIMEOUT must be positive")
	}

	if c.SMTPHost != "" {
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("SMTP_PORT must be a valid port")
		}
		if c.SMTPTimeout <= 0 {
			return fmt.Errorf("SMTP_TIMEOUT must be positive")
		}
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}

// parsePrefixes accepts CIDRs and bare addresses (as single-host prefixes).
func parsePrefixes(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		if prefix, err := netip.ParsePrefix(v); err == nil {
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("invalid address or CIDR %q", v)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
