package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port            int
	DBDSN           string
	RedisURL        string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration
	JWTSecret       string
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	AppBaseURL      string
	N8N             N8NConfig
	Monitoring      MonitoringConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// N8NConfig guarda acesso ao motor de workflows.
type N8NConfig struct {
	BaseURL string
	APIKey  string
}

// MonitoringConfig controla o monitor de consumo de eventos.
type MonitoringConfig struct {
	Enabled         bool
	Interval        time.Duration
	SlackWebhookURL string
	UsageThreshold  float64
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	cfg.AppBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("APP_BASE_URL", "https://sdria.alveseco.com.br")), "/")

	cfg.N8N = N8NConfig{
		BaseURL: strings.TrimRight(strings.TrimSpace(getEnv("N8N_BASE_URL", "")), "/"),
		APIKey:  strings.TrimSpace(getEnv("N8N_API_KEY", "")),
	}

	monitorInterval, err := parseDurationEnv("MONITOR_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	threshold := 0.9
	if raw := getEnv("MONITOR_USAGE_THRESHOLD", ""); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil || threshold <= 0 || threshold > 1 {
			return nil, errors.New("MONITOR_USAGE_THRESHOLD inválido")
		}
	}
	cfg.Monitoring = MonitoringConfig{
		Enabled:         strings.EqualFold(getEnv("MONITOR_ENABLED", "false"), "true"),
		Interval:        monitorInterval,
		SlackWebhookURL: strings.TrimSpace(getEnv("MONITOR_SLACK_WEBHOOK_URL", "")),
		UsageThreshold:  threshold,
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}
