package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAllowedOrigins are the frontends allowed to call the API.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3002",
	"http://localhost:8000",
	"https://kelvin-app-gamma.vercel.app",
	"https://kelvin-app-git-main-dhruvs-projects-0e302010.vercel.app",
	"https://kelvin-mkpog1abp-dhruvs-projects-0e302010.vercel.app",
}

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiTemperature    float32
	GeminiConcurrentReqs int
	RelayTimeout         time.Duration

	// Chat rate limit
	ChatRateLimit  int
	ChatRateWindow time.Duration
	RedisURL       string

	// Quest catalog
	QuestsDatabaseURL string
	QuestsFile        string

	// HTTP edge
	AllowedOrigins []string
	// Forwarded client addresses are only honoured when TrustProxyHeaders
	// is set, and then only from TrustedProxies (any peer when empty).
	TrustProxyHeaders bool
	TrustedProxies    []string

	// Safety
	ExtraCrisisKeywords []string
}

// Load reads the environment. GEMINI_API_KEY is required but its absence is
// not fatal: the chat relay runs disabled instead.
func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		Port:                 getEnvOrDefault("PORT", "8000"),
		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-flash-latest"),
		GeminiTemperature:    getEnvAsFloat32OrDefault("GEMINI_TEMPERATURE", 0.7),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		RelayTimeout:         getEnvAsDurationOrDefault("RELAY_TIMEOUT", 30*time.Second),
		ChatRateLimit:        getEnvAsIntOrDefault("CHAT_RATE_LIMIT", 20),
		ChatRateWindow:       getEnvAsDurationOrDefault("CHAT_RATE_WINDOW", time.Minute),
		RedisURL:             os.Getenv("REDIS_URL"),
		QuestsDatabaseURL:    os.Getenv("QUESTS_DATABASE_URL"),
		QuestsFile:           os.Getenv("QUESTS_FILE"),
		AllowedOrigins:       getEnvListOrDefault("CORS_ALLOWED_ORIGINS", DefaultAllowedOrigins),
		TrustProxyHeaders:    getEnvAsBoolOrDefault("TRUST_PROXY_HEADERS", false),
		TrustedProxies:       getEnvListOrDefault("TRUSTED_PROXIES", nil),
		ExtraCrisisKeywords:  getEnvListOrDefault("CRISIS_KEYWORDS", nil),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func getEnvAsFloat32OrDefault(key string, defaultVal float32) float32 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 32)
	if err != nil || f < 0 {
		return defaultVal
	}
	return float32(f)
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
