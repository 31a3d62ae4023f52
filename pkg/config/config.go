package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	Debug       bool

	// Auto-send scheduler
	AutoSendEnabled    bool
	AutoSendInterval   time.Duration
	AutoSendRetryDelay time.Duration
	ReviewWindow       time.Duration

	// Mail delivery
	MailProvidersFile string
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	SMTPInsecure      bool
	MailSenderAddress string
	MailSenderName    string

	GoogleClientID     string
	GoogleClientSecret string

	// AI drafting
	AIProvider    string
	GeminiApiKey  string
	OllamaBaseURL string
	OllamaModel   string

	UrgentKeywords []string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		Debug:       getBool("LOG_DEBUG", false),

		AutoSendEnabled:    getBool("AUTO_SEND_ENABLED", true),
		AutoSendInterval:   getDuration("AUTO_SEND_INTERVAL", 5*time.Minute),
		AutoSendRetryDelay: getDuration("AUTO_SEND_RETRY_DELAY", 30*time.Minute),
		ReviewWindow:       getDuration("REVIEW_WINDOW", 2*time.Hour),

		MailProvidersFile: getEnv("MAIL_PROVIDERS_FILE", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getInt("SMTP_PORT", 587),
		SMTPUser:          getEnv("SMTP_USER", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPInsecure:      getBool("SMTP_INSECURE_SKIP_VERIFY", false),
		MailSenderAddress: getEnv("MAIL_SENDER_ADDRESS", ""),
		MailSenderName:    getEnv("MAIL_SENDER_NAME", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		AIProvider:    getEnv("AI_PROVIDER", "auto"),
		GeminiApiKey:  getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),

		UrgentKeywords: getList("URGENT_KEYWORDS"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
