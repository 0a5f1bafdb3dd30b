package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const DefaultMaxImageBytes = 5 * 1024 * 1024

type Config struct {
	Port string

	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string

	// VisionEngine picks the engine the routes call: "openai" or "gemini".
	VisionEngine string

	MaxImageBytes     int64
	RequestTimeoutSec int

	// Image hosting (optional). When S3Bucket is empty the routes answer with
	// a data-URL instead of a hosted URL.
	S3Bucket      string
	S3Region      string
	CloudFrontURL string

	// Bot side.
	APIBaseURL       string
	TelegramBotToken string
	WebhookURL       string
	DatabaseURL      string
	DeviceProfile    Profile
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// Load reads configuration from the environment (a local .env is honored when
// present). Required keys are enforced by the binaries, not here: the bot does
// not need an S3 bucket and the API server does not need a bot token.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8000"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		VisionEngine: getEnv("VISION_ENGINE", "openai"),

		MaxImageBytes:     int64(getEnvInt("MAX_IMAGE_BYTES", DefaultMaxImageBytes)),
		RequestTimeoutSec: getEnvInt("REQUEST_TIMEOUT_SEC", 60),

		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3Region:      getEnv("S3_REGION", os.Getenv("AWS_REGION")),
		CloudFrontURL: os.Getenv("CLOUDFRONT_URL"),

		APIBaseURL:       getEnv("API_BASE_URL", "http://localhost:8000"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookURL:       os.Getenv("WEBHOOK_URL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DeviceProfile:    ParseProfile(getEnv("DEVICE_PROFILE", "desktop")),
	}
}

// MustTelegramToken is for the bot binary, which cannot run without it.
func (c *Config) MustTelegramToken() string {
	if c.TelegramBotToken == "" {
		return mustEnv("TELEGRAM_BOT_TOKEN")
	}
	return c.TelegramBotToken
}
