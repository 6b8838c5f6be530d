package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

var loadEnvOnce sync.Once

func loadEnv() {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Warning: .env file not found, reading from system environment variables")
		}
	})
}

func Config(key string) string {
	loadEnv()
	return os.Getenv(key)
}

type Settings struct {
	Port        string
	DatabaseURL string

	JWTSecret           string
	TokenExpireMinutes  int
	AdminPassword       string
	TestAccountsEnabled bool

	UploadDir          string
	ProfilePicturesDir string
	MaxUploadBytes     int64
	CloudinaryURL      string

	LLMProvider          string
	OpenAIAPIKey         string
	GeminiAPIKey         string
	LLMModel             string
	ExplainModel         string
	LLMTemperature       float64
	LLMMaxTokens         int
	LLMMaxInputChars     int
	LLMRequestsPerMinute int

	OCRLanguages []string
	OCRDPI       float64
	TessdataDir  string

	BrevoAPIKey     string
	EmailSender     string
	EmailSenderName string

	LogLevel    string
	LogOutput   string
	LogFilePath string
}

// Load reads every setting once, applying the defaults the server expects
// when a variable is missing or malformed.
func Load() Settings {
	return Settings{
		Port:        stringOr("PORT", "8080"),
		DatabaseURL: stringOr("DATABASE_URL", "sqlite://./ai_cert_platform.db"),

		JWTSecret:           stringOr("JWT_SECRET", "your-secret-key-here"),
		TokenExpireMinutes:  intOr("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", 30),
		AdminPassword:       stringOr("ADMIN_PASSWORD", "1234"),
		TestAccountsEnabled: boolOr("SEED_TEST_ACCOUNTS", true),

		UploadDir:          stringOr("UPLOAD_DIR", "uploaded_pdfs"),
		ProfilePicturesDir: stringOr("PROFILE_PICTURES_DIR", "profile_pictures"),
		MaxUploadBytes:     int64(intOr("MAX_UPLOAD_BYTES", 10*1024*1024)),
		CloudinaryURL:      Config("CLOUDINARY_URL"),

		LLMProvider:          strings.ToLower(stringOr("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:         Config("OPENAI_API_KEY"),
		GeminiAPIKey:         Config("GEMINI_API_KEY"),
		LLMModel:             Config("LLM_MODEL"),
		ExplainModel:         Config("LLM_EXPLAIN_MODEL"),
		LLMTemperature:       floatOr("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:         intOr("LLM_MAX_TOKENS", 4096),
		LLMMaxInputChars:     intOr("LLM_MAX_INPUT_CHARS", 20000),
		LLMRequestsPerMinute: intOr("LLM_REQUESTS_PER_MINUTE", 30),

		OCRLanguages: strings.Split(stringOr("OCR_LANGUAGES", "kor+eng"), "+"),
		OCRDPI:       floatOr("OCR_DPI", 300),
		TessdataDir:  Config("TESSDATA_PREFIX"),

		BrevoAPIKey:     Config("BREVO_API_KEY"),
		EmailSender:     Config("EMAIL_SENDER"),
		EmailSenderName: Config("EMAIL_SENDER_NAME"),

		LogLevel:    stringOr("LOG_LEVEL", "info"),
		LogOutput:   stringOr("LOG_OUTPUT", "stderr"),
		LogFilePath: Config("LOG_FILE_PATH"),
	}
}

func stringOr(key, def string) string {
	if v := strings.TrimSpace(Config(key)); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(Config(key)))
	if err != nil {
		return def
	}
	return v
}

func floatOr(key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(Config(key)), 64)
	if err != nil {
		return def
	}
	return v
}

func boolOr(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(Config(key)))
	if err != nil {
		return def
	}
	return v
}
