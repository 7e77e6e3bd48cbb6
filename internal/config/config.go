package config

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

type Config struct {
	Port     int    `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	BaseURL  string `mapstructure:"BASE_URL"`

	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	DoctorDatabaseURL string `mapstructure:"DOCTOR_DATABASE_URL"`
	DBMaxConns        int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32  `mapstructure:"DB_MIN_CONNS"`

	AccessTokenSecret  string        `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string        `mapstructure:"REFRESH_TOKEN_SECRET"`
	AccessTokenExpiry  time.Duration `mapstructure:"ACCESS_TOKEN_EXPIRY"`
	RefreshTokenExpiry time.Duration `mapstructure:"REFRESH_TOKEN_EXPIRY"`

	OTPExpiryMinutes int           `mapstructure:"OTP_EXPIRY_MINUTES"`
	OTPMaxAttempts   int           `mapstructure:"OTP_MAX_ATTEMPTS"`
	OTPRateLimit     int           `mapstructure:"OTP_RATE_LIMIT"`
	OTPRateWindow    time.Duration `mapstructure:"OTP_RATE_WINDOW"`
	PhoneCountryCode string        `mapstructure:"PHONE_COUNTRY_CODE"`

	WhatsAppProvider   string `mapstructure:"WHATSAPP_PROVIDER"`
	WhatsAppServiceURL string `mapstructure:"WHATSAPP_SERVICE_URL"`
	TwilioAccountSID   string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppFrom string `mapstructure:"TWILIO_WHATSAPP_FROM"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	LLMProvider     string  `mapstructure:"LLM_PROVIDER"`
	LLMAPIKey       string  `mapstructure:"LLM_API_KEY"`
	LLMBaseURL      string  `mapstructure:"LLM_BASE_URL"`
	LLMModel        string  `mapstructure:"LLM_MODEL"`
	LLMTemperature  float64 `mapstructure:"LLM_TEMPERATURE"`
	LLMMaxTokens    int     `mapstructure:"LLM_MAX_TOKENS"`
	ChatContext     int     `mapstructure:"CHAT_CONTEXT_WINDOW"`
	ChatRequireAuth bool    `mapstructure:"CHAT_REQUIRE_AUTH"`
	HospitalName    string  `mapstructure:"CHAT_HOSPITAL_NAME"`

	AllowedOrigins []string      `mapstructure:"ALLOWED_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	AuthRateLimit  int           `mapstructure:"AUTH_RATE_LIMIT"`
	AuthRateWindow time.Duration `mapstructure:"AUTH_RATE_WINDOW"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	SessionKey         string `mapstructure:"SESSION_KEY"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "BASE_URL",
	"MONGO_URI", "MONGO_DATABASE",
	"DOCTOR_DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET", "ACCESS_TOKEN_EXPIRY", "REFRESH_TOKEN_EXPIRY",
	"OTP_EXPIRY_MINUTES", "OTP_MAX_ATTEMPTS", "OTP_RATE_LIMIT", "OTP_RATE_WINDOW", "PHONE_COUNTRY_CODE",
	"WHATSAPP_PROVIDER", "WHATSAPP_SERVICE_URL", "TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_WHATSAPP_FROM",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD",
	"LLM_PROVIDER", "LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL", "LLM_TEMPERATURE", "LLM_MAX_TOKENS",
	"CHAT_CONTEXT_WINDOW", "CHAT_REQUIRE_AUTH", "CHAT_HOSPITAL_NAME",
	"ALLOWED_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "AUTH_RATE_LIMIT", "AUTH_RATE_WINDOW",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "SESSION_KEY",
}

// Load reads configuration from the environment (and a .env file, when present).
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("MONGO_DATABASE", "hospitaldesk")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("ACCESS_TOKEN_EXPIRY", "15m")
	v.SetDefault("REFRESH_TOKEN_EXPIRY", "168h")
	v.SetDefault("OTP_EXPIRY_MINUTES", 5)
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("OTP_RATE_LIMIT", 3)
	v.SetDefault("OTP_RATE_WINDOW", "10m")
	v.SetDefault("PHONE_COUNTRY_CODE", "62")
	v.SetDefault("WHATSAPP_PROVIDER", "console")
	v.SetDefault("WHATSAPP_SERVICE_URL", "http://localhost:3005")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_BASE_URL", "https://api.deepseek.com")
	v.SetDefault("LLM_MODEL", "deepseek-chat")
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("LLM_MAX_TOKENS", 500)
	v.SetDefault("CHAT_CONTEXT_WINDOW", 5)
	v.SetDefault("CHAT_REQUIRE_AUTH", true)
	v.SetDefault("CHAT_HOSPITAL_NAME", "Bethsaida Hospital")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 3)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("AUTH_RATE_LIMIT", 5)
	v.SetDefault("AUTH_RATE_WINDOW", "10m")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Entries are trimmed so "a, b" works.
	if origins := v.GetString("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.OTPExpiryMinutes <= 0 || c.OTPMaxAttempts <= 0 || c.OTPRateLimit <= 0 {
		return fmt.Errorf("OTP_EXPIRY_MINUTES, OTP_MAX_ATTEMPTS and OTP_RATE_LIMIT must be positive")
	}
	if c.ChatContext <= 0 {
		return fmt.Errorf("CHAT_CONTEXT_WINDOW must be positive, got %d", c.ChatContext)
	}

	switch c.WhatsAppProvider {
	case "console", "wwebjs":
	case "twilio":
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioWhatsAppFrom == "" {
			return fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_FROM are required for the twilio provider")
		}
	default:
		return fmt.Errorf("unsupported WHATSAPP_PROVIDER %q", c.WhatsAppProvider)
	}

	switch c.LLMProvider {
	case "openai", "googleai":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.IsProduction() && c.SessionKey == "" {
		return fmt.Errorf("SESSION_KEY is required in production")
	}
	return nil
}
