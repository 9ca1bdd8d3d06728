package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Cloudinary CloudinaryConfig
	Gateways   GatewaysConfig
	Utmify     UtmifyConfig
	Sms        SmsConfig
	Lookup     LookupConfig
	Checkout   CheckoutConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	PublicURL    string // e.g. https://configas.store - webhooks are PublicURL + /api/v1/webhooks/<gateway>
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// GatewayCredentials holds per-provider API access. AuthToken is the
// pre-encoded Basic credential for providers that use Basic auth; Umbrela
// uses the APIKey header instead.
type GatewayCredentials struct {
	BaseURL   string
	AuthToken string
	APIKey    string
	Enabled   bool
	Weight    int
}

type GatewaysConfig struct {
	Ezzpag   GatewayCredentials
	BlackCat GatewayCredentials
	Umbrela  GatewayCredentials
	Ghost    GatewayCredentials
}

type UtmifyConfig struct {
	BaseURL  string
	APIToken string
	Platform string
}

type SmsConfig struct {
	BaseURL string
	APIKey  string
	// Delay after charge creation before the unpaid-order reminder fires.
	ReminderDelay time.Duration
}

type LookupConfig struct {
	CpfBaseURL string
	CepBaseURL string
}

type CheckoutConfig struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	// Resume windows: how long a pending charge / a paid order stays
	// restorable on a returning session.
	PendingTTL   time.Duration
	PaidOrderTTL time.Duration
	// Gas orders are collected in two legs: SplitRatio of the total first,
	// the remainder as a second "tax" charge.
	SplitRatio float64
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envString("PORT", "8088"),
			Env:          envString("APP_ENV", "development"),
			PublicURL:    envString("PUBLIC_URL", "https://configas.store"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             envString("DB_DSN", "configas:configas@tcp(localhost:3306)/configas?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			Secret: envString("JWT_SECRET", "change-me-in-production"),
			Expiry: 12 * time.Hour,
			Issuer: "configas",
		},
		Cloudinary: CloudinaryConfig{
			CloudName: envString("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    envString("CLOUDINARY_API_KEY", ""),
			APISecret: envString("CLOUDINARY_API_SECRET", ""),
		},
		Gateways: GatewaysConfig{
			Ezzpag: GatewayCredentials{
				BaseURL:   envString("EZZPAG_BASE_URL", "https://api.ezzypag.com.br/v1"),
				AuthToken: envString("EZZPAG_AUTH_TOKEN", ""),
				Enabled:   envBool("EZZPAG_ENABLED", true),
				Weight:    envInt("EZZPAG_WEIGHT", 1),
			},
			BlackCat: GatewayCredentials{
				BaseURL:   envString("BLACKCAT_BASE_URL", "https://api.blackcatpagamentos.com/v1"),
				AuthToken: envString("BLACKCAT_AUTH_TOKEN", ""),
				Enabled:   envBool("BLACKCAT_ENABLED", false),
				Weight:    envInt("BLACKCAT_WEIGHT", 1),
			},
			Umbrela: GatewayCredentials{
				BaseURL: envString("UMBRELA_BASE_URL", "https://api.umbrelapag.com"),
				APIKey:  envString("UMBRELA_API_KEY", ""),
				Enabled: envBool("UMBRELA_ENABLED", false),
				Weight:  envInt("UMBRELA_WEIGHT", 1),
			},
			Ghost: GatewayCredentials{
				BaseURL:   envString("GHOST_BASE_URL", "https://api.ghostspaysv2.com/functions/v1"),
				AuthToken: envString("GHOST_AUTH_TOKEN", ""),
				Enabled:   envBool("GHOST_ENABLED", true),
				Weight:    envInt("GHOST_WEIGHT", 1),
			},
		},
		Utmify: UtmifyConfig{
			BaseURL:  envString("UTMIFY_BASE_URL", "https://api.utmify.com.br"),
			APIToken: envString("UTMIFY_API_TOKEN", ""),
			Platform: envString("UTMIFY_PLATFORM", "Configas"),
		},
		Sms: SmsConfig{
			BaseURL:       envString("SMSDEV_BASE_URL", "https://api.smsdev.com.br/v1"),
			APIKey:        envString("SMSDEV_API_KEY", ""),
			ReminderDelay: 4 * time.Minute,
		},
		Lookup: LookupConfig{
			CpfBaseURL: envString("CPF_API_BASE_URL", ""),
			CepBaseURL: envString("CEP_API_BASE_URL", "https://viacep.com.br"),
		},
		Checkout: CheckoutConfig{
			PollInterval: 5 * time.Second,
			PollTimeout:  15 * time.Minute,
			PendingTTL:   2 * time.Hour,
			PaidOrderTTL: 24 * time.Hour,
			SplitRatio:   0.70,
		},
	}
}

func envString(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return v == "1" || v == "true"
}

func envInt(key string, defaultValue int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
