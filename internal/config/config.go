package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	NoteAPI  NoteAPIConfig
	Submit   SubmitConfig
	Session  SessionConfig
	Catalog  CatalogConfig
	Log      LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience

	// SecureCookies marks the session cookie Secure, for kiosks served over HTTPS.
	SecureCookies bool
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// NoteAPIConfig describes the note REST API and the identity the kiosk acts as.
// These values used to be injected by the hosting page as globals.
type NoteAPIConfig struct {
	BaseURL       string
	CSRFToken     string
	SessionCookie string
	UserID        int
	Username      string

	// Content type ids discriminating plain transfers from special
	// (credit/debit) transactions.
	TransferPolymorphicCtype        int
	SpecialTransferPolymorphicCtype int

	RequestTimeout time.Duration

	// Circuit breaker around the API: consecutive transport failures before
	// opening, and how long it stays open.
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	// SpecialAccounts lists the special notes money can enter or leave through,
	// keyed by note id (cash, card, cheque, bank transfer...).
	SpecialAccounts []SpecialAccount
}

// SpecialAccount is one credit/debit counterparty kind.
type SpecialAccount struct {
	ID    int
	Label string
}

// SubmitConfig holds transaction submission settings and the advisory
// balance thresholds used for banners and chip styling.
type SubmitConfig struct {
	Timeout          time.Duration
	MaxInFlight      int
	InvalidityReason string

	// DangerThreshold: projected balance at or below this emits a danger banner.
	DangerThreshold int64
	// WarningThreshold: projected balance strictly below this emits a warning banner.
	WarningThreshold int64
	// AlertThreshold: balances below this are styled as alarming in chip lists.
	AlertThreshold int64

	BannerTTL        time.Duration
	WarningBannerTTL time.Duration
}

// SessionConfig holds kiosk session settings
type SessionConfig struct {
	// Key is a base64 fernet key used to seal the session cookie.
	Key string
	TTL time.Duration
}

// CatalogConfig holds button catalog settings
type CatalogConfig struct {
	SyncSchedule string
	SyncOnStart  bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string
	Format      string
	Development bool

	// Entries at or above PersistLevel are also written to the log table.
	// "off" disables persistence.
	PersistLevel string
	Retention    time.Duration
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	specialAccounts, err := parseSpecialAccounts(getEnv("NOTE_SPECIAL_ACCOUNTS", "1:Espèces,2:Carte bancaire,3:Chèque,4:Virement bancaire"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "5002"),
			Host:          getEnv("SERVER_HOST", "localhost"),
			SecureCookies: getEnv("SESSION_SECURE_COOKIE", "false") == "true",
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/kiosk.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost"), ","),
		},
		NoteAPI: NoteAPIConfig{
			BaseURL:                         strings.TrimRight(getEnv("NOTE_API_URL", "http://localhost:8000"), "/"),
			CSRFToken:                       getEnv("NOTE_CSRF_TOKEN", ""),
			SessionCookie:                   getEnv("NOTE_SESSION_COOKIE", ""),
			Username:                        getEnv("NOTE_USERNAME", ""),
			SpecialAccounts:                 specialAccounts,
			UserID:                          getEnvInt("NOTE_USER_ID", 0),
			TransferPolymorphicCtype:        getEnvInt("TRANSFER_POLYMORPHIC_CTYPE", 0),
			SpecialTransferPolymorphicCtype: getEnvInt("SPECIAL_TRANSFER_POLYMORPHIC_CTYPE", 0),
			RequestTimeout:                  getEnvDuration("NOTE_API_TIMEOUT", 10*time.Second),
			BreakerMaxFailures:              uint32(getEnvInt("NOTE_API_BREAKER_FAILURES", 5)),
			BreakerOpenTimeout:              getEnvDuration("NOTE_API_BREAKER_TIMEOUT", 30*time.Second),
		},
		Submit: SubmitConfig{
			Timeout:          getEnvDuration("SUBMIT_TIMEOUT", 30*time.Second),
			MaxInFlight:      getEnvInt("SUBMIT_MAX_IN_FLIGHT", 8),
			InvalidityReason: getEnv("SUBMIT_INVALIDITY_REASON", "insufficient balance"),
			DangerThreshold:  int64(getEnvInt("BALANCE_DANGER_THRESHOLD", -5000)),
			WarningThreshold: int64(getEnvInt("BALANCE_WARNING_THRESHOLD", 0)),
			AlertThreshold:   int64(getEnvInt("BALANCE_ALERT_THRESHOLD", -1000)),
			BannerTTL:        getEnvDuration("BANNER_TTL", 10*time.Second),
			WarningBannerTTL: getEnvDuration("WARNING_BANNER_TTL", 30*time.Second),
		},
		Session: SessionConfig{
			Key: getEnv("SESSION_KEY", ""),
			TTL: getEnvDuration("SESSION_TTL", 12*time.Hour),
		},
		Catalog: CatalogConfig{
			SyncSchedule: getEnv("CATALOG_SYNC_SCHEDULE", "@every 15m"),
			SyncOnStart:  getEnv("CATALOG_SYNC_ON_START", "true") == "true",
		},
		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "json"),
			Development:  getEnv("LOG_DEV", "false") == "true",
			PersistLevel: getEnv("LOG_PERSIST_LEVEL", "warn"),
			Retention:    getEnvDuration("LOG_RETENTION", 30*24*time.Hour),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Submit.MaxInFlight < 1 {
		return fmt.Errorf("SUBMIT_MAX_IN_FLIGHT must be at least 1, got %d", c.Submit.MaxInFlight)
	}
	if c.Submit.DangerThreshold > c.Submit.WarningThreshold {
		return fmt.Errorf("BALANCE_DANGER_THRESHOLD (%d) must not exceed BALANCE_WARNING_THRESHOLD (%d)",
			c.Submit.DangerThreshold, c.Submit.WarningThreshold)
	}
	return nil
}

// SpecialAccount returns the special account with the given note id.
func (c NoteAPIConfig) SpecialAccount(id int) (SpecialAccount, bool) {
	for _, a := range c.SpecialAccounts {
		if a.ID == id {
			return a, true
		}
	}
	return SpecialAccount{}, false
}

// parseSpecialAccounts parses "id:label,id:label".
func parseSpecialAccounts(raw string) ([]SpecialAccount, error) {
	var accounts []SpecialAccount
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idStr, label, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid special account %q: expected id:label", part)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idStr))
		if err != nil {
			return nil, fmt.Errorf("invalid special account id %q: %w", idStr, err)
		}
		accounts = append(accounts, SpecialAccount{ID: id, Label: strings.TrimSpace(label)})
	}
	return accounts, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
