package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppEnv          = "development"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultGithubAPIURL    = "https://api.github.com"
	defaultVerifierURL     = "http://localhost:8080"
	defaultPayoutAmount    = "0.3"
	defaultGasLimit        = 21000
	defaultConfirmCeiling  = 3 * time.Minute
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
)

// Base holds runtime configuration shared by both faucet services.
type Base struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	ShutdownPeriod time.Duration
}

// Verifier captures configuration for the eligibility verification service.
type Verifier struct {
	Base
	DatabaseURL  string
	GithubAPIURL string
	GithubToken  string
}

// Disburser captures configuration for the disbursement service.
type Disburser struct {
	Base
	VerificationURL string
	ChainRPCURL     string
	TreasurySecret  string
	PayoutAmount    decimal.Decimal
	GasLimit        uint64
	ConfirmCeiling  time.Duration
	RedisURL        string
	IdempotencyTTL  time.Duration
}

// LoadVerifier reads verifier configuration from the environment.
func LoadVerifier() (Verifier, error) {
	base, err := loadBase("FaucetVerifier", "8080")
	if err != nil {
		return Verifier{}, err
	}

	cfg := Verifier{
		Base:         base,
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		GithubAPIURL: strings.TrimRight(getEnv("GITHUB_API_URL", defaultGithubAPIURL), "/"),
		GithubToken:  os.Getenv("GITHUB_TOKEN"),
	}

	if cfg.DatabaseURL == "" && !cfg.IsDev() {
		return Verifier{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// LoadDisburser reads disburser configuration from the environment.
func LoadDisburser() (Disburser, error) {
	base, err := loadBase("FaucetDisburser", "8090")
	if err != nil {
		return Disburser{}, err
	}

	cfg := Disburser{
		Base:            base,
		VerificationURL: strings.TrimRight(getEnv("VERIFICATION_SERVICE_URL", defaultVerifierURL), "/"),
		ChainRPCURL:     os.Getenv("BSC_RPC_URL"),
		TreasurySecret:  os.Getenv("TREASURY_PRIVATE_KEY"),
		GasLimit:        defaultGasLimit,
		ConfirmCeiling:  defaultConfirmCeiling,
		RedisURL:        os.Getenv("REDIS_URL"),
		IdempotencyTTL:  defaultIdempotencyTTL,
	}

	amount, err := decimal.NewFromString(getEnv("DEFAULT_PAYOUT_AMOUNT", defaultPayoutAmount))
	if err != nil {
		return Disburser{}, fmt.Errorf("invalid DEFAULT_PAYOUT_AMOUNT: %w", err)
	}
	cfg.PayoutAmount = amount

	if v := os.Getenv("PAYOUT_GAS_LIMIT"); v != "" {
		limit, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Disburser{}, fmt.Errorf("invalid PAYOUT_GAS_LIMIT: %w", err)
		}
		cfg.GasLimit = limit
	}

	if v := os.Getenv("CONFIRMATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Disburser{}, fmt.Errorf("invalid CONFIRMATION_TIMEOUT: %w", err)
		}
		cfg.ConfirmCeiling = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Disburser{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Disburser{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	if cfg.ChainRPCURL == "" {
		return Disburser{}, fmt.Errorf("BSC_RPC_URL must be set")
	}
	if cfg.TreasurySecret == "" {
		return Disburser{}, fmt.Errorf("TREASURY_PRIVATE_KEY must be set")
	}
	if cfg.RedisURL == "" && !cfg.IsDev() {
		return Disburser{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

func loadBase(appName, defaultPort string) (Base, error) {
	cfg := Base{
		AppName:        getEnv("APP_NAME", appName),
		AppEnv:         strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		ShutdownPeriod: defaultShutdownDelay,
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Base{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Base{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (b Base) Address() string {
	if strings.HasPrefix(b.Port, ":") {
		return b.Port
	}
	return fmt.Sprintf(":%s", b.Port)
}

// IsDev reports whether the service runs in a local development environment.
func (b Base) IsDev() bool {
	switch b.AppEnv {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
