package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
)

type Config struct {
	// Database
	DBHost           string
	DBPort           int
	DBUser           string
	DBPassword       string
	DBName           string
	DBMaxOpenConns   int
	DBMaxIdleConns   int
	DBConnectRetries int

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret      string
	JWTExpireHours int

	// API
	APIPort int

	// Resource manager panel (provisioning + usage)
	PanelURL        string
	PanelAPIKey     string
	PanelTimeoutSec int

	// Upstream billing panel
	BillingURL        string
	BillingAPIKey     string
	BillingTimeoutSec int

	// Autoscaler defaults (overridable via system_settings)
	AutoscalerEnabled   bool
	RAMThresholdPercent float64
	CPUThresholdPercent float64
	RAMStepMB           int
	CPUStepPercent      int
	RAMRatePerMB        float64
	CPURatePerPoint     float64
	SweepIntervalMin    int

	// Billing
	Currency        string
	ReferralPercent float64
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a hostname-based value if crypto/rand fails
		return hex.EncodeToString([]byte(os.Getenv("HOSTNAME") + string(rune(length))))
	}
	return hex.EncodeToString(bytes)
}

func Load() *Config {
	// JWT Secret - generate random if not provided
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = generateSecureSecret(32)
		log.Println("WARNING: JWT_SECRET not set - generated random secret. Sessions will not persist across restarts.")
	}

	dbPassword := getEnv("DB_PASSWORD", "")
	if dbPassword == "" {
		log.Println("WARNING: DB_PASSWORD not set - this is insecure for production!")
		dbPassword = "changeme"
	}

	redisPassword := getEnv("REDIS_PASSWORD", "")
	if redisPassword == "" {
		log.Println("WARNING: REDIS_PASSWORD not set - Redis is not secured!")
	}

	panelKey := getEnv("PANEL_API_KEY", "")
	if panelKey == "" {
		log.Println("WARNING: PANEL_API_KEY not set - provisioning calls will be rejected by the panel!")
	}

	return &Config{
		// Database
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnvInt("DB_PORT", 5432),
		DBUser:           getEnv("DB_USER", "hvhosting"),
		DBPassword:       dbPassword,
		DBName:           getEnv("DB_NAME", "hvhosting"),
		DBMaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 100),
		DBMaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 30),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: redisPassword,
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// JWT
		JWTSecret:      jwtSecret,
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 168), // 7 days default

		// API
		APIPort: getEnvInt("API_PORT", 8080),

		// Resource manager panel
		PanelURL:        getEnv("PANEL_URL", "http://localhost:9080"),
		PanelAPIKey:     panelKey,
		PanelTimeoutSec: getEnvInt("PANEL_TIMEOUT_SEC", 15),

		// Upstream billing panel
		BillingURL:        getEnv("BILLING_URL", ""),
		BillingAPIKey:     getEnv("BILLING_API_KEY", ""),
		BillingTimeoutSec: getEnvInt("BILLING_TIMEOUT_SEC", 15),

		// Autoscaler defaults
		AutoscalerEnabled:   getEnvBool("AUTOSCALER_ENABLED", true),
		RAMThresholdPercent: getEnvFloat("AUTOSCALER_RAM_THRESHOLD", 80),
		CPUThresholdPercent: getEnvFloat("AUTOSCALER_CPU_THRESHOLD", 50),
		RAMStepMB:           getEnvInt("AUTOSCALER_RAM_STEP_MB", 256),
		CPUStepPercent:      getEnvInt("AUTOSCALER_CPU_STEP", 50),
		RAMRatePerMB:        getEnvFloat("AUTOSCALER_RAM_RATE", 0.01),
		CPURatePerPoint:     getEnvFloat("AUTOSCALER_CPU_RATE", 0.05),
		SweepIntervalMin:    getEnvInt("AUTOSCALER_SWEEP_INTERVAL_MIN", 5),

		// Billing
		Currency:        getEnv("CURRENCY", "PLN"),
		ReferralPercent: getEnvFloat("REFERRAL_PERCENT", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
