/**
 * @description
 * This package handles the configuration management for the gateway services.
 * It uses the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application
 * settings across bankd, userd, and merchantd.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the gateway services.
// These values are loaded from environment variables.
type Config struct {
	ServerPort      string `mapstructure:"SERVER_PORT"`
	StoreBackend    string `mapstructure:"STORE_BACKEND"` // memory, redis, or postgres
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	RedisURL        string `mapstructure:"REDIS_URL"`
	RedisKeyPrefix  string `mapstructure:"REDIS_KEY_PREFIX"`
	RabbitMQURL     string `mapstructure:"RABBITMQ_URL"`
	SettlementQueue string `mapstructure:"SETTLEMENT_EVENT_QUEUE"`
	BankAPIBaseURL  string `mapstructure:"BANK_API_BASE_URL"`
	JWTSecret       string `mapstructure:"JWT_SECRET"`
	JWTTTLMinutes   int    `mapstructure:"JWT_TTL_MINUTES"`
	Banks           []string
	BranchPrefixes  map[string]string
	VIDKeyHigh      uint64
	VIDKeyLow       uint64
}

// Defaults for the bank roster and branch routing. Overridable with
// BANKS="HDFC,ICICI" and BRANCH_PREFIXES="HDFC=HDFC,ICIC=ICICI".
var (
	defaultBanks          = []string{"HDFC", "ICICI", "SBI"}
	defaultBranchPrefixes = map[string]string{
		"HDFC": "HDFC",
		"ICIC": "ICICI",
		"SBIN": "SBI",
	}
)

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("STORE_BACKEND", "memory")
	viper.SetDefault("REDIS_KEY_PREFIX", "upi")
	viper.SetDefault("SETTLEMENT_EVENT_QUEUE", "bank_gateway.settlement_events")
	viper.SetDefault("BANK_API_BASE_URL", "http://localhost:8080")
	viper.SetDefault("JWT_TTL_MINUTES", 60)
	viper.SetDefault("VID_KEY_HIGH", "1234567890123456")
	viper.SetDefault("VID_KEY_LOW", "7890123456789012")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("STORE_BACKEND")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_KEY_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("SETTLEMENT_EVENT_QUEUE")
	_ = viper.BindEnv("BANK_API_BASE_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_TTL_MINUTES")
	_ = viper.BindEnv("BANKS")
	_ = viper.BindEnv("BRANCH_PREFIXES")
	_ = viper.BindEnv("VID_KEY_HIGH")
	_ = viper.BindEnv("VID_KEY_LOW")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.StoreBackend = strings.ToLower(strings.TrimSpace(config.StoreBackend))
	switch config.StoreBackend {
	case "memory", "redis", "postgres":
	default:
		err = fmt.Errorf("unsupported STORE_BACKEND %q (want memory, redis, or postgres)", config.StoreBackend)
		return
	}

	config.Banks = parseBankList(viper.GetString("BANKS"))
	config.BranchPrefixes = parseBranchPrefixes(viper.GetString("BRANCH_PREFIXES"))

	config.VIDKeyHigh, err = parseKeyHalf(viper.GetString("VID_KEY_HIGH"))
	if err != nil {
		err = fmt.Errorf("invalid VID_KEY_HIGH: %w", err)
		return
	}
	config.VIDKeyLow, err = parseKeyHalf(viper.GetString("VID_KEY_LOW"))
	if err != nil {
		err = fmt.Errorf("invalid VID_KEY_LOW: %w", err)
		return
	}

	if config.JWTTTLMinutes <= 0 {
		config.JWTTTLMinutes = 60
	}

	return
}

// parseBankList splits BANKS ("HDFC,ICICI,SBI") into an uppercased list,
// falling back to the default roster when unset.
func parseBankList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return append([]string(nil), defaultBanks...)
	}
	var banks []string
	for _, part := range strings.Split(raw, ",") {
		if b := strings.ToUpper(strings.TrimSpace(part)); b != "" {
			banks = append(banks, b)
		}
	}
	if len(banks) == 0 {
		return append([]string(nil), defaultBanks...)
	}
	return banks
}

// parseBranchPrefixes parses BRANCH_PREFIXES ("HDFC=HDFC,ICIC=ICICI") into a
// prefix-to-bank map, falling back to the default routing when unset.
func parseBranchPrefixes(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		out := make(map[string]string, len(defaultBranchPrefixes))
		for k, v := range defaultBranchPrefixes {
			out[k] = v
		}
		return out
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		prefix, bank, ok := strings.Cut(pair, "=")
		if !ok {
			log.Printf("level=warn component=config msg=\"skipping malformed branch prefix entry\" entry=%q", pair)
			continue
		}
		prefix = strings.ToUpper(strings.TrimSpace(prefix))
		bank = strings.ToUpper(strings.TrimSpace(bank))
		if prefix == "" || bank == "" {
			continue
		}
		out[prefix] = bank
	}
	if len(out) == 0 {
		for k, v := range defaultBranchPrefixes {
			out[k] = v
		}
	}
	return out
}

// parseKeyHalf parses a 64-bit cipher key half given as hex digits.
func parseKeyHalf(raw string) (uint64, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	return strconv.ParseUint(raw, 16, 64)
}
