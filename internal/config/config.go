package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines evtracker configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"EVTRACKER_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"DATABASE_URL"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"EVTRACKER_REDIS_ADDR"`
		Password string `yaml:"password" env:"EVTRACKER_REDIS_PASSWORD"`
	} `yaml:"redis"`
	Octopus struct {
		APIKey        string `yaml:"apiKey" env:"OCTOPUS_API_KEY"`
		MPAN          string `yaml:"mpan" env:"OCTOPUS_MPAN"`
		Serial        string `yaml:"serial" env:"OCTOPUS_SERIAL"`
		AccountNumber string `yaml:"accountNumber" env:"OCTOPUS_ACCOUNT_NUMBER"`
		RestBaseURL   string `yaml:"restBaseUrl" env:"OCTOPUS_REST_URL"`
		GraphQLURL    string `yaml:"graphqlUrl" env:"OCTOPUS_GRAPHQL_URL"`
	} `yaml:"octopus"`
	Import struct {
		ThresholdKWh          float64 `yaml:"thresholdKwh" env:"IMPORT_THRESHOLD_KWH"`
		ConsumptionGapMinutes int     `yaml:"consumptionGapMinutes" env:"IMPORT_CONSUMPTION_GAP_MINUTES"`
		DispatchGapMinutes    int     `yaml:"dispatchGapMinutes" env:"IMPORT_DISPATCH_GAP_MINUTES"`
		TariffRatePence       float64 `yaml:"tariffRatePence" env:"IMPORT_TARIFF_RATE_PENCE"`
		SameLocationOnly      bool    `yaml:"sameLocationOnly" env:"IMPORT_SAME_LOCATION_ONLY"`
		LookbackDays          int     `yaml:"lookbackDays" env:"IMPORT_LOOKBACK_DAYS"`
		DefaultVehicle        string  `yaml:"defaultVehicle" env:"DEFAULT_VEHICLE"`
	} `yaml:"import"`
	Timezone string `yaml:"timezone" env:"EVTRACKER_TIMEZONE"`
	Admin    struct {
		PasswordHash string `yaml:"passwordHash" env:"EVTRACKER_ADMIN_PASSWORD_HASH"`
	} `yaml:"admin"`
}

// Load reads configuration, applies defaults and validates required fields.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "3000"
	cfg.Octopus.RestBaseURL = "https://api.octopus.energy/v1"
	cfg.Octopus.GraphQLURL = "https://api.octopus.energy/v1/graphql/"
	cfg.Import.ThresholdKWh = 2.0
	cfg.Import.ConsumptionGapMinutes = 60
	cfg.Import.DispatchGapMinutes = 240
	// Negative rate means "auto": fall back to the smart-charging constant.
	cfg.Import.TariffRatePence = -1
	cfg.Import.LookbackDays = 3
	cfg.Timezone = "Europe/London"

	if err := load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if cfg.Import.DispatchGapMinutes <= 0 {
		return nil, errors.New("config: dispatch gap must be positive")
	}
	if cfg.Import.ConsumptionGapMinutes <= 0 {
		return nil, errors.New("config: consumption gap must be positive")
	}
	if cfg.Import.LookbackDays <= 0 {
		cfg.Import.LookbackDays = 3
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "3000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// DispatchGap returns the dispatch-mode gap tolerance as duration.
func (c *Config) DispatchGap() time.Duration {
	return time.Duration(c.Import.DispatchGapMinutes) * time.Minute
}

// ConsumptionGap returns the consumption-mode gap tolerance as duration.
func (c *Config) ConsumptionGap() time.Duration {
	return time.Duration(c.Import.ConsumptionGapMinutes) * time.Minute
}

// RateOverride returns the configured tariff rate, or nil when the
// smart-charging constant should apply.
func (c *Config) RateOverride() *float64 {
	if c.Import.TariffRatePence < 0 {
		return nil
	}
	rate := c.Import.TariffRatePence
	return &rate
}
