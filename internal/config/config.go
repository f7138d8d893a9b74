// Package config содержит логику чтения конфигурации витрины Давахана.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress       = "localhost:8080"
	defaultOpsPhone         = "+91 8707535798"
	defaultTrackingInterval = 30 * time.Second
)

// Config содержит параметры конфигурации витрины.
type Config struct {
	RunAddress        string        `env:"RUN_ADDRESS"`
	DatabaseURI       string        `env:"DATABASE_URI"`
	SQLitePath        string        `env:"SQLITE_PATH"`
	SMSGatewayAddress string        `env:"SMS_GATEWAY_ADDRESS"`
	SNSRegion         string        `env:"SNS_REGION"`
	OpsPhone          string        `env:"OPS_PHONE"`
	AuthSecret        string        `env:"AUTH_SECRET"`
	TrackingInterval  time.Duration `env:"TRACKING_INTERVAL"`
	SimulatedLatency  time.Duration `env:"SIMULATED_LATENCY"`
	ShipAfter         time.Duration `env:"SHIP_AFTER" envDefault:"10m"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	fromEnv := &Config{}
	if err := env.Parse(fromEnv); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{ShipAfter: fromEnv.ShipAfter}

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "PostgreSQL connection URI")
	flag.StringVar(&cfg.SQLitePath, "s", "", "path to SQLite database file")
	flag.StringVar(&cfg.SMSGatewayAddress, "g", "", "SMS gateway address")
	flag.StringVar(&cfg.SNSRegion, "r", "", "AWS region for SNS SMS delivery")
	flag.StringVar(&cfg.OpsPhone, "p", defaultOpsPhone, "operations phone for order notifications")
	flag.StringVar(&cfg.AuthSecret, "k", "", "secret key for session cookies")
	flag.DurationVar(&cfg.TrackingInterval, "t", defaultTrackingInterval, "order tracking interval")
	flag.DurationVar(&cfg.SimulatedLatency, "l", 0, "simulated latency for catalog and order operations")

	flag.Parse()

	overrideString(&cfg.RunAddress, fromEnv.RunAddress)
	overrideString(&cfg.DatabaseURI, fromEnv.DatabaseURI)
	overrideString(&cfg.SQLitePath, fromEnv.SQLitePath)
	overrideString(&cfg.SMSGatewayAddress, fromEnv.SMSGatewayAddress)
	overrideString(&cfg.SNSRegion, fromEnv.SNSRegion)
	overrideString(&cfg.OpsPhone, fromEnv.OpsPhone)
	overrideString(&cfg.AuthSecret, fromEnv.AuthSecret)
	overrideDuration(&cfg.TrackingInterval, fromEnv.TrackingInterval)
	overrideDuration(&cfg.SimulatedLatency, fromEnv.SimulatedLatency)

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.OpsPhone == "" {
		cfg.OpsPhone = defaultOpsPhone
	}

	return cfg, nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
