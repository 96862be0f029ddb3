package config

import (
	"errors"
	"os"
)

// Config holds environment-driven configuration.
type Config struct {
	Kaya struct {
		BaseURL string // default: https://kaya-beta.kayaclimb.com
	}
	Secrets struct {
		EnvFile    string // local token file, default: .env
		ForceCloud bool   // force the cloud secret backend outside Lambda
		SecretName string // KAYA_API_TOKENS_SECRET_NAME
	}
	Store struct {
		Driver string // sqlite (default), postgres, mysql
		DSN    string
		Schema string // optional, postgres only
	}
	Gyms struct {
		ConfigPath string // JSON map of gym name -> gym id
	}
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config

	cfg.Kaya.BaseURL = os.Getenv("KAYA_BASE_URL")
	if cfg.Kaya.BaseURL == "" {
		cfg.Kaya.BaseURL = "https://kaya-beta.kayaclimb.com"
	}

	cfg.Secrets.EnvFile = os.Getenv("KAYA_ENV_FILE")
	if cfg.Secrets.EnvFile == "" {
		cfg.Secrets.EnvFile = ".env"
	}
	cfg.Secrets.SecretName = os.Getenv("KAYA_API_TOKENS_SECRET_NAME")

	cfg.Store.Driver = os.Getenv("STORE_DRIVER")
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	switch cfg.Store.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return cfg, errors.New("STORE_DRIVER must be one of sqlite, postgres, mysql")
	}
	cfg.Store.DSN = os.Getenv("STORE_DSN")
	if cfg.Store.DSN == "" {
		if cfg.Store.Driver != "sqlite" {
			return cfg, errors.New("STORE_DSN is required for non-sqlite drivers")
		}
		cfg.Store.DSN = "data/kaya_data.db"
	}
	cfg.Store.Schema = os.Getenv("STORE_SCHEMA")

	cfg.Gyms.ConfigPath = os.Getenv("GYMS_CONFIG")
	if cfg.Gyms.ConfigPath == "" {
		cfg.Gyms.ConfigPath = "gyms_to_update.json"
	}

	return cfg, nil
}

// UseCloudSecrets reports whether the cloud secret backend should be active.
// It is a pure function of the force flag and the Lambda environment marker.
func UseCloudSecrets(force bool) bool {
	_, inLambda := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME")
	return force || inLambda
}
