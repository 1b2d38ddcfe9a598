package main

import (
	"fmt"
	"os"
	"time"

	configtypes "github.com/omniverse/omnimarket/internal/config"
	"go.yaml.in/yaml/v4"
)

type config struct {
	Server struct {
		Addr           string               `yaml:"addr"`
		RequestTimeout configtypes.Duration `yaml:"request_timeout"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"` // debug, info, warn, error
	} `yaml:"log"`
	Providers struct {
		Kalshi struct {
			BaseURL       string                    `yaml:"base_url"`
			APIKeyID      string                    `yaml:"api_key_id"`
			APIPrivateKey configtypes.RSAPrivateKey `yaml:"api_private_key"`
		} `yaml:"kalshi"`
		Polymarket struct {
			GammaURL string `yaml:"gamma_url"`
			ClobURL  string `yaml:"clob_url"`
			APIKey   string `yaml:"api_key"`
		} `yaml:"polymarket"`
	} `yaml:"providers"`
	Retry struct {
		MaxAttempts int                  `yaml:"max_attempts"`
		BaseDelay   configtypes.Duration `yaml:"base_delay"`
		MaxDelay    configtypes.Duration `yaml:"max_delay"`
	} `yaml:"retry"`
	Mock struct {
		Dataset string `yaml:"dataset"`
	} `yaml:"mock"`
	Sync struct {
		Schedule   string               `yaml:"schedule"`
		Timeout    configtypes.Duration `yaml:"timeout"`
		RunOnStart bool                 `yaml:"run_on_start"`
	} `yaml:"sync"`
}

func readConfig(configPath *string) (*config, error) {
	rawConfig, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("couldn't read file %s: %w", *configPath, err)
	}

	// ${VAR} references resolve against the environment so credentials
	// stay out of the file.
	expanded := os.ExpandEnv(string(rawConfig))

	cfg := &config{}
	if err = yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("couldn't parse config: %w", err)
	}

	applyDefaults(cfg)

	err = validateConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't validate config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = configtypes.Duration(30 * time.Second)
	}
	if cfg.Sync.Timeout == 0 {
		cfg.Sync.Timeout = configtypes.Duration(2 * time.Minute)
	}
}

func validateConfig(cfg *config) error {
	// Kalshi
	keyID := cfg.Providers.Kalshi.APIKeyID
	key := cfg.Providers.Kalshi.APIPrivateKey.PrivateKey
	if (keyID == "") != (key == nil) {
		return fmt.Errorf("providers.kalshi: api_key_id and api_private_key must be set together")
	}

	// Retry
	if cfg.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must not be negative")
	}
	if cfg.Retry.MaxDelay != 0 && cfg.Retry.BaseDelay.Duration() > cfg.Retry.MaxDelay.Duration() {
		return fmt.Errorf("retry.base_delay must not exceed retry.max_delay")
	}

	return nil
}
