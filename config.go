package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath     string `yaml:"db_path"`
	ListenAddr string `yaml:"listen_addr"`
	ExportDir  string `yaml:"export_dir"`

	// Optional YAML file replacing the built-in keyword dictionary.
	KeywordsPath string `yaml:"keywords_path"`

	// Idle thresholds for the turn tracker, in seconds. Some deployments
	// run 30/300 instead of the default 300/600.
	TurnExpiredSeconds int `yaml:"turn_expired_seconds"`
	TurnOfflineSeconds int `yaml:"turn_offline_seconds"`

	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	MessagePageLimit     int `yaml:"message_page_limit"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.ExportDir, "EXPORT_DIR")
	envOverride(&cfg.KeywordsPath, "KEYWORDS_PATH")
	envOverrideInt(&cfg.TurnExpiredSeconds, "TURN_EXPIRED_SECONDS")
	envOverrideInt(&cfg.TurnOfflineSeconds, "TURN_OFFLINE_SECONDS")
	envOverrideInt(&cfg.SweepIntervalSeconds, "SWEEP_INTERVAL_SECONDS")
	envOverrideInt(&cfg.MessagePageLimit, "MESSAGE_PAGE_LIMIT")

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "./chatqa.db"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":3000"
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "./reports"
	}
	if cfg.TurnExpiredSeconds == 0 {
		cfg.TurnExpiredSeconds = 300
	}
	if cfg.TurnOfflineSeconds == 0 {
		cfg.TurnOfflineSeconds = 600
	}
	if cfg.SweepIntervalSeconds == 0 {
		cfg.SweepIntervalSeconds = 1
	}
	if cfg.MessagePageLimit == 0 {
		cfg.MessagePageLimit = 200
	}

	// Validate
	if cfg.TurnExpiredSeconds < 1 {
		log.Fatalf("invalid turn_expired_seconds '%d': must be >= 1", cfg.TurnExpiredSeconds)
	}
	if cfg.TurnOfflineSeconds <= cfg.TurnExpiredSeconds {
		log.Fatalf("invalid turn_offline_seconds '%d': must be greater than turn_expired_seconds (%d)",
			cfg.TurnOfflineSeconds, cfg.TurnExpiredSeconds)
	}
	if cfg.SweepIntervalSeconds < 1 {
		log.Fatalf("invalid sweep_interval_seconds '%d': must be >= 1", cfg.SweepIntervalSeconds)
	}
	if cfg.MessagePageLimit < 1 {
		log.Fatalf("invalid message_page_limit '%d': must be >= 1", cfg.MessagePageLimit)
	}
	if cfg.KeywordsPath != "" {
		if _, err := LoadKeywords(cfg.KeywordsPath); err != nil {
			log.Fatalf("invalid keywords_path '%s': %v", cfg.KeywordsPath, err)
		}
	}

	return cfg
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c Config) Thresholds() StatusThresholds {
	return StatusThresholds{
		Expired: time.Duration(c.TurnExpiredSeconds) * time.Second,
		Offline: time.Duration(c.TurnOfflineSeconds) * time.Second,
	}
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
