package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Question sources selectable under quiz.sources.
const (
	SourceBank      = "bank"
	SourceOpenTDB   = "opentdb"
	SourceTriviaAPI = "triviaapi"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		Sources      []string `yaml:"sources"`
		BankPath     string   `yaml:"bank_path"`
		OpenTDBURL   string   `yaml:"opentdb_url"`
		TriviaAPIURL string   `yaml:"triviaapi_url"`
		Discount     float64  `yaml:"discount"`
		Attempts     int      `yaml:"attempts"`
		RememberSeen bool     `yaml:"remember_seen"`
		ProfileTTL   string   `yaml:"profile_ttl"`
		FetchTimeout string   `yaml:"fetch_timeout"`
	} `yaml:"quiz"`
	Client struct {
		BaseURL        string `yaml:"base_url"`
		Player         string `yaml:"player"`
		SettleDelay    string `yaml:"settle_delay"`
		TopN           int    `yaml:"top_n"`
		RandomCategory bool   `yaml:"random_category"`
		Timeout        string `yaml:"timeout"`
		LogFile        string `yaml:"log_file"`
	} `yaml:"client"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Quiz.Sources = []string{SourceBank}
	cfg.Quiz.Discount = 0.85
	cfg.Quiz.Attempts = 6
	cfg.Quiz.ProfileTTL = "1m"
	cfg.Quiz.FetchTimeout = "5s"
	cfg.Client.BaseURL = "http://localhost:8080"
	cfg.Client.SettleDelay = "1.5s"
	cfg.Client.TopN = 2
	cfg.Client.Timeout = "10s"
	cfg.Client.LogFile = "trickia.log"
	return cfg
}

// Load reads YAML config from path over the defaults. A missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
