package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Africa/Cairo"

	configPathEnv  = "SENTINEL_CONFIG"
	databaseDSNEnv = "DATABASE_DSN"
	httpAddrEnv    = "SENTINEL_HTTP_ADDR"
	openAIKeyEnv   = "OPENAI_API_KEY"
	openAIModelEnv = "OPENAI_MODEL"
	alertKeyEnv    = "ALERT_GATEWAY_API_KEY"
	alertToEnv     = "ALERT_RECIPIENT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	HTTP       HTTPConfig       `yaml:"http"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Alerts     AlertConfig      `yaml:"alerts"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DatabaseConfig describes the Postgres connection. DSN "memory"
// selects the in-process repository (tests, local runs).
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// HTTPConfig describes the REST listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig defines when the sweep and digest jobs run. Times are
// wall-clock HH:MM in the configured business timezone.
type SchedulerConfig struct {
	DailyAt   string         `yaml:"dailyAt"`
	WeeklyAt  string         `yaml:"weeklyAt"`
	WeeklyDay string         `yaml:"weeklyDay"`
	Timezone  string         `yaml:"timezone"`
	location  *time.Location `yaml:"-"`
}

// Location resolves the business timezone to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ManualRunMode selects what the on-demand trigger does.
type ManualRunMode string

const (
	// ManualRunProbe fetches and counts without summarizing or persisting.
	ManualRunProbe ManualRunMode = "probe"
	// ManualRunFull runs the same path as the scheduled sweep.
	ManualRunFull ManualRunMode = "full"
)

// MonitoringConfig tunes the sweep pipeline and the work queues.
type MonitoringConfig struct {
	ManualRunMode       ManualRunMode `yaml:"manualRunMode"`
	FetchTimeoutSeconds int           `yaml:"fetchTimeoutSeconds"`
	QueueSize           int           `yaml:"queueSize"`
	MaxRetries          int           `yaml:"maxRetries"`
}

// FetchTimeout returns the per-source hard timeout budget.
func (m MonitoringConfig) FetchTimeout() time.Duration {
	if m.FetchTimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(m.FetchTimeoutSeconds) * time.Second
}

// OpenAIConfig defines how to contact the chat completions API.
type OpenAIConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// AlertConfig wires the mail gateway used for SEV1 alerts.
type AlertConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv(alertKeyEnv); v != "" {
		c.Alerts.APIKey = v
	}
	if v := os.Getenv(alertToEnv); v != "" {
		c.Alerts.To = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{DSN: "memory"},
		HTTP:     HTTPConfig{Addr: ":8080"},
		Scheduler: SchedulerConfig{
			DailyAt:   "09:30",
			WeeklyAt:  "09:00",
			WeeklyDay: "Monday",
			Timezone:  defaultTimezone,
			location:  tz,
		},
		Monitoring: MonitoringConfig{
			ManualRunMode:       ManualRunProbe,
			FetchTimeoutSeconds: 20,
			QueueSize:           64,
			MaxRetries:          3,
		},
		OpenAI: OpenAIConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-5",
		},
		Alerts: AlertConfig{
			From: "sentinel@course.local",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
