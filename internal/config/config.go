/*-------------------------------------------------------------------------
 *
 * config.go
 *    Configuration management for CaseTrace server
 *
 * Configuration loads from a YAML file, environment variables, or
 * both; environment variables win when both are present.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/config/config.go
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Logging      LoggingConfig      `yaml:"logging"`
	LLM          LLMConfig          `yaml:"llm"`
	Storage      StorageConfig      `yaml:"storage"`
	Confirmation ConfirmationConfig `yaml:"confirmation"`
	Jobs         JobsConfig         `yaml:"jobs"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type LLMConfig struct {
	Model          string `yaml:"model"`
	ThinkingEffort string `yaml:"thinking_effort"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend"`
	LocalRoot string `yaml:"local_root"`
}

type ConfirmationConfig struct {
	TimeoutMinutes int `yaml:"timeout_minutes"`
}

type JobsConfig struct {
	Workers int `yaml:"workers"`
}

/* DefaultConfig returns the configuration used when nothing overrides it */
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8480,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0, /* streaming endpoints hold connections open */
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "casetrace",
			Database:        "casetrace",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		LLM: LLMConfig{
			Model:          "casetrace-default",
			ThinkingEffort: "medium",
			TimeoutSeconds: 300,
		},
		Storage: StorageConfig{
			Backend:   "database",
			LocalRoot: "./evidence",
		},
		Confirmation: ConfirmationConfig{
			TimeoutMinutes: 30,
		},
		Jobs: JobsConfig{
			Workers: 4,
		},
	}
}

/* LoadConfig loads configuration from a YAML file over the defaults */
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: path='%s', error=%w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: path='%s', error=%w", path, err)
	}

	LoadFromEnv(cfg)
	return cfg, nil
}

/* LoadFromEnv overrides configuration from CASETRACE_* environment
 * variables */
func LoadFromEnv(cfg *Config) {
	setString(&cfg.Server.Host, "CASETRACE_SERVER_HOST")
	setInt(&cfg.Server.Port, "CASETRACE_SERVER_PORT")

	setString(&cfg.Database.Host, "CASETRACE_DB_HOST")
	setInt(&cfg.Database.Port, "CASETRACE_DB_PORT")
	setString(&cfg.Database.User, "CASETRACE_DB_USER")
	setString(&cfg.Database.Password, "CASETRACE_DB_PASSWORD")
	setString(&cfg.Database.Database, "CASETRACE_DB_NAME")
	setInt(&cfg.Database.MaxOpenConns, "CASETRACE_DB_MAX_OPEN_CONNS")
	setInt(&cfg.Database.MaxIdleConns, "CASETRACE_DB_MAX_IDLE_CONNS")

	setString(&cfg.Logging.Level, "CASETRACE_LOG_LEVEL")
	setString(&cfg.Logging.Format, "CASETRACE_LOG_FORMAT")

	setString(&cfg.LLM.Model, "CASETRACE_LLM_MODEL")
	setString(&cfg.LLM.ThinkingEffort, "CASETRACE_LLM_THINKING_EFFORT")
	setInt(&cfg.LLM.TimeoutSeconds, "CASETRACE_LLM_TIMEOUT_SECONDS")

	setString(&cfg.Storage.Backend, "CASETRACE_STORAGE_BACKEND")
	setString(&cfg.Storage.LocalRoot, "CASETRACE_STORAGE_LOCAL_ROOT")

	setInt(&cfg.Confirmation.TimeoutMinutes, "CASETRACE_CONFIRMATION_TIMEOUT_MINUTES")
	setInt(&cfg.Jobs.Workers, "CASETRACE_JOB_WORKERS")
}

func setString(target *string, env string) {
	if v := os.Getenv(env); v != "" {
		*target = v
	}
}

func setInt(target *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

/* ConnString builds the PostgreSQL connection string */
func (c *Config) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Database)
}
