// Package config loads docbox's root TOML configuration file.
//
// Per-backend sections are decoded into typed structs directly (unlike the
// teacher's fully dynamic map[string]interface{} driver options) because
// docbox's backend set is closed (spec.md §9): a secrets/storage/search/
// events "Kind" field picks among a fixed set of concrete structs, never an
// open plugin registry.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root daemon/CLI configuration.
type Config struct {
	Network string `toml:"network"`
	Address string `toml:"address"`

	RootDatabase DatabaseConfig `toml:"root_database"`

	Secrets   SecretsConfig   `toml:"secrets"`
	Storage   StorageConfig   `toml:"storage"`
	Search    SearchConfig    `toml:"search"`
	Events    EventsConfig    `toml:"events"`
	Converter ConverterConfig `toml:"converter"`

	Maintenance MaintenanceConfig `toml:"maintenance"`
}

// DatabaseConfig names a MySQL-compatible database to connect to.
type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

// DSN renders a go-sql-driver/mysql data source name.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", d.User, d.Password, d.Host, d.Port, d.Name)
}

// SecretsConfig selects and configures the secret manager (aws|memory|json).
type SecretsConfig struct {
	Driver string `toml:"driver"`
	// JSONPath is used by the "json" driver: a path to a file containing
	// {"<secret-name>": {"username":"...","password":"..."}, ...}.
	JSONPath string `toml:"json_path"`
	// Region is used by the "aws" driver.
	Region string `toml:"region"`
}

// StorageConfig configures the S3-compatible blob storage backend.
type StorageConfig struct {
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// SearchConfig selects and configures the search-index backend
// (opensearch|typesense).
type SearchConfig struct {
	Driver   string `toml:"driver"`
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
}

// EventsConfig configures the NATS JetStream connection used both for
// lifecycle event publication and storage-notification consumption.
type EventsConfig struct {
	Driver  string `toml:"driver"` // "nats" | "channel" | "noop"
	Address string `toml:"address"`
}

// ConverterConfig configures the office-to-PDF converter client.
type ConverterConfig struct {
	// Addresses is the load-balanced list of converter HTTP endpoints.
	Addresses []string `toml:"addresses"`
	// Retries is the number of attempts the round-robin balancer makes
	// before giving up.
	Retries int `toml:"retries"`
	// Serverless, TempBucket, and RequestTimeout are decoded from the config
	// file but nothing reads them: conversion always goes through the
	// Addresses list, with no serverless invocation and no temp-bucket
	// staging.
	Serverless       string `toml:"serverless"`
	TempBucket       string `toml:"temp_bucket"`
	RequestTimeout   time.Duration `toml:"request_timeout"`
}

// MaintenanceConfig tunes the background maintenance driver (C9).
type MaintenanceConfig struct {
	PurgeInterval     time.Duration `toml:"purge_interval"`
	ReprocessInterval time.Duration `toml:"reprocess_interval"`
	ReprocessPageSize int           `toml:"reprocess_page_size"`
	ReprocessConcurrency int        `toml:"reprocess_concurrency"`
}

// Default returns a Config with the defaults described in spec.md §6.
func Default() Config {
	return Config{
		Network: "tcp",
		Address: ":9090",
		Events:  EventsConfig{Driver: "nats", Address: "127.0.0.1:4222"},
		Converter: ConverterConfig{
			Retries:        3,
			RequestTimeout: 30 * time.Second,
		},
		Maintenance: MaintenanceConfig{
			PurgeInterval:        5 * time.Minute,
			ReprocessInterval:    time.Hour,
			ReprocessPageSize:    1000,
			ReprocessConcurrency: 50,
		},
	}
}

// LoadFromFile reads and decodes a TOML configuration file, starting from
// Default() so unset sections keep sane values.
func LoadFromFile(fn string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(fn, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", fn, err)
	}
	return &cfg, nil
}
