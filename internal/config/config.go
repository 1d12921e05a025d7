// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package config loads settings for the jsonbridge command.
//
// Settings are layered: built-in defaults, then an optional TOML file, then an optional .env
// file, then the process environment. Later layers win.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Environment variables read by Load.
const (
	EnvURI        = "MONGODB_URI"
	EnvDatabase   = "JSONBRIDGE_DATABASE"
	EnvCollection = "JSONBRIDGE_COLLECTION"
	EnvBackend    = "JSONBRIDGE_BACKEND"
	EnvTimeout    = "JSONBRIDGE_TIMEOUT"
	EnvLogLevel   = "JSONBRIDGE_LOG_ALL"
)

// Config holds the jsonbridge settings.
type Config struct {
	URI        string
	Database   string
	Collection string
	Backend    string
	LogLevel   string
	Timeout    time.Duration
}

// fileConfig is the TOML layout. Keys left out of the file keep their previous value.
type fileConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
	Backend    string `toml:"backend"`
	LogLevel   string `toml:"log_level"`
	Timeout    string `toml:"timeout"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		URI:        "mongodb://localhost:27017",
		Database:   "jsonbridge",
		Collection: "linq",
		Backend:    BackendMemory,
		LogLevel:   "off",
		Timeout:    10 * time.Second,
	}
}

// Load builds a Config. path names a TOML file and may be empty. A .env file in the working
// directory is read if present; variables already set in the environment are not overridden
// by it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "cannot read .env")
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return errors.Wrapf(err, "cannot read config file %s", path)
	}

	var file fileConfig
	if err := tree.Unmarshal(&file); err != nil {
		return errors.Wrapf(err, "cannot decode config file %s", path)
	}

	overlay(&c.URI, file.URI)
	overlay(&c.Database, file.Database)
	overlay(&c.Collection, file.Collection)
	overlay(&c.Backend, file.Backend)
	overlay(&c.LogLevel, file.LogLevel)
	if file.Timeout != "" {
		d, err := time.ParseDuration(file.Timeout)
		if err != nil {
			return errors.Wrapf(err, "%s: invalid timeout", path)
		}
		c.Timeout = d
	}
	return nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) loadEnv() error {
	overlay(&c.URI, os.Getenv(EnvURI))
	overlay(&c.Database, os.Getenv(EnvDatabase))
	overlay(&c.Collection, os.Getenv(EnvCollection))
	overlay(&c.Backend, os.Getenv(EnvBackend))
	overlay(&c.LogLevel, os.Getenv(EnvLogLevel))

	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvTimeout)
		}
		c.Timeout = d
	}
	return nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendMongo:
	default:
		return errors.Errorf("unknown backend %q, want %s or %s", c.Backend, BackendMemory, BackendMongo)
	}
	if c.Database == "" || c.Collection == "" {
		return errors.New("database and collection must not be empty")
	}
	if c.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}
