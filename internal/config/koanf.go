// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"porchlight.yaml",
	"porchlight.yml",
	"/etc/porchlight/config.yaml",
	"/etc/porchlight/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "PORCHLIGHT_CONFIG"

// envPrefix namespaces Porchlight's environment variables.
const envPrefix = "PORCHLIGHT_"

// Load builds the configuration from defaults, an optional YAML file, and
// PORCHLIGHT_ environment variables, then validates it.
//
// Environment variables map by replacing the first underscore-separated
// token with a section: PORCHLIGHT_SERVER_PORT -> server.port,
// PORCHLIGHT_PROVIDERS_STRUCTURED_API_KEY -> providers.structured.api_key.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sections are the known top-level config groups; the env transform splits
// on the first match so multi-word leaf keys survive (read_timeout, api_key).
var sections = []string{"log", "server", "cache", "providers", "engine"}

// subsections nest one level under providers.
var subsections = []string{"structured", "knowledge", "geocode"}

// envTransform maps PORCHLIGHT_SECTION_KEY_NAME to section.key_name, and
// PORCHLIGHT_PROVIDERS_SUB_KEY_NAME to providers.sub.key_name.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	for _, section := range sections {
		prefix := section + "_"
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if section == "providers" {
			for _, sub := range subsections {
				if strings.HasPrefix(rest, sub+"_") {
					return "providers." + sub + "." + strings.TrimPrefix(rest, sub+"_")
				}
			}
		}
		return section + "." + rest
	}
	return key
}
