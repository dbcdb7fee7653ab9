// Package config loads per-instance configuration from config.toml and
// resolves module credentials through environment-variable expansion with a
// documented fallback chain. Credential resolution is a pure function over
// the raw config and the process environment; the sync engine never touches
// environment variables itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigFileName is the per-instance configuration file name.
const ConfigFileName = "config.toml"

// Fallback environment variables consulted when a config field expands to
// empty. These match the variables the platform's own tooling uses.
const (
	fallbackFQDN     = "DEMISTO_BASE_URL"
	fallbackAPIKey   = "DEMISTO_API_KEY"
	fallbackAPIKeyID = "XSIAM_AUTH_ID"
)

// ModuleConfig is the fully-resolved credential set for one module.
type ModuleConfig struct {
	Enabled  bool
	FQDN     string
	APIKey   string
	APIKeyID string
}

// MissingCredentialError reports a config field that is empty after
// expansion and has no fallback variable set.
type MissingCredentialError struct {
	Module      string
	Field       string
	FallbackVar string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("configuration field %q is empty and fallback variable %s is not set (module: %s)",
		e.Field, e.FallbackVar, e.Module)
}

// ModuleNotConfiguredError reports a module with no [modules.<id>] block.
type ModuleNotConfiguredError struct {
	Module   string
	Instance string
}

func (e *ModuleNotConfiguredError) Error() string {
	return fmt.Sprintf("module %q not configured in instance %q", e.Module, e.Instance)
}

// moduleSection is the raw on-disk shape of one [modules.<id>] block.
type moduleSection struct {
	Enabled  *bool  `mapstructure:"enabled"`
	FQDN     string `mapstructure:"fqdn"`
	APIKey   string `mapstructure:"api_key"`
	APIKeyID string `mapstructure:"api_key_id"`
}

type configFile struct {
	InstanceName string                   `mapstructure:"instance_name"`
	Modules      map[string]moduleSection `mapstructure:"modules"`
}

// InstanceConfig is the parsed, unresolved configuration of one instance.
type InstanceConfig struct {
	InstanceName string

	instanceDir string
	raw         configFile
}

// LoadInstance reads and parses <instanceDir>/config.toml.
func LoadInstance(instanceDir string) (*InstanceConfig, error) {
	path := filepath.Join(instanceDir, ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("instance %q not found: run 'gcgit init --instance %s' first",
			instanceDir, instanceDir)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var raw configFile
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	name := raw.InstanceName
	if name == "" {
		name = filepath.Base(instanceDir)
	}

	return &InstanceConfig{
		InstanceName: name,
		instanceDir:  instanceDir,
		raw:          raw,
	}, nil
}

// Module resolves the credential set for one module. A missing block is a
// ModuleNotConfiguredError; a disabled module resolves to Enabled=false with
// no credential check, since a disabled module is absent from every sync run.
func (c *InstanceConfig) Module(id string) (ModuleConfig, error) {
	section, ok := c.raw.Modules[id]
	if !ok {
		return ModuleConfig{}, &ModuleNotConfiguredError{Module: id, Instance: c.InstanceName}
	}

	enabled := section.Enabled == nil || *section.Enabled
	if !enabled {
		return ModuleConfig{Enabled: false}, nil
	}

	fqdn, err := resolveField(section.FQDN, fallbackFQDN, "fqdn", id)
	if err != nil {
		return ModuleConfig{}, err
	}
	apiKey, err := resolveField(section.APIKey, fallbackAPIKey, "api_key", id)
	if err != nil {
		return ModuleConfig{}, err
	}
	apiKeyID, err := resolveField(section.APIKeyID, fallbackAPIKeyID, "api_key_id", id)
	if err != nil {
		return ModuleConfig{}, err
	}

	return ModuleConfig{
		Enabled:  true,
		FQDN:     normalizeFQDN(fqdn),
		APIKey:   apiKey,
		APIKeyID: apiKeyID,
	}, nil
}

// resolveField expands a "${VAR}" reference and falls back to the module's
// well-known environment variable when the expansion comes up empty.
func resolveField(value, fallbackVar, field, moduleID string) (string, error) {
	expanded := expandEnv(value)
	if expanded != "" {
		return expanded, nil
	}
	if v := os.Getenv(fallbackVar); v != "" {
		return v, nil
	}
	return "", &MissingCredentialError{Module: moduleID, Field: field, FallbackVar: fallbackVar}
}

// expandEnv resolves values of the exact form "${VAR}"; anything else is
// returned verbatim.
func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(value[2 : len(value)-1])
	}
	return value
}

// normalizeFQDN strips any scheme prefix and trailing slash so the API
// client can build URLs uniformly.
func normalizeFQDN(fqdn string) string {
	fqdn = strings.TrimPrefix(fqdn, "https://")
	fqdn = strings.TrimPrefix(fqdn, "http://")
	return strings.TrimSuffix(fqdn, "/")
}

// WriteTemplate writes a config.toml template for a fresh instance, one
// [modules.<id>] block per known module with "${VAR}" placeholders.
func WriteTemplate(instanceDir, instanceName string, moduleIDs []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "instance_name = %q\n", instanceName)
	for _, id := range moduleIDs {
		fmt.Fprintf(&b, "\n[modules.%s]\n", id)
		b.WriteString("enabled = true\n")
		b.WriteString("fqdn = \"${XSIAM_FQDN}\"\n")
		b.WriteString("api_key = \"${XSIAM_API_KEY}\"\n")
		b.WriteString("api_key_id = \"${XSIAM_API_KEY_ID}\"\n")
	}

	path := filepath.Join(instanceDir, ConfigFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
