// Package config loads boolnet settings from boolnet.toml, BOOLNET_* environment
// variables and built-in defaults.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"boolnet/internal/errors"
)

// FileName is the base name searched for in the working directory when no
// explicit config path is given.
const FileName = "boolnet"

// EnvPrefix prefixes every environment override, e.g. BOOLNET_STORE_KIND.
const EnvPrefix = "BOOLNET"

type Config struct {
	Store       StoreConfig       `mapstructure:"store"`
	Log         LogConfig         `mapstructure:"log"`
	Enumeration EnumerationConfig `mapstructure:"enumeration"`
	Synthesis   SynthesisConfig   `mapstructure:"synthesis"`
	Artifacts   ArtifactsConfig   `mapstructure:"artifacts"`
}

type StoreConfig struct {
	Kind string `mapstructure:"kind"`
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

type EnumerationConfig struct {
	// MaxOptional caps the optional interactions a session accepts; the
	// enumeration holds 2^MaxOptional topologies at most.
	MaxOptional int `mapstructure:"max_optional"`
	Workers     int `mapstructure:"workers"`
}

type SynthesisConfig struct {
	Reference     string `mapstructure:"reference"`
	OptionalAware bool   `mapstructure:"optional_aware"`
}

type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads configuration from path, or from ./boolnet.toml when path is
// empty and such a file exists. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config file")
			}
		}
	}

	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewViper returns a viper instance with defaults and environment binding
// applied but no config file read.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// LoadWithViper unmarshals configuration from a caller-provided viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &cfg, nil
}
