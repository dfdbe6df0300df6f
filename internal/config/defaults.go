package config

import (
	"github.com/spf13/viper"

	"boolnet/internal/storage"
)

const (
	DefaultStorePath   = "boolnet.db"
	DefaultMaxOptional = 16
	DefaultArtifacts   = "boolnet-artifacts"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.kind", storage.DefaultStoreKind())
	v.SetDefault("store.path", DefaultStorePath)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("enumeration.max_optional", DefaultMaxOptional)
	v.SetDefault("enumeration.workers", 1)

	v.SetDefault("synthesis.reference", "first")
	v.SetDefault("synthesis.optional_aware", false)

	v.SetDefault("artifacts.dir", DefaultArtifacts)
}
