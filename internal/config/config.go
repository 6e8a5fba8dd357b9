// Package config loads the application configuration from YAML via Viper,
// with OPSYNC_-prefixed environment variables overriding file values.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

const envPrefix = "OPSYNC"

// Config keys with non-zero defaults.
const (
	cfgKeyPageSize        = "sync.page_size"
	cfgKeyAttachmentMaxMB = "sync.attachment_max_mb"
	cfgKeySyncComments    = "sync.sync_comments"
	cfgKeySyncAttachments = "sync.sync_attachments"
	cfgKeyConcurrency     = "sync.concurrency"
	cfgKeyOnUnmapped      = "sync.on_unmapped"
	cfgKeyStateDB         = "state_db"
)

// Load reads configuration from path, which the caller resolves via
// internal/paths. An empty path means no config file: defaults and
// environment variables alone apply. The returned Config is validated.
func Load(path string) (types.Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return types.Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(cfgKeyPageSize, 100)
	v.SetDefault(cfgKeyAttachmentMaxMB, 200.0)
	v.SetDefault(cfgKeySyncComments, true)
	v.SetDefault(cfgKeySyncAttachments, true)
	v.SetDefault(cfgKeyConcurrency, 1)
	v.SetDefault(cfgKeyOnUnmapped, types.OnUnmappedOmit)
	v.SetDefault(cfgKeyStateDB, ".sync_state.db")
}
