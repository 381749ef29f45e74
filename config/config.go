package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents an alias to viper config
type Config = viper.Viper

// New returns a new pointer to the config. Every key can be overridden through
// the environment with a PST_ prefix and dots replaced by underscores,
// e.g. PST_UPLOAD_MAX_BYTES.
func New() *Config {
	v := viper.New()
	v.SetDefault("port", 3000)
	v.SetDefault("database.url", "")
	v.SetDefault("storage.root", "uploads")
	v.SetDefault("upload.max_bytes", int64(1<<30)) // 1 GiB
	v.SetDefault("upload.accepted_types", []string{"application/vnd.ms-outlook", "application/octet-stream"})
	v.SetDefault("upload.allow_empty", true)
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
	v.SetDefault("build_date", "null")
	v.SetDefault("deployed_at", time.Now().UTC().Format(time.RFC3339))

	v.SetEnvPrefix("PST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}
