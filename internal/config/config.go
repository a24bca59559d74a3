// Package config loads run defaults from the environment. Flags always
// override these values.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/davrell/licenseprobe/internal/fetcher"
)

// Config holds the tunable defaults of a scan run
type Config struct {
	IndexURL    string
	Jobs        int
	PreferSdist bool
	KeepTemp    bool
	RPMKeyring  string
}

// Load reads the defaults, honoring LICENSEPROBE_* environment variables.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("LICENSEPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("index_url", fetcher.DefaultIndexURL)
	v.SetDefault("jobs", 4)
	v.SetDefault("prefer_sdist", false)
	v.SetDefault("keep_temp", false)
	v.SetDefault("rpm_keyring", "")

	return &Config{
		IndexURL:    v.GetString("index_url"),
		Jobs:        v.GetInt("jobs"),
		PreferSdist: v.GetBool("prefer_sdist"),
		KeepTemp:    v.GetBool("keep_temp"),
		RPMKeyring:  v.GetString("rpm_keyring"),
	}
}
