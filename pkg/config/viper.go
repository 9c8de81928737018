package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/spoolworks/weft/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the WEFT_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (WEFT_VENDOR_NAME, WEFT_REPLAY_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: WEFT_VENDOR_BASE_URL, WEFT_CHAT_RENDER, etc.
	v.SetEnvPrefix("WEFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Vendor
	v.SetDefault("vendor.name", d.Vendor.Name)
	v.SetDefault("vendor.base_url", d.Vendor.BaseURL)
	v.SetDefault("vendor.bot_id", d.Vendor.BotID)
	v.SetDefault("vendor.app_id", d.Vendor.AppID)
	v.SetDefault("vendor.user_id", d.Vendor.UserID)

	// Chat
	v.SetDefault("chat.render", d.Chat.Render)

	// Replay
	v.SetDefault("replay.listen", d.Replay.Listen)
	v.SetDefault("replay.fixture", d.Replay.Fixture)
}
