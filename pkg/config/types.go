package config

import (
	"strconv"
)

// Config represents the persistent weft configuration stored as config.toml
// in the .weft/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Vendor  VendorConfig `toml:"vendor"`
	Chat    ChatConfig   `toml:"chat"`
	Replay  ReplayConfig `toml:"replay"`
}

// VendorConfig selects and addresses the chat vendor.
type VendorConfig struct {
	// Name is the vendor name: "agent" or "bot".
	Name string `toml:"name,omitempty"`

	// BaseURL is the vendor API origin.
	BaseURL string `toml:"base_url,omitempty"`

	// BotID identifies the bot on the bot platform.
	BotID string `toml:"bot_id,omitempty"`

	// AppID identifies the application on the agent platform.
	AppID string `toml:"app_id,omitempty"`

	// UserID is the caller identity sent on bot-platform chat calls.
	UserID string `toml:"user_id,omitempty"`
}

// ChatConfig holds chat rendering settings.
type ChatConfig struct {
	// Render enables terminal markdown rendering of assistant replies.
	Render bool `toml:"render,omitempty"`
}

// ReplayConfig holds replay fixture server settings.
type ReplayConfig struct {
	// Listen is the replay server bind address.
	Listen string `toml:"listen,omitempty"`

	// Fixture is the path of the SSE fixture file to serve.
	Fixture string `toml:"fixture,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"vendor.name": {
		get: func(c *Config) string { return c.Vendor.Name },
		set: func(c *Config, v string) error { c.Vendor.Name = v; return nil },
	},
	"vendor.base_url": {
		get: func(c *Config) string { return c.Vendor.BaseURL },
		set: func(c *Config, v string) error { c.Vendor.BaseURL = v; return nil },
	},
	"vendor.bot_id": {
		get: func(c *Config) string { return c.Vendor.BotID },
		set: func(c *Config, v string) error { c.Vendor.BotID = v; return nil },
	},
	"vendor.app_id": {
		get: func(c *Config) string { return c.Vendor.AppID },
		set: func(c *Config, v string) error { c.Vendor.AppID = v; return nil },
	},
	"vendor.user_id": {
		get: func(c *Config) string { return c.Vendor.UserID },
		set: func(c *Config, v string) error { c.Vendor.UserID = v; return nil },
	},
	"chat.render": {
		get: func(c *Config) string { return strconv.FormatBool(c.Chat.Render) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errInvalidBool("chat.render", err)
			}
			c.Chat.Render = b
			return nil
		},
	},
	"replay.listen": {
		get: func(c *Config) string { return c.Replay.Listen },
		set: func(c *Config, v string) error { c.Replay.Listen = v; return nil },
	},
	"replay.fixture": {
		get: func(c *Config) string { return c.Replay.Fixture },
		set: func(c *Config, v string) error { c.Replay.Fixture = v; return nil },
	},
}
