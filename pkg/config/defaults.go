package config

const (
	defaultVendor  = "agent"
	defaultBaseURL = "http://localhost:8090"

	defaultReplayListen = ":8099"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Vendor: VendorConfig{
			Name:    defaultVendor,
			BaseURL: defaultBaseURL,
		},
		Chat: ChatConfig{
			Render: true,
		},
		Replay: ReplayConfig{
			Listen: defaultReplayListen,
		},
	}
}
