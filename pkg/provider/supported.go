package provider

import (
	"fmt"
	"log/slog"

	"github.com/spoolworks/weft/pkg/provider/agent"
	"github.com/spoolworks/weft/pkg/provider/bot"
	"github.com/spoolworks/weft/pkg/transport"
)

// Supported vendor name constants.
const (
	Bot   = "bot"
	Agent = "agent"
)

// SupportedVendors returns the list of all supported vendor names.
func SupportedVendors() []string {
	return []string{Bot, Agent}
}

// Settings carries the construction parameters common to both vendors.
// Vendor-specific ids are both present; only the selected vendor's is used.
type Settings struct {
	BaseURL string
	BotID   string
	AppID   string
	UserID  string
	HTTP    *transport.Client
	Logger  *slog.Logger
}

// New creates the Adapter for the given vendor name.
// Returns an error if the vendor is not recognized.
func New(vendor string, settings Settings) (Adapter, error) {
	switch vendor {
	case Bot:
		return bot.New(bot.Config{
			BaseURL: settings.BaseURL,
			BotID:   settings.BotID,
			UserID:  settings.UserID,
			HTTP:    settings.HTTP,
			Logger:  settings.Logger,
		})
	case Agent:
		return agent.New(agent.Config{
			BaseURL: settings.BaseURL,
			AppID:   settings.AppID,
			HTTP:    settings.HTTP,
			Logger:  settings.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown vendor: %q (supported: %v)", vendor, SupportedVendors())
	}
}
