// Package weftcmder
package weftcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/spoolworks/weft/cmd/weft/auth"
	chatcmder "github.com/spoolworks/weft/cmd/weft/chat"
	configcmder "github.com/spoolworks/weft/cmd/weft/config"
	replaycmder "github.com/spoolworks/weft/cmd/weft/replay"
	versioncmder "github.com/spoolworks/weft/cmd/version"
)

const weftLongDesc string = `Weft reconstructs streaming chat replies from incremental vendor patches.

Chat interactively:
  weft chat            Start an interactive chat against the configured vendor

Manage credentials and configuration:
  weft auth <vendor>   Store a vendor token
  weft config list     Show the effective configuration

Develop against a recording:
  weft replay          Serve a recorded SSE fixture as a local vendor`

const weftShortDesc string = "Weft - Streaming chat reconstruction"

func NewWeftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weft",
		Short: weftShortDesc,
		Long:  weftLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml and credentials.toml (default: ./.weft or ~/.weft)")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(replaycmder.NewReplayCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
