// Package configcmder provides the config command for managing persistent
// weft configuration stored in the .weft/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent weft configuration.

Configuration is stored as config.toml in the .weft/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values, and WEFT_* environment variables sit between the two.

Keys use dotted notation matching the TOML section structure:
  vendor.name, vendor.base_url, vendor.bot_id, vendor.app_id, vendor.user_id,
  chat.render,
  replay.listen, replay.fixture

Use subcommands to get, set, or list configuration values:
  weft config set <key> <value>    Set a configuration value
  weft config get <key>            Get a configuration value
  weft config list                 List all configuration values

Examples:
  weft config set vendor.name agent
  weft config set vendor.base_url https://agent.example.com
  weft config get vendor.name
  weft config list`

const configShortDesc string = "Manage persistent weft configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
