// Package authcmder provides the auth command for storing vendor tokens.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/spoolworks/weft/pkg/cliui"
	"github.com/spoolworks/weft/pkg/credentials"
)

const authLongDesc string = `Store vendor tokens for chat.

Tokens are stored in credentials.toml in the .weft/ directory and attached
as Bearer credentials on vendor requests. Environment variables
(WEFT_BOT_TOKEN, WEFT_AGENT_TOKEN) take precedence over stored tokens.

The agent vendor rotates tokens server-side; store its refresh token with
--refresh so an expired token can be exchanged mid-session.

Supported vendors: agent, bot

Examples:
  weft auth agent                Prompt for an agent platform token
  weft auth agent --refresh      Prompt for the agent refresh token
  weft auth --list               List stored credentials
  weft auth --remove bot         Remove stored bot credentials
  echo $TOKEN | weft auth bot    Pipe a token from stdin`

const authShortDesc string = "Store vendor tokens for chat"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string
	var refreshFlag bool

	cmd := &cobra.Command{
		Use:   "auth [vendor]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			switch {
			case listFlag:
				return runList(configDir)
			case removeFlag != "":
				return runRemove(removeFlag, configDir)
			default:
				if len(args) == 0 {
					return fmt.Errorf("vendor argument required\n\nSupported vendors: %s",
						strings.Join(credentials.SupportedVendors(), ", "))
				}
				return runAuth(args[0], configDir, refreshFlag)
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedVendors(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove stored credentials for a vendor")
	cmd.Flags().BoolVar(&refreshFlag, "refresh", false, "Store the refresh token instead of the access token")

	return cmd
}

func runAuth(vendor, configDir string, refresh bool) error {
	vendor = strings.ToLower(strings.TrimSpace(vendor))

	if !credentials.IsSupportedVendor(vendor) {
		return fmt.Errorf("unsupported vendor: %q\n\nSupported vendors: %s",
			vendor, strings.Join(credentials.SupportedVendors(), ", "))
	}

	token, err := readToken(vendor, refresh)
	if err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if refresh {
		if err := mgr.SetRefreshToken(vendor, token); err != nil {
			return err
		}
		fmt.Printf("\n  %s Stored %s refresh token.\n\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(vendor),
		)
		return nil
	}

	if err := mgr.SetToken(vendor, token); err != nil {
		return err
	}

	envVar := credentials.EnvVarForVendor(vendor)
	fmt.Printf("\n  %s Stored %s credentials %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(vendor),
		cliui.DimStyle.Render("(override with "+envVar+")"),
	)

	if vendor == "agent" {
		fmt.Printf("  %s Store the refresh token too with 'weft auth agent --refresh' so expired tokens renew mid-session.\n",
			cliui.DimStyle.Render(" "))
	}

	fmt.Println()
	return nil
}

func runList(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	vendors, err := mgr.ListVendors()
	if err != nil {
		return err
	}

	if len(vendors) == 0 {
		fmt.Printf("\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Printf("  Use 'weft auth <vendor>' to store a token.\n")
		fmt.Printf("  Supported vendors: %s\n\n", strings.Join(credentials.SupportedVendors(), ", "))
		return nil
	}

	fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render("Stored credentials"))
	for _, v := range vendors {
		envVar := credentials.EnvVarForVendor(v)
		if envVar != "" {
			fmt.Printf("  %s  %s  %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(v),
				cliui.DimStyle.Render("→ "+envVar),
			)
		} else {
			fmt.Printf("  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(v))
		}
	}
	fmt.Println()

	return nil
}

func runRemove(vendor, configDir string) error {
	vendor = strings.ToLower(strings.TrimSpace(vendor))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveVendor(vendor); err != nil {
		return err
	}

	fmt.Printf("\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(vendor))

	return nil
}

// readToken reads a token from stdin. If stdin is a pipe, it reads the
// first line. Otherwise, it prompts interactively with hidden input.
func readToken(vendor string, refresh bool) (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	// Piped input
	if (fi.Mode() & os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	// Interactive terminal
	kind := "token"
	if refresh {
		kind = "refresh token"
	}
	fmt.Printf("Enter %s for %s: ", kind, vendor)

	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}

	return string(tokenBytes), nil
}
