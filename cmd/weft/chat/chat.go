// Package chatcmder provides the chat command for interactive conversations
// against a configured vendor.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/spoolworks/weft/pkg/cliui"
	"github.com/spoolworks/weft/pkg/client"
	"github.com/spoolworks/weft/pkg/config"
	"github.com/spoolworks/weft/pkg/credentials"
	"github.com/spoolworks/weft/pkg/dotdir"
	"github.com/spoolworks/weft/pkg/logger"
	"github.com/spoolworks/weft/pkg/provider"
	"github.com/spoolworks/weft/pkg/provider/agent"
	"github.com/spoolworks/weft/pkg/transport"
	"github.com/spoolworks/weft/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	vendor  string
	baseURL string
	botID   string
	appID   string
	userID  string
	render  bool

	configDir string
	debug     bool

	logger *slog.Logger
}

// chatFlags is the flag registry for the chat command. Each flag maps to a
// dotted viper key so the flag > env > config.toml > default precedence
// chain applies uniformly.
var chatFlags = config.FlagSet{
	config.FlagVendor: {
		Name:        "vendor",
		Shorthand:   "v",
		ViperKey:    "vendor.name",
		Description: "Vendor to chat against (agent, bot)",
	},
	config.FlagBaseURL: {
		Name:        "base-url",
		Shorthand:   "b",
		ViperKey:    "vendor.base_url",
		Description: "Vendor API base URL",
	},
	config.FlagBotID: {
		Name:        "bot-id",
		ViperKey:    "vendor.bot_id",
		Description: "Bot id (bot vendor only)",
	},
	config.FlagAppID: {
		Name:        "app-id",
		ViperKey:    "vendor.app_id",
		Description: "Application id (agent vendor only)",
	},
	config.FlagUserID: {
		Name:        "user-id",
		ViperKey:    "vendor.user_id",
		Description: "User id attached to chat requests",
	},
	config.FlagRender: {
		Name:        "render",
		ViperKey:    "chat.render",
		Description: "Render markdown replies for the terminal",
	},
}

var chatFlagKeys = []string{
	config.FlagVendor,
	config.FlagBaseURL,
	config.FlagBotID,
	config.FlagAppID,
	config.FlagUserID,
	config.FlagRender,
}

const chatLongDesc string = `Start an interactive chat session against the configured vendor.

Replies stream in as incremental patches and are reconstructed into
markdown, web search, tool, and chart blocks before display.

If a previous session exists (stored in the .weft/ directory), the
conversation resumes where it left off. Use /new inside the session to
start a fresh conversation, /exit or Ctrl+D to quit.

Point --base-url at "weft replay" to chat against a recorded fixture
without vendor credentials.

Examples:
  weft chat
  weft chat --vendor bot --bot-id 7372351
  weft chat --base-url http://localhost:8099`

const chatShortDesc string = "Interactive chat against the configured vendor"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, chatFlags, chatFlagKeys)

			// Effective values after the full precedence chain.
			cmder.vendor = v.GetString("vendor.name")
			cmder.baseURL = v.GetString("vendor.base_url")
			cmder.botID = v.GetString("vendor.bot_id")
			cmder.appID = v.GetString("vendor.app_id")
			cmder.userID = v.GetString("vendor.user_id")
			cmder.render = v.GetBool("chat.render")

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, chatFlags, config.FlagVendor, &cmder.vendor)
	config.AddStringFlag(cmd, chatFlags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, chatFlags, config.FlagBotID, &cmder.botID)
	config.AddStringFlag(cmd, chatFlags, config.FlagAppID, &cmder.appID)
	config.AddStringFlag(cmd, chatFlags, config.FlagUserID, &cmder.userID)
	config.AddBoolFlag(cmd, chatFlags, config.FlagRender, &cmder.render)

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	cl, err := c.newClient()
	if err != nil {
		return err
	}

	ctx := context.Background()
	fmt.Println()
	_ = cliui.Step(os.Stdout, "Connecting to "+c.vendor, func() error {
		cl.Init(ctx)
		return nil
	})

	ddm := dotdir.NewManager()
	if err := c.resumeSession(ctx, cl, ddm); err != nil {
		return err
	}

	onboarding := cl.Onboarding()
	fmt.Printf("\n%s\n\n", cliui.ValueStyle.Render(onboarding.Prologue))
	for _, q := range onboarding.PredefinedQuestions {
		fmt.Printf("  %s\n", cliui.DimStyle.Render("· "+q))
	}
	if len(onboarding.PredefinedQuestions) > 0 {
		fmt.Println()
	}
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /new starts over, /exit or Ctrl+D quits."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}
		if input == "/new" {
			if err := c.startFresh(ctx, cl, ddm); err != nil {
				fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			}
			continue
		}

		msg, err := cl.Send(ctx, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		fmt.Print(assistantPrompt)
		fmt.Println(cliui.RenderMessage(*msg, c.render))
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// newClient assembles the credential source, transport, and vendor adapter
// from the effective configuration.
func (c *chatCommander) newClient() (*client.Client, error) {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	source, err := credentials.NewSource(mgr, c.vendor, nil)
	if err != nil {
		return nil, fmt.Errorf("loading %s token: %w", c.vendor, err)
	}

	transportOpts := []transport.Option{transport.WithLogger(c.logger)}
	if c.vendor == provider.Agent {
		transportOpts = append(transportOpts, transport.WithShouldRefresh(agent.ShouldRefresh))
	}
	httpClient := transport.New(source, transportOpts...)

	adapter, err := provider.New(c.vendor, provider.Settings{
		BaseURL: c.baseURL,
		BotID:   c.botID,
		AppID:   c.appID,
		UserID:  c.userID,
		HTTP:    httpClient,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, err
	}

	return client.New(adapter, client.WithLogger(c.logger)), nil
}

// resumeSession restores a stored conversation when one exists for the
// active vendor, otherwise persists the fresh one.
func (c *chatCommander) resumeSession(ctx context.Context, cl *client.Client, ddm *dotdir.Manager) error {
	state, err := ddm.LoadSessionState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}

	if state != nil && state.Vendor == c.vendor && state.ConversationID != "" {
		if err := cl.LoadConversation(ctx, state.ConversationID); err != nil {
			c.logger.Warn("could not resume stored conversation", "error", err)
		} else {
			fmt.Printf("  %s Resuming conversation %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(utils.Truncate(state.ConversationID, 16)),
			)
			return nil
		}
	}

	fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	return c.saveSession(cl, ddm)
}

// startFresh begins a new server-side conversation from inside the REPL.
func (c *chatCommander) startFresh(ctx context.Context, cl *client.Client, ddm *dotdir.Manager) error {
	if _, err := cl.CreateConversation(ctx, ""); err != nil {
		return err
	}

	fmt.Printf("  %s New conversation\n\n", cliui.SuccessMark)
	return c.saveSession(cl, ddm)
}

func (c *chatCommander) saveSession(cl *client.Client, ddm *dotdir.Manager) error {
	conversationID := cl.ConversationID()
	if conversationID == "" {
		// Session-less chat; nothing worth resuming later.
		return ddm.ClearSession(c.configDir)
	}

	return ddm.SaveSession(&dotdir.SessionState{
		Vendor:         c.vendor,
		ConversationID: conversationID,
	}, c.configDir)
}
