// Package replaycmder provides the replay command for serving a recorded
// SSE fixture as a local vendor.
package replaycmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spoolworks/weft/pkg/config"
	"github.com/spoolworks/weft/pkg/logger"
	"github.com/spoolworks/weft/pkg/replay"
)

type replayCommander struct {
	listen  string
	fixture string

	configDir string
	debug     bool
}

// replayFlags is the flag registry for the replay command.
var replayFlags = config.FlagSet{
	config.FlagReplayListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "replay.listen",
		Description: "Address for the replay server to listen on",
	},
	config.FlagReplayFixture: {
		Name:        "fixture",
		Shorthand:   "f",
		ViperKey:    "replay.fixture",
		Description: "SSE fixture file to serve on chat-stream requests",
	},
}

var replayFlagKeys = []string{
	config.FlagReplayListen,
	config.FlagReplayFixture,
}

const replayLongDesc string = `Serve a recorded SSE fixture as a local vendor.

Every chat-stream request replays the fixture file frame by frame with a
small delay between frames, reproducing the chunked delivery of a live
vendor. Conversation bootstrap endpoints answer with canned payloads so
"weft chat --base-url http://localhost:8099" works without credentials.

The fixture is re-read on every request, so it can be edited between
chats without restarting the server.

Examples:
  weft replay --fixture testdata/answer.sse
  weft replay --fixture answer.sse --listen :9000`

const replayShortDesc string = "Serve a recorded SSE fixture as a local vendor"

func NewReplayCmd() *cobra.Command {
	cmder := &replayCommander{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: replayShortDesc,
		Long:  replayLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, replayFlags, replayFlagKeys)

			cmder.listen = v.GetString("replay.listen")
			cmder.fixture = v.GetString("replay.fixture")

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, replayFlags, config.FlagReplayListen, &cmder.listen)
	config.AddStringFlag(cmd, replayFlags, config.FlagReplayFixture, &cmder.fixture)

	return cmd
}

func (c *replayCommander) run() error {
	log := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
	)

	if c.fixture == "" {
		return fmt.Errorf("a fixture file is required (--fixture or replay.fixture)")
	}

	server, err := replay.New(replay.Config{
		ListenAddr:  c.listen,
		FixturePath: c.fixture,
		FrameDelay:  25 * time.Millisecond,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("creating replay server: %w", err)
	}
	defer server.Close()

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("replay server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		return nil
	}
}
