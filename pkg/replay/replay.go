// Package replay serves a recorded vendor SSE fixture over HTTP so the chat
// pipeline can be exercised locally without vendor credentials. Frames are
// written with a per-frame delay to reproduce chunked, mid-frame delivery.
package replay

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Config configures a replay Server.
type Config struct {
	// ListenAddr is the bind address, e.g. ":8099".
	ListenAddr string

	// FixturePath is the SSE fixture file to serve. The file is read per
	// request so it can be edited between chats.
	FixturePath string

	// FrameDelay is the pause between flushed frames. Zero disables pacing.
	FrameDelay time.Duration

	Logger *slog.Logger
}

// Server replays an SSE fixture on every chat-stream request.
type Server struct {
	config Config
	server *fiber.App
	log    *slog.Logger
}

// New creates a replay Server.
func New(config Config) (*Server, error) {
	if config.FixturePath == "" {
		return nil, fmt.Errorf("replay server requires a fixture path")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})

	s := &Server{
		config: config,
		server: app,
		log:    config.Logger,
	}

	// Both vendors' streaming endpoints resolve here so either adapter can
	// point at the replay server unchanged.
	app.Post("/api/chat/stream", s.handleStream)
	app.Post("/v3/chat", s.handleStream)
	app.All("/*", s.handleDefault)

	return s, nil
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.log.Info("starting replay server",
		"listen", s.config.ListenAddr,
		"fixture", s.config.FixturePath,
	)

	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.log.Info("starting replay server",
		"listen", listener.Addr().String(),
		"fixture", s.config.FixturePath,
	)

	return s.server.Listener(listener)
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	return s.server.Shutdown()
}

// handleStream streams the fixture as text/event-stream.
func (s *Server) handleStream(c *fiber.Ctx) error {
	raw, err := os.ReadFile(s.config.FixturePath)
	if err != nil {
		s.log.Error("reading fixture", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "fixture unavailable"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// io.Pipe + SetBodyStream: pw.Write blocks until the client consumes
	// the data, so the per-frame delay actually paces the wire instead of
	// filling an internal buffer.
	pr, pw := io.Pipe()
	go s.writeFrames(string(raw), pw)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// writeFrames emits the fixture frame by frame, pausing between frames.
func (s *Server) writeFrames(fixture string, pw *io.PipeWriter) {
	defer pw.Close()

	frames := strings.Split(fixture, "\n\n")
	for i, frame := range frames {
		if strings.TrimSpace(frame) == "" {
			continue
		}

		if _, err := io.WriteString(pw, frame+"\n\n"); err != nil {
			// Client went away mid-stream.
			s.log.Debug("replay write aborted", "frame", i, "error", err)
			return
		}

		if s.config.FrameDelay > 0 {
			time.Sleep(s.config.FrameDelay)
		}
	}
}

// handleDefault answers the non-streaming vendor endpoints with minimal
// success payloads so client initialization works against the replay server.
func (s *Server) handleDefault(c *fiber.Ctx) error {
	switch c.Path() {
	case "/api/conversation":
		return c.JSON(fiber.Map{"conversation_id": "replay-conversation"})
	case "/v1/conversation/create":
		return c.JSON(fiber.Map{"code": 0, "data": fiber.Map{"id": "replay-conversation"}})
	case "/api/app/config":
		return c.JSON(fiber.Map{
			"prologue":             "Replaying a recorded conversation.",
			"predefined_questions": []string{},
		})
	case "/v1/bot/get_online_info":
		return c.JSON(fiber.Map{"code": 0, "data": fiber.Map{
			"onboarding_info": fiber.Map{"prologue": "Replaying a recorded conversation."},
		}})
	case "/api/chat/stop", "/v3/chat/cancel":
		return c.JSON(fiber.Map{"code": 0})
	default:
		return c.SendStatus(fiber.StatusNotFound)
	}
}
