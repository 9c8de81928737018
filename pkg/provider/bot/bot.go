// Package bot adapts the bot platform's chat API. Its stream protocol is
// flat: events are named (conversation.message.delta, ...) and each delta
// carries answer text directly, so the translator is an event-name switch
// that rewrites deltas into generic patches for the reduction engine.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/spoolworks/weft/pkg/chat"
	"github.com/spoolworks/weft/pkg/patch"
	"github.com/spoolworks/weft/pkg/provider/core"
	"github.com/spoolworks/weft/pkg/reduce"
	"github.com/spoolworks/weft/pkg/sse"
	"github.com/spoolworks/weft/pkg/transport"
)

// finalAnswerTextKey is the tree location all answer text normalizes to.
var finalAnswerTextKey = patch.Path{"message", "content", "final_answer", "answer", "text"}

// Adapter talks to one bot-platform bot.
type Adapter struct {
	baseURL string
	botID   string
	userID  string
	http    *transport.Client
	log     *slog.Logger
}

// Config carries the construction parameters.
type Config struct {
	BaseURL string
	BotID   string
	UserID  string
	HTTP    *transport.Client
	Logger  *slog.Logger
}

// New creates the bot-platform adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("bot adapter requires a base URL")
	}
	if cfg.BotID == "" {
		return nil, fmt.Errorf("bot adapter requires a bot id")
	}
	if cfg.HTTP == nil {
		cfg.HTTP = transport.New(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Adapter{
		baseURL: cfg.BaseURL,
		botID:   cfg.BotID,
		userID:  cfg.UserID,
		http:    cfg.HTTP,
		log:     cfg.Logger,
	}, nil
}

// Name implements core.Adapter.
func (a *Adapter) Name() string { return "bot" }

// GenerateConversation creates a server-side conversation.
func (a *Adapter) GenerateConversation(ctx context.Context, title string) (string, error) {
	req := createConversationRequest{BotID: a.botID}
	if title != "" {
		req.Meta = map[string]any{"title": title}
	}

	var resp envelope[conversationData]
	err := a.http.DoJSON(ctx, http.MethodPost, a.baseURL+"/v1/conversation/create", req, &resp)
	if err != nil {
		return "", fmt.Errorf("creating conversation: %w", err)
	}
	if resp.Code != 0 {
		return "", fmt.Errorf("creating conversation: vendor code %d: %s", resp.Code, resp.Msg)
	}

	return resp.Data.ID, nil
}

// GetOnboardingInfo fetches the bot's configured prologue and suggested
// questions.
func (a *Adapter) GetOnboardingInfo(ctx context.Context) (core.OnboardingInfo, error) {
	endpoint := a.baseURL + "/v1/bot/get_online_info?bot_id=" + url.QueryEscape(a.botID)

	var resp envelope[botInfoData]
	if err := a.http.DoJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return core.OnboardingInfo{}, fmt.Errorf("fetching bot info: %w", err)
	}
	if resp.Code != 0 {
		return core.OnboardingInfo{}, fmt.Errorf("fetching bot info: vendor code %d: %s", resp.Code, resp.Msg)
	}

	return core.OnboardingInfo{
		Prologue:            resp.Data.OnboardingInfo.Prologue,
		PredefinedQuestions: resp.Data.OnboardingInfo.SuggestedQuestions,
	}, nil
}

// SendMessage opens the streaming chat-completion call.
func (a *Adapter) SendMessage(ctx context.Context, req core.SendRequest) (io.ReadCloser, error) {
	endpoint := a.baseURL + "/v3/chat"
	if req.ConversationID != "" {
		endpoint += "?conversation_id=" + url.QueryEscape(req.ConversationID)
	}

	body := chatRequest{
		BotID:           a.botID,
		UserID:          a.userID,
		Stream:          true,
		AutoSaveHistory: true,
		AdditionalMessages: []chatMessage{{
			Role:        chat.RoleUser,
			Content:     core.EmbedContext(req.Text, req.Context),
			ContentType: "text",
		}},
	}

	stream, err := a.http.OpenStream(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("opening chat stream: %w", err)
	}
	return stream, nil
}

// TerminateConversation cancels the in-flight reply.
func (a *Adapter) TerminateConversation(ctx context.Context, conversationID string) error {
	err := a.http.DoJSON(ctx, http.MethodPost, a.baseURL+"/v3/chat/cancel",
		cancelRequest{ConversationID: conversationID}, nil)
	if err != nil {
		return fmt.Errorf("cancelling chat: %w", err)
	}
	return nil
}

// ListConversations is not exposed by the bot platform.
func (a *Adapter) ListConversations(context.Context, int, int) ([]core.ConversationSummary, error) {
	return nil, core.ErrNotSupported
}

// ConversationMessages is not exposed by the bot platform.
func (a *Adapter) ConversationMessages(context.Context, string) ([]chat.Message, error) {
	return nil, core.ErrNotSupported
}

// DeleteConversation is not exposed by the bot platform.
func (a *Adapter) DeleteConversation(context.Context, string) error {
	return core.ErrNotSupported
}

// Translator implements core.Adapter.
func (a *Adapter) Translator() reduce.Translator {
	return &translator{log: a.log}
}

// translator rewrites named bot events into generic patches: deltas append
// incremental answer text, completed messages upsert the full accumulated
// text, and chat completion ends the reduction.
type translator struct {
	log *slog.Logger
}

func (t *translator) Translate(f sse.Frame) ([]patch.Patch, error) {
	switch f.Type {
	case eventMessageDelta, eventMessageCompleted:
		var payload streamPayload
		if err := json.Unmarshal([]byte(f.Data), &payload); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", f.Type, err)
		}
		if payload.Type != messageTypeAnswer {
			return nil, nil
		}

		action := patch.ActionAppend
		if f.Type == eventMessageCompleted {
			action = patch.ActionUpsert
		}
		return []patch.Patch{{Key: finalAnswerTextKey, Action: action, Content: payload.Content}}, nil

	case eventChatCompleted, eventDone:
		return []patch.Patch{{Action: patch.ActionEnd}}, nil

	case eventChatCreated, eventChatInProgress:
		return nil, nil

	default:
		// Unknown event names are absorbed without effect, mirroring the
		// whitelist's silent-drop posture.
		return nil, nil
	}
}
