// Package agent adapts the agent platform's chat API — the vendor that
// speaks the generic keypath patch protocol natively. Its translator is a
// direct decode of each frame payload into a patch; all reduction
// semantics live in the engine.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spoolworks/weft/pkg/chat"
	"github.com/spoolworks/weft/pkg/patch"
	"github.com/spoolworks/weft/pkg/provider/core"
	"github.com/spoolworks/weft/pkg/reduce"
	"github.com/spoolworks/weft/pkg/sse"
	"github.com/spoolworks/weft/pkg/transport"
)

// Adapter talks to one agent-platform application.
type Adapter struct {
	baseURL string
	appID   string
	http    *transport.Client
	log     *slog.Logger
}

// Config carries the construction parameters.
type Config struct {
	BaseURL string
	AppID   string
	HTTP    *transport.Client
	Logger  *slog.Logger
}

// ShouldRefresh classifies this vendor's auth-expiry: HTTP 401, or a body
// carrying the token_expired error code. Install it on the transport
// client serving this adapter.
func ShouldRefresh(status int, body []byte) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	return bytes.Contains(body, []byte(authErrorCode))
}

// New creates the agent-platform adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("agent adapter requires a base URL")
	}
	if cfg.AppID == "" {
		return nil, fmt.Errorf("agent adapter requires an app id")
	}
	if cfg.HTTP == nil {
		cfg.HTTP = transport.New(nil, transport.WithShouldRefresh(ShouldRefresh))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Adapter{
		baseURL: cfg.BaseURL,
		appID:   cfg.AppID,
		http:    cfg.HTTP,
		log:     cfg.Logger,
	}, nil
}

// Name implements core.Adapter.
func (a *Adapter) Name() string { return "agent" }

// GenerateConversation creates a server-side conversation.
func (a *Adapter) GenerateConversation(ctx context.Context, title string) (string, error) {
	var resp createConversationResponse
	err := a.http.DoJSON(ctx, http.MethodPost, a.baseURL+"/api/conversation",
		createConversationRequest{AppID: a.appID, Title: title}, &resp)
	if err != nil {
		return "", fmt.Errorf("creating conversation: %w", err)
	}
	return resp.ConversationID, nil
}

// GetOnboardingInfo fetches the application's configured opener.
func (a *Adapter) GetOnboardingInfo(ctx context.Context) (core.OnboardingInfo, error) {
	endpoint := a.baseURL + "/api/app/config?app_id=" + url.QueryEscape(a.appID)

	var resp appConfigResponse
	if err := a.http.DoJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return core.OnboardingInfo{}, fmt.Errorf("fetching app config: %w", err)
	}

	return core.OnboardingInfo{
		Prologue:            resp.Prologue,
		PredefinedQuestions: resp.PredefinedQuestions,
	}, nil
}

// SendMessage opens the streaming chat call.
func (a *Adapter) SendMessage(ctx context.Context, req core.SendRequest) (io.ReadCloser, error) {
	body := chatRequest{
		AppID:          a.appID,
		ConversationID: req.ConversationID,
		Query:          core.EmbedContext(req.Text, req.Context),
		Stream:         true,
	}

	stream, err := a.http.OpenStream(ctx, http.MethodPost, a.baseURL+"/api/chat/stream", body)
	if err != nil {
		return nil, fmt.Errorf("opening chat stream: %w", err)
	}
	return stream, nil
}

// TerminateConversation stops the in-flight reply.
func (a *Adapter) TerminateConversation(ctx context.Context, conversationID string) error {
	err := a.http.DoJSON(ctx, http.MethodPost, a.baseURL+"/api/chat/stop",
		stopRequest{ConversationID: conversationID}, nil)
	if err != nil {
		return fmt.Errorf("stopping chat: %w", err)
	}
	return nil
}

// ListConversations pages through stored conversations.
func (a *Adapter) ListConversations(ctx context.Context, page, size int) ([]core.ConversationSummary, error) {
	endpoint := a.baseURL + "/api/conversation/list?page=" + strconv.Itoa(page) + "&size=" + strconv.Itoa(size)

	var resp conversationListResponse
	if err := a.http.DoJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	out := make([]core.ConversationSummary, 0, len(resp.Conversations))
	for _, row := range resp.Conversations {
		out = append(out, core.ConversationSummary{
			ID:        row.ConversationID,
			Title:     row.Title,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// ConversationMessages fetches a conversation's stored messages.
func (a *Adapter) ConversationMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	endpoint := a.baseURL + "/api/conversation/" + url.PathEscape(conversationID) + "/messages"

	var resp messageListResponse
	if err := a.http.DoJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching conversation messages: %w", err)
	}

	out := make([]chat.Message, 0, len(resp.Messages))
	for _, row := range resp.Messages {
		m := chat.NewTextMessage(row.Role, row.Content)
		m.ID = row.ID
		out = append(out, m)
	}
	return out, nil
}

// DeleteConversation removes a stored conversation.
func (a *Adapter) DeleteConversation(ctx context.Context, conversationID string) error {
	endpoint := a.baseURL + "/api/conversation/" + url.PathEscape(conversationID)
	if err := a.http.DoJSON(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

// Translator implements core.Adapter.
func (a *Adapter) Translator() reduce.Translator {
	return translator{}
}

// translator decodes each frame payload as one wire patch.
type translator struct{}

func (translator) Translate(f sse.Frame) ([]patch.Patch, error) {
	var p patch.Patch
	if err := json.Unmarshal([]byte(f.Data), &p); err != nil {
		return nil, fmt.Errorf("decoding patch frame: %w", err)
	}
	return []patch.Patch{p}, nil
}
