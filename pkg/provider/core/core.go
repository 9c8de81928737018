// Package core holds the vendor adapter capability interface and shared
// helpers. It exists so the concrete adapter subpackages and the parent
// provider package (which constructs them) can share these declarations
// without an import cycle; the provider package re-exports everything
// here via type aliases.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/spoolworks/weft/pkg/chat"
	"github.com/spoolworks/weft/pkg/reduce"
)

// ErrNotSupported is returned for session-management operations a vendor
// does not expose (the bot platform omits history management).
var ErrNotSupported = errors.New("operation not supported by this vendor")

// OnboardingInfo is the vendor-configured conversation opener.
type OnboardingInfo struct {
	Prologue            string   `json:"prologue"`
	PredefinedQuestions []string `json:"predefined_questions"`
}

// ConversationSummary is one row of the vendor's conversation history list.
type ConversationSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// SendRequest carries one user turn to the vendor.
type SendRequest struct {
	// Text is the user's literal input.
	Text string

	// Context is the host application's injected context. When present it
	// is embedded as a human-readable JSON block ahead of Text.
	Context map[string]any

	// ConversationID may be empty; vendors that tolerate session-less
	// chat accept that.
	ConversationID string
}

// Adapter is the five-method-plus-sessions capability surface both
// vendors implement against different wire shapes.
type Adapter interface {
	// Name returns the canonical vendor name ("bot", "agent").
	Name() string

	// GenerateConversation creates a server-side session and returns its id.
	GenerateConversation(ctx context.Context, title string) (string, error)

	// GetOnboardingInfo fetches the vendor-configured prologue and
	// predefined questions.
	GetOnboardingInfo(ctx context.Context) (OnboardingInfo, error)

	// SendMessage issues the chat-completion call and returns the raw SSE
	// stream. The caller owns the ReadCloser.
	SendMessage(ctx context.Context, req SendRequest) (io.ReadCloser, error)

	// TerminateConversation asks the vendor to stop the in-flight reply.
	// This is an out-of-band call, not in-process cancellation.
	TerminateConversation(ctx context.Context, conversationID string) error

	// ListConversations pages through stored conversations.
	ListConversations(ctx context.Context, page, size int) ([]ConversationSummary, error)

	// ConversationMessages fetches the stored messages of a conversation.
	ConversationMessages(ctx context.Context, conversationID string) ([]chat.Message, error)

	// DeleteConversation removes a stored conversation.
	DeleteConversation(ctx context.Context, conversationID string) error

	// Translator normalizes this vendor's frames into generic patches for
	// the reduction engine.
	Translator() reduce.Translator
}

// EmbedContext prepends the application context as an indented JSON block
// ahead of the user's literal text. Marshalling failures fall back to the
// bare text — context is advisory, never a reason to drop the message.
func EmbedContext(text string, appCtx map[string]any) string {
	if len(appCtx) == 0 {
		return text
	}

	encoded, err := json.MarshalIndent(appCtx, "", "  ")
	if err != nil {
		return text
	}

	return "Application context:\n```json\n" + string(encoded) + "\n```\n\n" + text
}
