// Package client is the host-facing surface of the reconstruction pipeline:
// it owns the conversation lifecycle, the message store, and the per-send
// reduction loop over a vendor stream.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/spoolworks/weft/pkg/chat"
	"github.com/spoolworks/weft/pkg/patch"
	"github.com/spoolworks/weft/pkg/provider"
	"github.com/spoolworks/weft/pkg/reduce"
)

// State is the client lifecycle state.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// defaultPrologue is shown when the vendor's onboarding fetch fails.
const defaultPrologue = "Hi, how can I help you today?"

// Client drives one conversation against one vendor adapter.
type Client struct {
	mu sync.Mutex

	adapter provider.Adapter
	store   *chat.Store
	log     *slog.Logger

	state          State
	conversationID string
	appContext     map[string]any
	onboarding     provider.OnboardingInfo
}

// Option configures a Client.
type Option func(*Client)

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client over the given adapter. Call Init before Send.
func New(adapter provider.Adapter, opts ...Option) *Client {
	c := &Client{
		adapter: adapter,
		store:   chat.NewStore(),
		log:     slog.Default(),
		state:   Uninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Init creates the vendor conversation and fetches onboarding info. Calling
// Init on a client that is not Uninitialized is a no-op.
//
// Both vendor calls are softened: a conversation-creation failure leaves the
// conversation id empty and the session proceeds session-less; an onboarding
// failure falls back to a fixed prologue. Init itself never fails on them.
func (c *Client) Init(ctx context.Context) {
	c.mu.Lock()
	if c.state != Uninitialized {
		c.mu.Unlock()
		return
	}
	c.state = Initializing
	c.mu.Unlock()

	conversationID, err := c.adapter.GenerateConversation(ctx, "")
	if err != nil {
		c.log.Warn("conversation creation failed, proceeding session-less", "error", err)
		conversationID = ""
	}

	onboarding, err := c.adapter.GetOnboardingInfo(ctx)
	if err != nil {
		c.log.Warn("onboarding fetch failed, using default prologue", "error", err)
		onboarding = provider.OnboardingInfo{Prologue: defaultPrologue}
	}
	if onboarding.Prologue == "" {
		onboarding.Prologue = defaultPrologue
	}

	c.mu.Lock()
	c.conversationID = conversationID
	c.onboarding = onboarding
	c.state = Ready
	c.mu.Unlock()
}

// Onboarding returns the vendor's prologue and predefined questions.
func (c *Client) Onboarding() provider.OnboardingInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onboarding
}

// ConversationID returns the active conversation id; empty when session-less.
func (c *Client) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// InjectApplicationContext attaches a context map that is embedded ahead of
// every outgoing message until removed.
func (c *Client) InjectApplicationContext(appCtx map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appContext = appCtx
}

// RemoveApplicationContext detaches the application context.
func (c *Client) RemoveApplicationContext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appContext = nil
}

// Send sends the user text and reduces the vendor reply stream into one
// assistant message. It returns the assembled message once the stream ends.
//
// One reduction per conversation at a time; concurrent Sends against the
// same client are a caller error.
func (c *Client) Send(ctx context.Context, text string) (*chat.Message, error) {
	c.mu.Lock()
	if c.state != Ready {
		c.mu.Unlock()
		return nil, fmt.Errorf("client not ready (state %s)", c.state)
	}
	conversationID := c.conversationID
	appCtx := c.appContext
	c.mu.Unlock()

	c.store.Add(chat.NewTextMessage(chat.RoleUser, text))

	messageID := uuid.NewString()
	c.store.StartMessage(messageID, chat.RoleAssistant)

	stream, err := c.adapter.SendMessage(ctx, provider.SendRequest{
		Text:           text,
		Context:        appCtx,
		ConversationID: conversationID,
	})
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	defer stream.Close()

	engine := reduce.NewEngine(c.adapter.Translator(), c.store, messageID, c.log)
	if err := engine.Run(ctx, stream); err != nil {
		return nil, fmt.Errorf("reducing reply stream: %w", err)
	}

	if vendorErr := treeError(engine.Tree()); vendorErr != nil {
		return nil, vendorErr
	}

	msg, ok := c.store.Message(messageID)
	if !ok {
		return nil, fmt.Errorf("assembled message %s missing from store", messageID)
	}
	return &msg, nil
}

// CreateConversation starts a fresh server-side conversation and makes it
// the active one.
func (c *Client) CreateConversation(ctx context.Context, title string) (string, error) {
	id, err := c.adapter.GenerateConversation(ctx, title)
	if err != nil {
		return "", fmt.Errorf("creating conversation: %w", err)
	}

	c.mu.Lock()
	c.conversationID = id
	c.mu.Unlock()
	c.store.Clear()

	return id, nil
}

// LoadConversation makes a stored conversation active and replays its
// messages into the store. Vendors without message listing yield an empty
// local history but still switch the active conversation.
func (c *Client) LoadConversation(ctx context.Context, conversationID string) error {
	msgs, err := c.adapter.ConversationMessages(ctx, conversationID)
	if err != nil && !errors.Is(err, provider.ErrNotSupported) {
		return fmt.Errorf("loading conversation: %w", err)
	}

	c.mu.Lock()
	c.conversationID = conversationID
	c.mu.Unlock()

	c.store.Clear()
	for _, m := range msgs {
		c.store.Add(m)
	}

	return nil
}

// Stop asks the vendor to terminate the in-flight reply. It is an
// out-of-band call; the reduction loop stops when the transport closes.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	conversationID := c.conversationID
	c.mu.Unlock()

	if err := c.adapter.TerminateConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("stopping reply: %w", err)
	}
	return nil
}

// Messages returns a snapshot of the conversation's messages.
func (c *Client) Messages() []chat.Message {
	return c.store.Messages()
}

// treeError inspects the reduced tree's error subtree. Vendors report
// in-band failures there instead of failing the transport.
func treeError(tree patch.Tree) error {
	raw, ok := tree["error"]
	if !ok || raw == nil {
		return nil
	}

	switch v := raw.(type) {
	case string:
		return fmt.Errorf("vendor reported error: %s", v)
	case map[string]any:
		if msg, ok := v["message"].(string); ok && msg != "" {
			return fmt.Errorf("vendor reported error: %s", msg)
		}
		return fmt.Errorf("vendor reported error: %v", v)
	default:
		return fmt.Errorf("vendor reported error: %v", v)
	}
}
