package bot

// Wire shapes for the bot platform's HTTP API. Responses wrap their
// payload in a data envelope with a numeric code; code 0 is success.

type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data T      `json:"data"`
}

type createConversationRequest struct {
	BotID string          `json:"bot_id"`
	Meta  map[string]any `json:"meta_data,omitempty"`
}

type conversationData struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}

type botInfoData struct {
	BotID          string         `json:"bot_id"`
	OnboardingInfo onboardingInfo `json:"onboarding_info"`
}

type onboardingInfo struct {
	Prologue           string   `json:"prologue"`
	SuggestedQuestions []string `json:"suggested_questions"`
}

// chatRequest is the streaming chat-completion call body.
type chatRequest struct {
	BotID              string        `json:"bot_id"`
	UserID             string        `json:"user_id"`
	Stream             bool          `json:"stream"`
	AutoSaveHistory    bool          `json:"auto_save_history"`
	AdditionalMessages []chatMessage `json:"additional_messages"`
}

type chatMessage struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

type cancelRequest struct {
	ConversationID string `json:"conversation_id"`
}

// streamPayload is the data body of every named stream event.
type streamPayload struct {
	Content        string `json:"content"`
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

// Stream event names.
const (
	eventMessageDelta     = "conversation.message.delta"
	eventMessageCompleted = "conversation.message.completed"
	eventChatCreated      = "conversation.chat.created"
	eventChatInProgress   = "conversation.chat.in_progress"
	eventChatCompleted    = "conversation.chat.completed"
	eventDone             = "done"
)

// messageTypeAnswer marks payloads carrying assistant answer text; other
// types (follow-ups, tool traces) do not reach the text path.
const messageTypeAnswer = "answer"
