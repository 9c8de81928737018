package agent

// Wire shapes for the agent platform's HTTP API.

type createConversationRequest struct {
	AppID string `json:"app_id"`
	Title string `json:"title,omitempty"`
}

type createConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

type appConfigResponse struct {
	Prologue            string   `json:"prologue"`
	PredefinedQuestions []string `json:"predefined_questions"`
}

// chatRequest is the streaming chat call body. The reply streams back as
// SSE frames whose data payloads are generic patches
// {seq_id, key, action, content}.
type chatRequest struct {
	AppID          string `json:"app_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Query          string `json:"query"`
	Stream         bool   `json:"stream"`
}

type stopRequest struct {
	ConversationID string `json:"conversation_id"`
}

type conversationListResponse struct {
	Conversations []conversationRow `json:"conversations"`
	Total         int               `json:"total"`
}

type conversationRow struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	CreatedAt      int64  `json:"created_at"`
}

type messageListResponse struct {
	Messages []messageRow `json:"messages"`
}

type messageRow struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// authErrorCode is the body marker the agent platform uses for expired
// credentials (alongside HTTP 401).
const authErrorCode = "token_expired"
