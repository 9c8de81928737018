// Package chat defines the message and content-block model shared by the
// reduction engine, the vendor adapters, and the host-facing client.
// A message's content is an ordered list of typed blocks so that one
// assistant reply can interleave streamed text with tool results, search
// hits, and charts.
package chat

import "time"

// Role values for Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BlockType discriminates the Block union.
type BlockType string

const (
	BlockText      BlockType = "text"
	BlockMarkdown  BlockType = "markdown"
	BlockWebSearch BlockType = "web_search"
	BlockTool      BlockType = "tool"
	BlockJson2Plot BlockType = "json2plot"
)

// Block is a single renderable unit of an assistant message. The Type
// field determines which other fields are populated.
type Block struct {
	Type BlockType `json:"type"`

	// Text content (type="text" or type="markdown")
	Text string `json:"text,omitempty"`

	// Web search result (type="web_search")
	Search *WebSearchQuery `json:"search,omitempty"`

	// Tool invocation result (type="tool")
	Tool *ToolCallData `json:"tool,omitempty"`

	// Chart (type="json2plot")
	Chart *ChartData `json:"chart,omitempty"`
}

// WebSearchQuery is the normalized shape of one web-search skill call.
type WebSearchQuery struct {
	Query   string            `json:"query"`
	Results []WebSearchResult `json:"results"`
}

// WebSearchResult is one hit of a web search.
type WebSearchResult struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Tool kinds for ToolCallData.Kind.
const (
	ToolExecuteCode = "execute_code"
	ToolText2SQL    = "text2sql"
)

// ToolCallData carries a generic tool invocation outcome. Exactly one of
// the optional result shapes is set, keyed by Kind.
type ToolCallData struct {
	// Kind names the tool family: "execute_code", "text2sql".
	Kind string `json:"kind"`

	// Code execution (kind="execute_code")
	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`

	// SQL generation (kind="text2sql")
	SQL         string   `json:"sql,omitempty"`
	Rows        []any    `json:"rows,omitempty"`
	Cites       []string `json:"cites,omitempty"`
	Title       string   `json:"title,omitempty"`
	Message     string   `json:"message,omitempty"`
	DataDesc    string   `json:"data_desc,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// ChartData is the normalized chart payload of the chart-generation skill.
type ChartData struct {
	ChartType   string  `json:"chart_type"`
	XField      string  `json:"x_field,omitempty"`
	YField      string  `json:"y_field,omitempty"`
	SeriesField string  `json:"series_field,omitempty"`
	GroupField  string  `json:"group_field,omitempty"`
	Dimensions  []Field `json:"dimensions"`
	Measures    []Field `json:"measures"`
	Rows        []any   `json:"rows"`
}

// Field is a typed column reference inferred from the chart data.
type Field struct {
	Name string `json:"name"`
	// Type is one of "string", "number", "boolean", "date".
	Type string `json:"type"`
}

// Message is one entry of a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Blocks    []Block   `json:"blocks"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTextMessage creates a single-block text message.
func NewTextMessage(role, text string) Message {
	return Message{
		Role:   role,
		Blocks: []Block{{Type: BlockText, Text: text}},
	}
}

// Text returns the concatenated text of all text and markdown blocks.
func (m *Message) Text() string {
	var out string
	for _, b := range m.Blocks {
		if b.Type == BlockText || b.Type == BlockMarkdown {
			out += b.Text
		}
	}
	return out
}
