package chat

import (
	"strings"
	"sync"
	"time"
)

// Store is an in-memory message list implementing Sink. It stands in for
// the host application's UI state store: the reduction engine appends
// blocks into it while a message streams, and the client fetches the final
// assembled message when the stream ends.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	byID     map[string]int
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// StartMessage registers an empty message with the given id and role.
// Starting an id that already exists is a no-op.
func (s *Store) StartMessage(id, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; ok {
		return
	}
	s.byID[id] = len(s.messages)
	s.messages = append(s.messages, Message{
		ID:        id,
		Role:      role,
		CreatedAt: time.Now(),
	})
}

// Add appends a complete message (e.g. the user's own text, or history
// loaded from the vendor).
func (s *Store) Add(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID != "" {
		if i, ok := s.byID[m.ID]; ok {
			s.messages[i] = m
			return
		}
		s.byID[m.ID] = len(s.messages)
	}
	s.messages = append(s.messages, m)
}

// Message returns a copy of the message with the given id.
func (s *Store) Message(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return Message{}, false
	}
	m := s.messages[i]
	m.Blocks = append([]Block(nil), m.Blocks...)
	return m, true
}

// Messages returns a copy of the full message list in insertion order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	for i := range out {
		out[i].Blocks = append([]Block(nil), out[i].Blocks...)
	}
	return out
}

// Clear drops all messages, e.g. when switching conversations.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.byID = make(map[string]int)
}

// AppendMarkdownBlock implements the streaming merge rule: when the last
// block is a markdown block whose content is empty or a string-prefix of
// fullText, it is replaced in place with the longer text. Otherwise (a
// genuinely new phase, e.g. after a tool call) a new block is appended.
func (s *Store) AppendMarkdownBlock(messageID, fullText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocks := s.blocksOf(messageID)
	if blocks == nil {
		return
	}

	if n := len(*blocks); n > 0 {
		last := &(*blocks)[n-1]
		if last.Type == BlockMarkdown && (last.Text == "" || strings.HasPrefix(fullText, last.Text)) {
			last.Text = fullText
			return
		}
	}
	*blocks = append(*blocks, Block{Type: BlockMarkdown, Text: fullText})
}

// AppendTextBlock appends a plain text block.
func (s *Store) AppendTextBlock(messageID, text string) {
	s.appendBlock(messageID, Block{Type: BlockText, Text: text})
}

// AppendWebSearchBlock appends a web-search result block.
func (s *Store) AppendWebSearchBlock(messageID string, query WebSearchQuery) {
	s.appendBlock(messageID, Block{Type: BlockWebSearch, Search: &query})
}

// AppendExecuteCodeBlock appends a code-execution tool block.
func (s *Store) AppendExecuteCodeBlock(messageID string, result ToolCallData) {
	result.Kind = ToolExecuteCode
	s.appendBlock(messageID, Block{Type: BlockTool, Tool: &result})
}

// AppendText2SqlBlock appends a SQL-generation tool block.
func (s *Store) AppendText2SqlBlock(messageID string, result ToolCallData) {
	result.Kind = ToolText2SQL
	s.appendBlock(messageID, Block{Type: BlockTool, Tool: &result})
}

// AppendJson2PlotBlock appends a chart block.
func (s *Store) AppendJson2PlotBlock(messageID string, chart ChartData) {
	s.appendBlock(messageID, Block{Type: BlockJson2Plot, Chart: &chart})
}

func (s *Store) appendBlock(messageID string, b Block) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocks := s.blocksOf(messageID)
	if blocks == nil {
		return
	}
	*blocks = append(*blocks, b)
}

// blocksOf returns the block slice for messageID. Callers hold s.mu.
// Unknown ids are dropped silently — a projection against a message the
// host never started must not panic mid-stream.
func (s *Store) blocksOf(messageID string) *[]Block {
	i, ok := s.byID[messageID]
	if !ok {
		return nil
	}
	return &s.messages[i].Blocks
}
