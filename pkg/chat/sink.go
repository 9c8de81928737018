package chat

// Sink is the outbound contract the reduction engine writes blocks
// through. Each call is a fire-and-forget mutation of the externally-owned
// message list, keyed by message id. The engine never reads the list back
// except to fetch the final assembled message once the stream ends.
type Sink interface {
	// AppendMarkdownBlock emits or grows a markdown block. fullText is the
	// full accumulated text, not a delta: when the last block for the
	// message is a markdown block whose content is empty or a prefix of
	// fullText, implementations replace it in place so token-by-token
	// streaming renders as a single growing paragraph.
	AppendMarkdownBlock(messageID, fullText string)

	// AppendTextBlock emits a plain text block.
	AppendTextBlock(messageID, text string)

	AppendWebSearchBlock(messageID string, query WebSearchQuery)
	AppendExecuteCodeBlock(messageID string, result ToolCallData)
	AppendText2SqlBlock(messageID string, result ToolCallData)
	AppendJson2PlotBlock(messageID string, chart ChartData)
}
