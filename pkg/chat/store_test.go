package chat_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spoolworks/weft/pkg/chat"
)

var _ = Describe("Store", func() {
	var store *chat.Store

	BeforeEach(func() {
		store = chat.NewStore()
		store.StartMessage("m1", chat.RoleAssistant)
	})

	Describe("AppendMarkdownBlock", func() {
		It("merges a growing prefix into a single block", func() {
			store.AppendMarkdownBlock("m1", "He")
			store.AppendMarkdownBlock("m1", "Hello")

			m, ok := store.Message("m1")
			Expect(ok).To(BeTrue())
			Expect(m.Blocks).To(HaveLen(1))
			Expect(m.Blocks[0].Type).To(Equal(chat.BlockMarkdown))
			Expect(m.Blocks[0].Text).To(Equal("Hello"))
		})

		It("replaces an empty markdown block in place", func() {
			store.AppendMarkdownBlock("m1", "")
			store.AppendMarkdownBlock("m1", "first tokens")

			m, _ := store.Message("m1")
			Expect(m.Blocks).To(HaveLen(1))
			Expect(m.Blocks[0].Text).To(Equal("first tokens"))
		})

		It("starts a new block after a non-markdown block", func() {
			store.AppendMarkdownBlock("m1", "searching...")
			store.AppendWebSearchBlock("m1", chat.WebSearchQuery{Query: "go"})
			store.AppendMarkdownBlock("m1", "here is what I found")

			m, _ := store.Message("m1")
			Expect(m.Blocks).To(HaveLen(3))
			Expect(m.Blocks[2].Type).To(Equal(chat.BlockMarkdown))
		})

		It("starts a new block when the text is not a continuation", func() {
			store.AppendMarkdownBlock("m1", "phase one")
			store.AppendMarkdownBlock("m1", "a different phase")

			m, _ := store.Message("m1")
			Expect(m.Blocks).To(HaveLen(2))
		})

		It("ignores unknown message ids", func() {
			store.AppendMarkdownBlock("nope", "text")

			m, _ := store.Message("m1")
			Expect(m.Blocks).To(BeEmpty())
		})
	})

	Describe("tool blocks", func() {
		It("tags execute-code results", func() {
			store.AppendExecuteCodeBlock("m1", chat.ToolCallData{Input: "print(1)", Output: "1"})

			m, _ := store.Message("m1")
			Expect(m.Blocks[0].Tool.Kind).To(Equal("execute_code"))
		})

		It("tags text2sql results", func() {
			store.AppendText2SqlBlock("m1", chat.ToolCallData{Input: "top customers", SQL: "SELECT 1"})

			m, _ := store.Message("m1")
			Expect(m.Blocks[0].Tool.Kind).To(Equal("text2sql"))
		})
	})

	Describe("StartMessage", func() {
		It("is a no-op for an existing id", func() {
			store.AppendMarkdownBlock("m1", "keep")
			store.StartMessage("m1", chat.RoleAssistant)

			m, _ := store.Message("m1")
			Expect(m.Blocks).To(HaveLen(1))
		})
	})

	Describe("Messages", func() {
		It("returns messages in insertion order", func() {
			store.Add(chat.NewTextMessage(chat.RoleUser, "hi"))

			msgs := store.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].ID).To(Equal("m1"))
			Expect(msgs[1].Role).To(Equal(chat.RoleUser))
		})
	})
})
