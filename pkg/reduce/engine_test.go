package reduce_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spoolworks/weft/pkg/chat"
	"github.com/spoolworks/weft/pkg/patch"
	"github.com/spoolworks/weft/pkg/reduce"
	"github.com/spoolworks/weft/pkg/sse"
)

// patchTranslator decodes every frame payload as a wire patch, the way the
// agent platform speaks.
type patchTranslator struct{}

func (patchTranslator) Translate(f sse.Frame) ([]patch.Patch, error) {
	var p patch.Patch
	if err := json.Unmarshal([]byte(f.Data), &p); err != nil {
		return nil, err
	}
	return []patch.Patch{p}, nil
}

// recordingSink counts every block call in arrival order.
type recordingSink struct {
	calls    []string
	markdown []string
	searches []chat.WebSearchQuery
	tools    []chat.ToolCallData
	charts   []chat.ChartData
	texts    []string
}

func (r *recordingSink) AppendMarkdownBlock(_, fullText string) {
	r.calls = append(r.calls, "markdown")
	r.markdown = append(r.markdown, fullText)
}

func (r *recordingSink) AppendTextBlock(_, text string) {
	r.calls = append(r.calls, "text")
	r.texts = append(r.texts, text)
}

func (r *recordingSink) AppendWebSearchBlock(_ string, q chat.WebSearchQuery) {
	r.calls = append(r.calls, "web_search")
	r.searches = append(r.searches, q)
}

func (r *recordingSink) AppendExecuteCodeBlock(_ string, t chat.ToolCallData) {
	r.calls = append(r.calls, "execute_code")
	r.tools = append(r.tools, t)
}

func (r *recordingSink) AppendText2SqlBlock(_ string, t chat.ToolCallData) {
	r.calls = append(r.calls, "text2sql")
	r.tools = append(r.tools, t)
}

func (r *recordingSink) AppendJson2PlotBlock(_ string, c chat.ChartData) {
	r.calls = append(r.calls, "json2plot")
	r.charts = append(r.charts, c)
}

// frame wraps a wire patch into an SSE frame.
func frame(keyJSON, action string, contentJSON string) sse.Frame {
	data := fmt.Sprintf(`{"key":%s,"action":%q,"content":%s}`, keyJSON, action, contentJSON)
	return sse.Frame{Type: "message", Data: data}
}

const progressKey = `["message","content","middle_answer","progress",0]`

var _ = Describe("Engine", func() {
	var (
		sink   *recordingSink
		engine *reduce.Engine
	)

	BeforeEach(func() {
		sink = &recordingSink{}
		engine = reduce.NewEngine(patchTranslator{}, sink, "msg-1", nil)
	})

	Describe("whitelist silence", func() {
		It("mutates the tree but projects nothing for unknown paths", func() {
			engine.Reduce(frame(`["message","content","some_future_field"]`, "upsert", `"v"`))

			_, ok := patch.Get(engine.Tree(), patch.Path{"message", "content", "some_future_field"})
			Expect(ok).To(BeTrue())
			Expect(sink.calls).To(BeEmpty())
		})

		It("projects nothing for shapes the progress patterns do not anticipate", func() {
			engine.Reduce(frame(`["message","content","middle_answer","progress",0,"nested",1]`, "append", `"x"`))

			Expect(sink.calls).To(BeEmpty())
		})
	})

	Describe("final answer text", func() {
		It("streams deltas into one growing markdown projection", func() {
			key := `["message","content","final_answer","answer","text"]`
			engine.Reduce(frame(key, "append", `"He"`))
			engine.Reduce(frame(key, "append", `"llo"`))

			Expect(sink.markdown).To(Equal([]string{"He", "Hello"}))
		})

		It("projects the replaced text on upsert", func() {
			key := `["message","content","final_answer","answer","text"]`
			engine.Reduce(frame(key, "append", `"Hi"`))
			engine.Reduce(frame(key, "upsert", `"Hi there"`))

			Expect(sink.markdown).To(Equal([]string{"Hi", "Hi there"}))
		})
	})

	Describe("llm progress entries", func() {
		It("projects the entry answer and subsequent answer streams", func() {
			engine.Reduce(frame(progressKey, "append", `{"stage":"llm","answer":"42"}`))
			engine.Reduce(frame(`["message","content","middle_answer","progress",0,"answer"]`, "append", `"42"`))

			Expect(sink.markdown).To(Equal([]string{"42", "42"}))
		})

		It("does not project answer streams into skill entries", func() {
			engine.Reduce(frame(progressKey, "append", `{"stage":"skill","answer":"","skill_info":{"name":"unknown_tool"}}`))
			engine.Reduce(frame(`["message","content","middle_answer","progress",0,"answer"]`, "append", `"partial"`))

			Expect(sink.calls).To(Equal([]string{"text"}))
		})
	})

	Describe("skill progress entries", func() {
		It("projects a web search block from the two-element tool_calls shape", func() {
			content := `{"stage":"skill","skill_info":{"name":"web_search","tool_calls":[
				{"query":"go generics"},
				[{"title":"Go Blog","url":"https://go.dev/blog","snippet":"about generics"}]
			]}}`
			engine.Reduce(frame(progressKey, "append", content))

			Expect(sink.searches).To(HaveLen(1))
			Expect(sink.searches[0].Query).To(Equal("go generics"))
			Expect(sink.searches[0].Results).To(HaveLen(1))
			Expect(sink.searches[0].Results[0].URL).To(Equal("https://go.dev/blog"))
		})

		It("skips a web search with a malformed tool_calls shape", func() {
			content := `{"stage":"skill","skill_info":{"name":"web_search","tool_calls":[{"query":"only one element"}]}}`
			engine.Reduce(frame(progressKey, "append", content))

			Expect(sink.calls).To(BeEmpty())
		})

		It("projects a chart when dimensions and measures can be inferred", func() {
			content := `{"stage":"skill","skill_info":{"name":"json2plot","full_result":{
				"chart_config":{"chart_type":"bar","xField":"region","yField":"sales"},
				"data":[{"region":"EMEA","sales":1200.5,"day":"2026-08-01"},{"region":"APAC","sales":990}]
			}}}`
			engine.Reduce(frame(progressKey, "append", content))

			Expect(sink.charts).To(HaveLen(1))
			c := sink.charts[0]
			Expect(c.ChartType).To(Equal("bar"))
			Expect(c.Measures).To(ConsistOf(chat.Field{Name: "sales", Type: "number"}))
			Expect(c.Dimensions).To(ConsistOf(
				chat.Field{Name: "region", Type: "string"},
				chat.Field{Name: "day", Type: "date"},
			))
		})

		It("skips a chart with no measure", func() {
			content := `{"stage":"skill","skill_info":{"name":"json2plot","result":{
				"chart_config":{"chart_type":"bar"},
				"data":[{"region":"EMEA","country":"DE"}]
			}}}`
			engine.Reduce(frame(progressKey, "append", content))

			Expect(sink.calls).To(BeEmpty())
		})

		It("projects code execution results and requires input", func() {
			engine.Reduce(frame(progressKey, "append",
				`{"stage":"skill","skill_info":{"name":"execute_code","result":{"input":"print(6*7)","output":"42\n"}}}`))
			engine.Reduce(frame(progressKey, "append",
				`{"stage":"skill","skill_info":{"name":"execute_code","result":{"input":"","output":"ignored"}}}`))

			Expect(sink.calls).To(Equal([]string{"execute_code"}))
			Expect(sink.tools[0].Input).To(Equal("print(6*7)"))
			Expect(sink.tools[0].Output).To(Equal("42\n"))
		})

		It("prefers the full result shape for text2sql", func() {
			content := `{"stage":"skill","skill_info":{"name":"text2sql",
				"result":{"input":"partial","sql":"SELECT 0"},
				"full_result":{"input":"top customers","sql":"SELECT * FROM customers","cites":["orders"],"title":"Top"}
			}}`
			engine.Reduce(frame(progressKey, "append", content))

			Expect(sink.tools).To(HaveLen(1))
			Expect(sink.tools[0].Input).To(Equal("top customers"))
			Expect(sink.tools[0].SQL).To(Equal("SELECT * FROM customers"))
			Expect(sink.tools[0].Cites).To(Equal([]string{"orders"}))
		})

		It("falls back to a text block naming unknown tools", func() {
			engine.Reduce(frame(progressKey, "append",
				`{"stage":"skill","skill_info":{"name":"calendar_lookup"}}`))

			Expect(sink.texts).To(Equal([]string{"tool: calendar_lookup"}))
		})
	})

	Describe("end of stream", func() {
		It("terminates reduction without emitting a block", func() {
			engine.Reduce(frame(`[]`, "end", `null`))
			Expect(engine.Done()).To(BeTrue())
			Expect(sink.calls).To(BeEmpty())

			// Frames after end are ignored.
			engine.Reduce(frame(`["message","content","final_answer","answer","text"]`, "append", `"late"`))
			Expect(sink.calls).To(BeEmpty())
		})
	})

	Describe("frame-level failure", func() {
		It("drops undecodable frames and keeps reducing", func() {
			engine.Reduce(sse.Frame{Data: "{not json"})
			engine.Reduce(frame(`["message","content","final_answer","answer","text"]`, "append", `"ok"`))

			Expect(sink.markdown).To(Equal([]string{"ok"}))
		})
	})

	Describe("Run", func() {
		It("folds a full SSE stream and stops at the end patch", func() {
			var b strings.Builder
			write := func(payload string) {
				fmt.Fprintf(&b, "data: %s\n", payload)
			}
			write(`{"seq_id":1,"key":["message","content","middle_answer","progress",0],"action":"append","content":{"stage":"llm","answer":"42"}}`)
			write(`{"seq_id":2,"key":["message","content","middle_answer","progress",0,"answer"],"action":"append","content":"42"}`)
			write(`{"seq_id":3,"key":[],"action":"end","content":null}`)
			write(`{"seq_id":4,"key":["message","content","final_answer","answer","text"],"action":"append","content":"after end"}`)

			store := chat.NewStore()
			store.StartMessage("msg-1", chat.RoleAssistant)
			eng := reduce.NewEngine(patchTranslator{}, store, "msg-1", nil)

			Expect(eng.Run(context.Background(), strings.NewReader(b.String()))).To(Succeed())
			Expect(eng.Done()).To(BeTrue())

			m, _ := store.Message("msg-1")
			Expect(m.Blocks).To(HaveLen(1))
			Expect(m.Blocks[0].Type).To(Equal(chat.BlockMarkdown))
			Expect(m.Blocks[0].Text).To(Equal("42"))
		})
	})
})
