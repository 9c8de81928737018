package reduce

import (
	"log/slog"
	"time"

	"github.com/spoolworks/weft/pkg/chat"
	"github.com/spoolworks/weft/pkg/patch"
)

// Progress entry stages.
const (
	stageSkill = "skill"
	stageLLM   = "llm"
)

// Recognized skill names. Anything else falls back to a plain text block
// naming the tool.
const (
	skillWebSearch   = "web_search"
	skillJson2Plot   = "json2plot"
	skillExecuteCode = "execute_code"
	skillText2SQL    = "text2sql"
)

// Projectors turn whitelisted tree mutations into content blocks. Every
// extraction treats an absent or mistyped field as "skip this patch's UI
// effect" — the tree was already updated by the interpreter regardless.
type Projectors struct {
	sink chat.Sink
	log  *slog.Logger
}

// NewProjectors binds the block sink the projections write through.
func NewProjectors(sink chat.Sink, log *slog.Logger) *Projectors {
	if log == nil {
		log = slog.Default()
	}
	return &Projectors{sink: sink, log: log}
}

// finalAnswerText streams the terminal natural-language answer. The full
// accumulated text is read back from the freshly patched tree so that
// incremental deltas and full-text upserts both render through the same
// merge rule.
func (p *Projectors) finalAnswerText(tree patch.Tree, pt patch.Patch, messageID string) {
	text, ok := patch.GetString(tree, pt.Key)
	if !ok {
		text, ok = pt.Content.(string)
		if !ok {
			return
		}
	}
	p.sink.AppendMarkdownBlock(messageID, text)
}

// finalAnswerOther handles the single non-text terminal result, e.g. a
// tool invocation summary shaped like a skill progress entry.
func (p *Projectors) finalAnswerOther(_ patch.Tree, pt patch.Patch, messageID string) {
	entry, ok := pt.Content.(map[string]any)
	if !ok {
		return
	}
	p.projectSkill(entry, messageID)
}

// progressEntry handles one execution step landing in the progress array.
func (p *Projectors) progressEntry(_ patch.Tree, pt patch.Patch, messageID string) {
	entry, ok := pt.Content.(map[string]any)
	if !ok {
		return
	}

	switch stage, _ := entry["stage"].(string); stage {
	case stageLLM:
		answer, ok := entry["answer"].(string)
		if !ok {
			return
		}
		p.sink.AppendMarkdownBlock(messageID, answer)

	case stageSkill:
		p.projectSkill(entry, messageID)
	}
}

// progressAnswer handles text streaming into an existing progress entry.
// Only llm-stage entries project; the content carries the accumulated
// answer text for the merge rule.
func (p *Projectors) progressAnswer(tree patch.Tree, pt patch.Patch, messageID string) {
	if len(pt.Key) < 2 {
		return
	}

	entry, ok := patch.GetMap(tree, pt.Key[:len(pt.Key)-1])
	if !ok {
		return
	}
	if stage, _ := entry["stage"].(string); stage != stageLLM {
		return
	}

	text, ok := pt.Content.(string)
	if !ok {
		return
	}
	p.sink.AppendMarkdownBlock(messageID, text)
}

// projectSkill dispatches a skill-stage entry by skill_info.name.
func (p *Projectors) projectSkill(entry map[string]any, messageID string) {
	info, ok := entry["skill_info"].(map[string]any)
	if !ok {
		return
	}
	name, _ := info["name"].(string)

	switch name {
	case skillWebSearch:
		p.projectWebSearch(info, messageID)
	case skillJson2Plot:
		p.projectChart(info, messageID)
	case skillExecuteCode:
		p.projectExecuteCode(info, messageID)
	case skillText2SQL:
		p.projectText2SQL(info, messageID)
	case "":
		// No name, nothing to show.
	default:
		p.sink.AppendTextBlock(messageID, "tool: "+name)
	}
}

// projectWebSearch extracts the fixed two-element tool_calls shape:
// element 0 carries the search intent/query, element 1 the result items.
func (p *Projectors) projectWebSearch(info map[string]any, messageID string) {
	calls, ok := info["tool_calls"].([]any)
	if !ok || len(calls) < 2 {
		return
	}

	query := chat.WebSearchQuery{}
	if head, ok := calls[0].(map[string]any); ok {
		if q, ok := head["query"].(string); ok {
			query.Query = q
		} else if q, ok := head["intent"].(string); ok {
			query.Query = q
		}
	}

	items, ok := calls[1].([]any)
	if !ok {
		return
	}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		r := chat.WebSearchResult{}
		r.Title, _ = m["title"].(string)
		r.URL, _ = m["url"].(string)
		r.Snippet, _ = m["snippet"].(string)
		query.Results = append(query.Results, r)
	}

	p.sink.AppendWebSearchBlock(messageID, query)
}

// projectChart extracts the chart_config plus row data, inferring
// dimension/measure typing from the first row. The block is emitted only
// when at least one dimension and one measure were inferred.
func (p *Projectors) projectChart(info map[string]any, messageID string) {
	res := skillResult(info)
	if res == nil {
		return
	}

	cc, ok := res["chart_config"].(map[string]any)
	if !ok {
		return
	}

	rows, ok := res["data"].([]any)
	if !ok || len(rows) == 0 {
		return
	}
	first, ok := rows[0].(map[string]any)
	if !ok {
		return
	}

	chartData := chat.ChartData{Rows: rows}
	chartData.ChartType, _ = cc["chart_type"].(string)
	chartData.XField, _ = cc["xField"].(string)
	chartData.YField, _ = cc["yField"].(string)
	chartData.SeriesField, _ = cc["seriesField"].(string)
	chartData.GroupField, _ = cc["groupField"].(string)

	for field, value := range first {
		switch t := inferFieldType(value); t {
		case "number":
			chartData.Measures = append(chartData.Measures, chat.Field{Name: field, Type: t})
		default:
			chartData.Dimensions = append(chartData.Dimensions, chat.Field{Name: field, Type: t})
		}
	}

	if len(chartData.Dimensions) == 0 || len(chartData.Measures) == 0 {
		p.log.Debug("chart skipped: no usable dimension/measure split",
			"dimensions", len(chartData.Dimensions),
			"measures", len(chartData.Measures),
		)
		return
	}

	p.sink.AppendJson2PlotBlock(messageID, chartData)
}

// projectExecuteCode extracts {input: source, output: stdout}. A call with
// no input is skipped.
func (p *Projectors) projectExecuteCode(info map[string]any, messageID string) {
	res := skillResult(info)
	if res == nil {
		return
	}

	input, _ := res["input"].(string)
	if input == "" {
		return
	}
	output, _ := res["output"].(string)

	p.sink.AppendExecuteCodeBlock(messageID, chat.ToolCallData{
		Input:  input,
		Output: output,
	})
}

// projectText2SQL extracts the SQL-generation result, preferring the full
// result shape over the partial one. A call with no input query is skipped.
func (p *Projectors) projectText2SQL(info map[string]any, messageID string) {
	res := skillResult(info)
	if res == nil {
		return
	}

	input, _ := res["input"].(string)
	if input == "" {
		return
	}

	result := chat.ToolCallData{Input: input}
	result.SQL, _ = res["sql"].(string)
	result.Title, _ = res["title"].(string)
	result.Message, _ = res["message"].(string)
	result.DataDesc, _ = res["dataDesc"].(string)
	result.Explanation, _ = res["explanation"].(string)
	result.Rows, _ = res["data"].([]any)
	if cites, ok := res["cites"].([]any); ok {
		for _, c := range cites {
			if s, ok := c.(string); ok {
				result.Cites = append(result.Cites, s)
			}
		}
	}

	p.sink.AppendText2SqlBlock(messageID, result)
}

// skillResult picks the skill payload, preferring full_result over result.
// Either may itself nest one more full_result/result level.
func skillResult(info map[string]any) map[string]any {
	for _, key := range []string{"full_result", "result"} {
		res, ok := info[key].(map[string]any)
		if !ok {
			continue
		}
		if inner, ok := res["full_result"].(map[string]any); ok {
			return inner
		}
		if inner, ok := res["result"].(map[string]any); ok {
			return inner
		}
		return res
	}
	return nil
}

// dateLayouts are tried in order when classifying string fields.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// inferFieldType classifies one sampled field value: boolean, number, date
// (a string that parses as a date), or string.
func inferFieldType(v any) string {
	switch s := v.(type) {
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return "date"
			}
		}
		return "string"
	default:
		return "string"
	}
}
