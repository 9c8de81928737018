package cliui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/spoolworks/weft/pkg/chat"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
)

// RenderMessage formats a reconstructed message for terminal display.
// Markdown blocks go through glamour when render is true; structured blocks
// (web search, charts, tool calls) get compact styled summaries.
func RenderMessage(msg chat.Message, render bool) string {
	var sb strings.Builder

	for _, b := range msg.Blocks {
		switch b.Type {
		case chat.BlockMarkdown:
			if render {
				if out, err := RenderMarkdown(b.Text); err == nil {
					sb.WriteString(out)
					continue
				}
			}
			sb.WriteString(b.Text)
			sb.WriteString("\n")

		case chat.BlockText:
			sb.WriteString(b.Text)
			sb.WriteString("\n")

		case chat.BlockWebSearch:
			sb.WriteString(renderWebSearch(b))

		case chat.BlockJson2Plot:
			sb.WriteString(renderChart(b))

		case chat.BlockTool:
			sb.WriteString(renderTool(b))
		}
	}

	return sb.String()
}

func renderWebSearch(b chat.Block) string {
	var sb strings.Builder

	if b.Search == nil {
		return ""
	}

	sb.WriteString(headingStyle.Render("Web search"))
	if b.Search.Query != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf(" %q", b.Search.Query)))
	}
	sb.WriteString("\n")

	for _, r := range b.Search.Results {
		sb.WriteString(fmt.Sprintf("  • %s\n", r.Title))
		if r.URL != "" {
			sb.WriteString(dimStyle.Render("    "+r.URL) + "\n")
		}
	}

	return sb.String()
}

func renderChart(b chat.Block) string {
	if b.Chart == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(headingStyle.Render("Chart"))
	sb.WriteString(dimStyle.Render(fmt.Sprintf(" %s, %d rows", b.Chart.ChartType, len(b.Chart.Rows))))
	sb.WriteString("\n")

	dims := make([]string, 0, len(b.Chart.Dimensions))
	for _, f := range b.Chart.Dimensions {
		dims = append(dims, f.Name)
	}
	measures := make([]string, 0, len(b.Chart.Measures))
	for _, f := range b.Chart.Measures {
		measures = append(measures, f.Name)
	}
	sb.WriteString(dimStyle.Render(fmt.Sprintf("  dimensions: %s  measures: %s",
		strings.Join(dims, ", "), strings.Join(measures, ", "))))
	sb.WriteString("\n")

	return sb.String()
}

func renderTool(b chat.Block) string {
	if b.Tool == nil {
		return ""
	}

	var sb strings.Builder
	switch b.Tool.Kind {
	case chat.ToolExecuteCode:
		sb.WriteString(headingStyle.Render("Code") + "\n")
		sb.WriteString(codeStyle.Render(indent(b.Tool.Input)) + "\n")
		if b.Tool.Output != "" {
			sb.WriteString(dimStyle.Render(indent(b.Tool.Output)) + "\n")
		}

	case chat.ToolText2SQL:
		sb.WriteString(headingStyle.Render("SQL") + "\n")
		sb.WriteString(codeStyle.Render(indent(b.Tool.SQL)) + "\n")

	default:
		sb.WriteString(dimStyle.Render("tool: "+b.Tool.Kind) + "\n")
	}

	return sb.String()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
