package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// table renders static rows as aligned columns
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func newTable(title string, headers ...string) *table {
	return &table{title: title, headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// render returns the table followed by a newline, or "" when there are no rows
func (t *table) render() string {
	if len(t.rows) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	// Width includes the horizontal padding
	total := len(widths) - 1
	for i := range widths {
		widths[i] += 2
		total += widths[i]
	}

	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(titleStyle.Render(t.title))
		sb.WriteString("\n")
	}
	t.writeLine(&sb, headerStyle, t.headers, widths)
	sb.WriteString(mutedStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")
	for _, row := range t.rows {
		t.writeLine(&sb, cellStyle, row, widths)
	}
	return sb.String()
}

func (t *table) writeLine(sb *strings.Builder, style lipgloss.Style, cells []string, widths []int) {
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		sb.WriteString(style.Width(widths[i]).Render(cell))
		if i < len(widths)-1 {
			sb.WriteString(mutedStyle.Render("|"))
		}
	}
	sb.WriteString("\n")
}
