package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#1C64F2")
	colorGreen  = lipgloss.Color("#879A39")
	colorRed    = lipgloss.Color("#D14D41")
	colorMuted  = lipgloss.Color("#6F6E69")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	goodStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	badStyle    = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(colorBorder)
)

// table is a bordered text table
type table struct {
	Headers []string
	Rows    [][]string
	// RightAlign marks numeric columns
	RightAlign []bool
}

func renderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2)
	return box.Render(titleStyle.Render(title))
}

// renderField renders a "label  value" line for summaries
func renderField(label, value string) string {
	return fmt.Sprintf("  %s %s", labelStyle.Render(fmt.Sprintf("%-22s", label)), value)
}

func renderTable(t table) string {
	if len(t.Headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(left, mid, right string) string {
		var b strings.Builder
		b.WriteString(left)
		for i, w := range widths {
			b.WriteString(strings.Repeat("─", w+2))
			if i < len(widths)-1 {
				b.WriteString(mid)
			}
		}
		b.WriteString(right)
		return dimStyle.Render(b.String()) + "\n"
	}

	cells := func(row []string, style lipgloss.Style) string {
		var b strings.Builder
		b.WriteString(dimStyle.Render("│"))
		for i, w := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			format := " %-*s "
			if i < len(t.RightAlign) && t.RightAlign[i] {
				format = " %*s "
			}
			b.WriteString(style.Render(fmt.Sprintf(format, w, cell)))
			b.WriteString(dimStyle.Render("│"))
		}
		return b.String() + "\n"
	}

	var b strings.Builder
	b.WriteString(line("╭", "┬", "╮"))
	b.WriteString(cells(t.Headers, headerStyle))
	b.WriteString(line("├", "┼", "┤"))
	for _, row := range t.Rows {
		b.WriteString(cells(row, lipgloss.NewStyle()))
	}
	b.WriteString(line("╰", "┴", "╯"))
	return b.String()
}
