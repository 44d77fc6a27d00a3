package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"brickstore/internal/genie"
)

// SimpleTable is a simple table component for rendering static data.
type SimpleTable struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// NewSimpleTable creates a new SimpleTable with the given title and headers.
func NewSimpleTable(title string, headers []string) *SimpleTable {
	return &SimpleTable{
		Title:   title,
		Headers: headers,
		Rows:    make([][]string, 0),
	}
}

// AddRow adds a row to the table.
func (t *SimpleTable) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table using the provided styles.
func (t *SimpleTable) View(styles Styles) string {
	if len(t.Rows) == 0 {
		return ""
	}

	var sb strings.Builder

	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}

	colWidths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) {
				if w := lipgloss.Width(cell); w > colWidths[i] {
					colWidths[i] = w
				}
			}
		}
	}
	// Account for cell padding
	for i := range colWidths {
		colWidths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	rowStyle := styles.Body.Padding(0, 1)
	sepStyle := styles.Muted

	for i, h := range t.Headers {
		sb.WriteString(headerStyle.Width(colWidths[i]).Render(h))
		if i < len(t.Headers)-1 {
			sb.WriteString(sepStyle.Render("|"))
		}
	}
	sb.WriteString("\n")

	totalWidth := len(t.Headers) - 1
	for _, w := range colWidths {
		totalWidth += w
	}
	sb.WriteString(sepStyle.Render(strings.Repeat("-", totalWidth)) + "\n")

	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) {
				sb.WriteString(rowStyle.Width(colWidths[i]).Render(cell))
				if i < len(row)-1 {
					sb.WriteString(sepStyle.Render("|"))
				}
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatCell renders a result-set value for display. Whole floats are shown
// without a decimal point since JSON numbers always decode as float64.
func FormatCell(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%g", n)
	case string:
		return n
	default:
		return fmt.Sprintf("%v", n)
	}
}

// RenderResultPage renders the current page of a tabular assistant reply,
// with a footer naming the visible window and page size.
func RenderResultPage(styles Styles, msg genie.Message, pager *genie.Pager) string {
	cols := msg.Columns()
	if len(cols) == 0 {
		return ""
	}

	table := NewSimpleTable("", cols)
	lo, hi := pager.Window()
	for _, row := range msg.Table[lo:hi] {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = FormatCell(row[col])
		}
		table.AddRow(cells...)
	}

	var sb strings.Builder
	sb.WriteString(table.View(styles))
	sb.WriteString(styles.PageNote.Render(fmt.Sprintf(
		"rows %d-%d of %d · page %d/%d · %d per page",
		lo+1, hi, len(msg.Table), pager.Page()+1, pager.PageCount(), pager.PageSize())))
	sb.WriteString("\n")
	return sb.String()
}
