package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const columnGap = 2

// Table lays out rows in aligned columns under a styled header. Cells may
// already be styled; widths are measured without ANSI sequences.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column titles.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// Row appends a row. Missing cells render empty and extra cells are dropped.
func (t *Table) Row(cells ...any) {
	row := make([]string, len(t.headers))
	for i := range min(len(cells), len(row)) {
		row[i] = fmt.Sprint(cells[i])
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) String() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = max(lipgloss.Width(h), 4)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	titles := make([]string, len(t.headers))
	rules := make([]string, len(t.headers))
	for i, h := range t.headers {
		titles[i] = TableHeaderStyle.Render(h)
		rules[i] = strings.Repeat("-", widths[i])
	}
	t.writeLine(&b, titles, widths)
	t.writeLine(&b, rules, widths)
	for _, row := range t.rows {
		t.writeLine(&b, row, widths)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (t *Table) writeLine(b *strings.Builder, cells []string, widths []int) {
	last := len(cells) - 1
	for i, cell := range cells {
		b.WriteString(cell)
		if i < last {
			b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+columnGap))
		}
	}
	b.WriteString("\n")
}
