package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/width"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// TerminalSink buffers a report and writes it as an aligned text table.
type TerminalSink struct {
	Color bool

	header Header
	rows   []RowDescriptor
}

// NewTerminalSink creates a sink; color enables ANSI styling.
func NewTerminalSink(color bool) *TerminalSink {
	return &TerminalSink{Color: color}
}

func (t *TerminalSink) Clear() {
	t.header = Header{}
	t.rows = nil
}

func (t *TerminalSink) SetHeader(h Header) { t.header = h }

func (t *TerminalSink) AppendRow(row RowDescriptor) { t.rows = append(t.rows, row) }

// ScrollIntoView is a no-op; the table is written at the end of the output.
func (t *TerminalSink) ScrollIntoView() {}

// Flush writes the buffered report to w.
func (t *TerminalSink) Flush(w io.Writer) error {
	widths := make([]int, len(Columns))
	for i, c := range Columns {
		widths[i] = DisplayWidth(c)
	}
	for _, row := range t.rows {
		if len(row.Cells) != len(Columns) {
			continue
		}
		for i, cell := range row.Cells {
			widths[i] = max(widths[i], DisplayWidth(cell.Text))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "匹配: %d  未匹配: %d\n", t.header.TotalMatches, t.header.TotalUnmatched)
	if t.header.ShowSummary {
		fmt.Fprintf(&b, "中签总数: %d\n", t.header.TotalWinCount)
	}
	b.WriteByte('\n')

	total := 0
	for i, c := range Columns {
		if i > 0 {
			b.WriteString("  ")
			total += 2
		}
		if i < len(Columns)-1 {
			c = pad(c, widths[i])
		}
		b.WriteString(c)
		total += widths[i]
	}
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", total))
	b.WriteByte('\n')

	for _, row := range t.rows {
		t.writeRow(&b, row, widths, total)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "render: flush table")
	}
	return nil
}

func (t *TerminalSink) writeRow(b *strings.Builder, row RowDescriptor, widths []int, total int) {
	if len(row.Cells) == 1 && row.Cells[0].Span > 1 {
		text := row.Cells[0].Text
		if lead := (total - DisplayWidth(text)) / 2; lead > 0 {
			b.WriteString(strings.Repeat(" ", lead))
		}
		b.WriteString(text)
		b.WriteByte('\n')
		return
	}

	rowColor := ""
	if t.Color {
		switch row.Style {
		case StyleMatched:
			rowColor = ansiGreen
		case StyleUnmatched:
			rowColor = ansiYellow
		}
	}

	for i, cell := range row.Cells {
		if i > 0 {
			b.WriteString("  ")
		}
		text := cell.Text
		if i < len(widths) && i < len(row.Cells)-1 {
			text = pad(text, widths[i])
		}
		if rowColor == "" {
			b.WriteString(text)
			continue
		}
		b.WriteString(rowColor)
		if cell.Emphasis {
			b.WriteString(ansiBold)
		}
		b.WriteString(text)
		b.WriteString(ansiReset)
	}
	b.WriteByte('\n')
}

// DisplayWidth returns the number of terminal columns s occupies. Wide and
// fullwidth East Asian runes take two columns.
func DisplayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func pad(s string, w int) string {
	if d := w - DisplayWidth(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}
