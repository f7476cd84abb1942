// Package render projects a reconciliation result onto a presentation sink.
//
// The renderer owns no state. Every call to Render clears the sink and
// redraws it from the result, so rendering the same result twice leaves
// the sink in the same state as rendering it once.
package render

import (
	"strconv"

	"github.com/sells-group/recon-cli/internal/model"
)

// Columns are the table headings, in display order.
var Columns = []string{"姓名", "账号", "投注数", "中签数", "状态"}

// Placeholder is shown in place of rows when there is nothing to show.
const Placeholder = "未找到匹配项"

// Missing marks a cell with no value.
const Missing = "-"

// Style tags a row for presentation.
type Style int

const (
	StyleMatched Style = iota
	StyleUnmatched
	StylePlaceholder
)

// Class returns the CSS class used by the web console.
func (s Style) Class() string {
	switch s {
	case StyleMatched:
		return "result-highlight"
	case StyleUnmatched:
		return "table-warning"
	default:
		return "text-center"
	}
}

// EmphasisClass marks a non-zero win count.
const EmphasisClass = "text-success fw-bold"

// Cell is one table cell. Span is the number of columns the cell covers;
// zero means one.
type Cell struct {
	Text     string
	Emphasis bool
	Span     int
}

// RowDescriptor is one table row ready for a sink.
type RowDescriptor struct {
	Style Style
	Cells []Cell
}

// Header carries the counters shown above the table.
type Header struct {
	TotalMatches   int
	TotalUnmatched int
	TotalWinCount  int
	ShowSummary    bool
	ShowExport     bool
}

// Sink is a presentation target.
type Sink interface {
	Clear()
	SetHeader(Header)
	AppendRow(RowDescriptor)
	ScrollIntoView()
}

// Render clears sink and draws r into it. A nil or empty result draws the
// placeholder row with the summary and export hidden.
func Render(sink Sink, r *model.Result) {
	sink.Clear()

	if r.IsEmpty() {
		sink.SetHeader(Header{})
		sink.AppendRow(PlaceholderRow())
		return
	}

	sink.SetHeader(HeaderFor(r))
	for _, row := range r.Rows {
		sink.AppendRow(Describe(row))
	}
	sink.ScrollIntoView()
}

// HeaderFor derives the header of a non-empty result.
func HeaderFor(r *model.Result) Header {
	return Header{
		TotalMatches:   r.TotalMatches,
		TotalUnmatched: r.TotalUnmatched,
		TotalWinCount:  r.TotalWinCount,
		ShowSummary:    r.TotalWinCount > 0,
		ShowExport:     r.HasResults,
	}
}

// Describe builds the row descriptor of one row.
func Describe(row model.Row) RowDescriptor {
	style := StyleUnmatched
	if row.Matched() {
		style = StyleMatched
	}

	return RowDescriptor{
		Style: style,
		Cells: []Cell{
			{Text: row.Name},
			{Text: row.Account},
			{Text: buyCell(row.BuyCount)},
			winCell(row),
			{Text: row.Status.Label()},
		},
	}
}

// PlaceholderRow is the single row drawn for an empty result.
func PlaceholderRow() RowDescriptor {
	return RowDescriptor{
		Style: StylePlaceholder,
		Cells: []Cell{{Text: Placeholder, Span: len(Columns)}},
	}
}

func buyCell(c model.Count) string {
	if !c.Present() {
		return Missing
	}
	return c.String()
}

func winCell(row model.Row) Cell {
	if !row.Matched() {
		return Cell{Text: Missing}
	}
	n := row.WinCount.Int()
	if n > 0 {
		return Cell{Text: strconv.Itoa(n), Emphasis: true}
	}
	return Cell{Text: "0"}
}
