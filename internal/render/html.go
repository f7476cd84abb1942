package render

import "strconv"

// HTMLCell is a cell prepared for html/template.
type HTMLCell struct {
	Text    string
	Class   string
	Colspan int
}

// HTMLRow is a row prepared for html/template.
type HTMLRow struct {
	Class string
	Cells []HTMLCell
}

// HTMLSink collects the report in a form the console template can range
// over. Templates escape the text; the sink does not.
type HTMLSink struct {
	Header   Header
	Columns  []string
	Rows     []HTMLRow
	Anchor   string
	Scrolled bool
}

// NewHTMLSink creates a sink whose scroll target is anchor.
func NewHTMLSink(anchor string) *HTMLSink {
	return &HTMLSink{Columns: Columns, Anchor: anchor}
}

func (h *HTMLSink) Clear() {
	h.Header = Header{}
	h.Rows = nil
	h.Scrolled = false
}

func (h *HTMLSink) SetHeader(hdr Header) { h.Header = hdr }

func (h *HTMLSink) AppendRow(row RowDescriptor) {
	out := HTMLRow{Class: row.Style.Class(), Cells: make([]HTMLCell, 0, len(row.Cells))}
	for _, c := range row.Cells {
		cell := HTMLCell{Text: c.Text, Colspan: c.Span}
		if c.Emphasis {
			cell.Class = EmphasisClass
		}
		out.Cells = append(out.Cells, cell)
	}
	h.Rows = append(h.Rows, out)
}

func (h *HTMLSink) ScrollIntoView() { h.Scrolled = true }

// Fragment is the URL fragment to redirect to after a render, or "".
func (h *HTMLSink) Fragment() string {
	if !h.Scrolled || h.Anchor == "" {
		return ""
	}
	return "#" + h.Anchor
}

// Summary returns the win total as text, or "" when the panel is hidden.
func (h *HTMLSink) Summary() string {
	if !h.Header.ShowSummary {
		return ""
	}
	return strconv.Itoa(h.Header.TotalWinCount)
}
