package render

// Recorder is a Sink that keeps what it was given. It mirrors a live view:
// Clear drops previously appended rows.
type Recorder struct {
	Header   Header
	Rows     []RowDescriptor
	Scrolled bool
	Calls    []string
}

func (r *Recorder) Clear() {
	r.Header = Header{}
	r.Rows = nil
	r.Scrolled = false
	r.Calls = append(r.Calls, "clear")
}

func (r *Recorder) SetHeader(h Header) {
	r.Header = h
	r.Calls = append(r.Calls, "header")
}

func (r *Recorder) AppendRow(row RowDescriptor) {
	r.Rows = append(r.Rows, row)
	r.Calls = append(r.Calls, "row")
}

func (r *Recorder) ScrollIntoView() {
	r.Scrolled = true
	r.Calls = append(r.Calls, "scroll")
}
