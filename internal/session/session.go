// Package session ties submission, report state, rendering and export
// together for one user session.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/download"
	"github.com/sells-group/recon-cli/internal/export"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/render"
	"github.com/sells-group/recon-cli/internal/report"
	"github.com/sells-group/recon-cli/internal/submit"
)

// MsgNothingToExport is shown when an export is requested with no rows.
const MsgNothingToExport = "没有可导出的数据"

// DefaultLabel prefixes export file names.
const DefaultLabel = "中签结果"

// ErrNothingToExport is returned by Export when there is no current result.
var ErrNothingToExport = export.ErrNothingToExport

// Session is the controller for one user session.
type Session struct {
	pipeline  *submit.Pipeline
	state     *report.State
	formatter export.Formatter
	trigger   *download.Trigger
	notifier  Notifier
	control   submit.Control
	label     string
	now       func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithFormatter sets the export formatter. Defaults to CSV.
func WithFormatter(f export.Formatter) Option {
	return func(s *Session) { s.formatter = f }
}

// WithTrigger sets where exports are written. Defaults to the working directory.
func WithTrigger(t *download.Trigger) Option {
	return func(s *Session) { s.trigger = t }
}

// WithNotifier sets the notification target.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithControl sets the control shown busy while a submission is in flight.
func WithControl(c submit.Control) Option {
	return func(s *Session) { s.control = c }
}

// WithLabel sets the export file name prefix.
func WithLabel(label string) Option {
	return func(s *Session) {
		if label != "" {
			s.label = label
		}
	}
}

// WithClock overrides the clock used to name exports.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a Session submitting through p.
func New(p *submit.Pipeline, opts ...Option) *Session {
	s := &Session{
		pipeline:  p,
		state:     report.NewState(),
		formatter: export.CSVFormatter{},
		trigger:   download.NewTrigger("."),
		notifier:  LogNotifier{},
		label:     DefaultLabel,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Busy reports whether a submission is in flight.
func (s *Session) Busy() bool {
	return s.pipeline.Busy()
}

// Current returns the current result, or nil.
func (s *Session) Current() *model.Result {
	return s.state.Current()
}

// Formatter returns the export formatter.
func (s *Session) Formatter() export.Formatter {
	return s.formatter
}

// Submit sends the input, updates the report and redraws sink. Failures
// are notified and leave both the report and sink as they were.
func (s *Session) Submit(ctx context.Context, in submit.Input, sink render.Sink) model.Outcome {
	out := s.pipeline.Submit(ctx, in, s.control)

	change := s.state.Update(out)
	if !change.Rerender() {
		s.notifier.Notify(out.Notice())
		return out
	}

	zap.L().Debug("session: report updated", zap.Stringer("change", change))
	if sink != nil {
		render.Render(sink, s.state.Current())
	}
	return out
}

// Render redraws the current report into sink.
func (s *Session) Render(sink render.Sink) {
	render.Render(sink, s.state.Current())
}

// ExportDocument encodes the current report. It returns ErrNothingToExport,
// after notifying the user, when there are no rows.
func (s *Session) ExportDocument() (download.Document, string, error) {
	cur := s.state.Current()
	if cur == nil || len(cur.Rows) == 0 {
		s.notifier.Notify(MsgNothingToExport)
		return download.Document{}, "", ErrNothingToExport
	}

	body, err := s.formatter.Format(cur.Rows)
	if err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			s.notifier.Notify(MsgNothingToExport)
		}
		return download.Document{}, "", err
	}

	doc, err := download.NewDocument(body, s.formatter.ContentType())
	if err != nil {
		return download.Document{}, "", err
	}
	return doc, download.FileName(s.label, s.formatter.FileExtension(), s.now()), nil
}

// Export writes the current report through the trigger and returns the
// written path.
func (s *Session) Export(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "session: export")
	}

	doc, name, err := s.ExportDocument()
	if err != nil {
		return "", err
	}

	path, err := s.trigger.Download(doc, name)
	if err != nil {
		s.notifier.Notify("导出失败: " + err.Error())
		return "", err
	}
	return path, nil
}
