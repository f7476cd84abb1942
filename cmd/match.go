package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/render"
	"github.com/sells-group/recon-cli/internal/session"
	"github.com/sells-group/recon-cli/internal/submit"
	"github.com/sells-group/recon-cli/pkg/reconsvc"
)

// matchOptions holds the flags of the match command.
type matchOptions struct {
	Accounts string
	Results  string
	Output   string
	Export   bool
	Format   string
	Dir      string
	Label    string
	NoColor  bool
}

var matchOpts matchOptions

var matchCmd = &cobra.Command{
	Use:          "match",
	Short:        "Reconcile an account roster against win results",
	Long:         "Uploads the account file and the win-result file to the reconciliation service, prints the per-account report and optionally exports it.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("match"); err != nil {
			return err
		}
		return runMatch(cmd.Context(), newServiceClient(cfg), matchOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func runMatch(ctx context.Context, client reconsvc.Client, opts matchOptions, stdout, stderr io.Writer) error {
	switch opts.Output {
	case "table", "json", "yaml":
	default:
		return eris.Errorf("match: unsupported output %q", opts.Output)
	}

	c := *cfg
	if opts.Dir != "" {
		c.Export.Dir = opts.Dir
	}
	if opts.Label != "" {
		c.Export.Label = opts.Label
	}

	sess, err := initSession(&c, client, session.LogNotifier{W: stderr}, opts.Format,
		session.WithControl(&statusLine{w: stderr}))
	if err != nil {
		return err
	}

	in, closeFiles, err := openInput(opts.Accounts, opts.Results)
	if err != nil {
		return err
	}
	defer closeFiles()

	var sink render.Sink
	var table *render.TerminalSink
	if opts.Output == "table" {
		table = render.NewTerminalSink(!opts.NoColor && os.Getenv("NO_COLOR") == "")
		sink = table
	}

	out := sess.Submit(ctx, in, sink)
	if !out.OK() {
		return eris.Errorf("match: submission failed (%s)", out.Kind())
	}

	switch opts.Output {
	case "table":
		if err := table.Flush(stdout); err != nil {
			return err
		}
	case "json", "yaml":
		if err := writeReport(stdout, opts.Output, sess.Current()); err != nil {
			return err
		}
	}

	if !opts.Export {
		return nil
	}
	path, err := sess.Export(ctx)
	if errors.Is(err, session.ErrNothingToExport) {
		return nil
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stderr, "已导出: %s\n", path)
	return nil
}

// openInput opens the chosen files. An empty path is left unchosen so the
// pipeline reports it; a path that cannot be opened is an error.
func openInput(accounts, results string) (submit.Input, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close() //nolint:errcheck
		}
	}

	open := func(path string) (*reconsvc.File, error) {
		if strings.TrimSpace(path) == "" {
			return nil, nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "match: open %s", path)
		}
		opened = append(opened, f)
		return &reconsvc.File{Name: filepath.Base(path), Body: f}, nil
	}

	acct, err := open(accounts)
	if err != nil {
		closeAll()
		return submit.Input{}, func() {}, err
	}
	res, err := open(results)
	if err != nil {
		closeAll()
		return submit.Input{}, func() {}, err
	}

	return submit.Input{Account: acct, Result: res}, closeAll, nil
}

// writeReport prints the current report as JSON or YAML.
func writeReport(w io.Writer, format string, r *model.Result) error {
	if r == nil {
		r = model.NewResult([]model.Row{}, false)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "match: encode json")
		}
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "match: encode yaml")
		}
		if err := enc.Close(); err != nil {
			return eris.Wrap(err, "match: flush yaml")
		}
	}
	return nil
}

// statusLine shows the busy label on a terminal line and erases it when
// the submission completes.
type statusLine struct {
	w     io.Writer
	width int
}

func (s *statusLine) SetBusy(label string) {
	s.width = render.DisplayWidth(label)
	_, _ = fmt.Fprint(s.w, label)
}

func (s *statusLine) Restore() {
	if s.width == 0 {
		return
	}
	_, _ = fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.width)+"\r")
	s.width = 0
	zap.L().Debug("match: submission finished")
}

func init() {
	f := matchCmd.Flags()
	f.StringVar(&matchOpts.Accounts, "accounts", "", "account roster file")
	f.StringVar(&matchOpts.Results, "results", "", "win result file")
	f.StringVarP(&matchOpts.Output, "output", "o", "table", "output format: table, json or yaml")
	f.BoolVar(&matchOpts.Export, "export", false, "export the report after a successful match")
	f.StringVar(&matchOpts.Format, "format", "", "export format: csv or xlsx (default from config)")
	f.StringVar(&matchOpts.Dir, "dir", "", "export directory (default from config)")
	f.StringVar(&matchOpts.Label, "label", "", "export file name prefix (default from config)")
	f.BoolVar(&matchOpts.NoColor, "no-color", false, "disable ANSI colors")
	rootCmd.AddCommand(matchCmd)
}
