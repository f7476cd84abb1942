package main

import (
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/download"
	"github.com/sells-group/recon-cli/internal/export"
	"github.com/sells-group/recon-cli/internal/session"
	"github.com/sells-group/recon-cli/internal/submit"
	"github.com/sells-group/recon-cli/pkg/reconsvc"
)

// newServiceClient builds the reconciliation client from config.
func newServiceClient(c *config.Config) reconsvc.Client {
	opts := []reconsvc.Option{
		reconsvc.WithBaseURL(c.Service.BaseURL),
		reconsvc.WithEndpoint(c.Service.Endpoint),
	}
	if t := c.Service.Timeout(); t > 0 {
		opts = append(opts, reconsvc.WithHTTPClient(&http.Client{Timeout: t}))
	}
	if l := c.Service.Limiter(); l != nil {
		opts = append(opts, reconsvc.WithLimiter(l))
	}
	return reconsvc.NewClient(opts...)
}

// initSession wires a session from config. format overrides
// export.format when non-empty; extra options are applied last.
func initSession(c *config.Config, client reconsvc.Client, n session.Notifier, format string, extra ...session.Option) (*session.Session, error) {
	if format == "" {
		format = c.Export.Format
	}
	f, err := export.ForFormat(format)
	if err != nil {
		return nil, eris.Wrap(err, "init session")
	}

	opts := []session.Option{
		session.WithFormatter(f),
		session.WithTrigger(download.NewTrigger(c.Export.Dir)),
		session.WithLabel(c.Export.Label),
		session.WithNotifier(n),
	}
	opts = append(opts, extra...)

	return session.New(submit.New(client), opts...), nil
}
