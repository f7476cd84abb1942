package main

import (
	"encoding/json"
	"errors"
	"html/template"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/download"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/render"
	"github.com/sells-group/recon-cli/internal/session"
	"github.com/sells-group/recon-cli/internal/submit"
	"github.com/sells-group/recon-cli/pkg/reconsvc"
)

const (
	resultAnchor   = "result"
	maxUploadBytes = 32 << 20
)

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>中签结果对账</title>
<style>
.result-highlight { background: #e8f5e9; }
.table-warning { background: #fff8e1; }
.text-success { color: #2e7d32; }
.fw-bold { font-weight: bold; }
.text-center { text-align: center; }
.notice { padding: .5em; border: 1px solid #e57373; background: #ffebee; }
</style>
</head>
<body>
<h1>中签结果对账</h1>
{{if .Notice}}<p class="notice" role="alert">{{.Notice}}</p>{{end}}
<form id="matchForm" method="post" action="/match" enctype="multipart/form-data">
  <label>账号文件 <input type="file" name="account_file"></label>
  <label>中签结果文件 <input type="file" name="result_file"></label>
  <button type="submit"{{if .Busy}} disabled{{end}}>{{if .Busy}}处理中...{{else}}开始匹配{{end}}</button>
</form>
{{if .Show}}
<section id="result">
  <p>匹配数: <span id="totalMatches">{{.Report.Header.TotalMatches}}</span>
     未匹配数: <span id="totalUnmatched">{{.Report.Header.TotalUnmatched}}</span></p>
  {{with .Report.Summary}}<p id="summarySection">总中签数: <span id="totalWinCount">{{.}}</span></p>{{end}}
  <table>
    <thead><tr>{{range .Report.Columns}}<th>{{.}}</th>{{end}}</tr></thead>
    <tbody id="resultTable">
    {{range .Report.Rows}}<tr class="{{.Class}}">{{range .Cells}}<td{{if gt .Colspan 1}} colspan="{{.Colspan}}"{{end}}>{{if .Class}}<span class="{{.Class}}">{{.Text}}</span>{{else}}{{.Text}}{{end}}</td>{{end}}</tr>
    {{end}}
    </tbody>
  </table>
  {{if .Report.Header.ShowExport}}<p><a id="exportLink" href="/export">导出 CSV</a></p>{{end}}
</section>
{{end}}
</body>
</html>
`))

type pageData struct {
	Notice string
	Busy   bool
	Show   bool
	Report *render.HTMLSink
}

// console serves the upload form, the report and its export for one
// shared session.
type console struct {
	sess      *session.Session
	flash     *session.Flash
	submitted atomic.Bool
}

func newConsole(sess *session.Session, flash *session.Flash) *console {
	return &console{sess: sess, flash: flash}
}

// Router builds the console routes.
func (c *console) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(sameOrigin(allowedOrigins))

	r.Get("/", c.index)
	r.Post("/match", c.match)
	r.Get("/export", c.export)
	r.Get("/api/report", c.report)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func (c *console) index(w http.ResponseWriter, r *http.Request) {
	sink := render.NewHTMLSink(resultAnchor)
	c.sess.Render(sink)

	data := pageData{
		Notice: c.flash.Take(),
		Busy:   c.sess.Busy(),
		Show:   c.submitted.Load(),
		Report: sink,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		zap.L().Error("console: render page", zap.Error(err))
	}
}

func (c *console) match(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.flash.Notify("请求出错: " + err.Error())
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll() //nolint:errcheck
	}

	acct, closeAcct := formFile(r, reconsvc.FieldAccountFile)
	defer closeAcct()
	res, closeRes := formFile(r, reconsvc.FieldResultFile)
	defer closeRes()

	sink := render.NewHTMLSink(resultAnchor)
	out := c.sess.Submit(r.Context(), submit.Input{Account: acct, Result: res}, sink)
	if out.OK() {
		c.submitted.Store(true)
	}

	http.Redirect(w, r, "/"+sink.Fragment(), http.StatusSeeOther)
}

func (c *console) export(w http.ResponseWriter, r *http.Request) {
	doc, name, err := c.sess.ExportDocument()
	if errors.Is(err, session.ErrNothingToExport) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		zap.L().Error("console: export", zap.Error(err))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	if err := download.ServeAttachment(w, doc, name); err != nil {
		zap.L().Warn("console: write attachment", zap.Error(err))
	}
}

func (c *console) report(w http.ResponseWriter, r *http.Request) {
	res := c.sess.Current()
	if res == nil {
		res = model.NewResult([]model.Row{}, false)
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		*model.Result
	}{Status: reconsvc.StatusSuccess, Result: res})
}

// sameOrigin rejects non-GET requests whose Origin is neither the console
// itself nor an allowed origin. Requests without an Origin header pass.
func sameOrigin(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if r.Method == http.MethodGet || r.Method == http.MethodHead || origin == "" || originAllowed(origin, r.Host, allowed) {
				next.ServeHTTP(w, r)
				return
			}
			zap.L().Warn("console: cross-site request rejected",
				zap.String("origin", origin),
				zap.String("path", r.URL.Path),
			)
			http.Error(w, "cross-site request rejected", http.StatusForbidden)
		})
	}
}

func originAllowed(origin, host string, allowed []string) bool {
	if u, err := url.Parse(origin); err == nil && u.Host != "" && strings.EqualFold(u.Host, host) {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// formFile returns the uploaded file under field, or nil when the part is
// missing or empty.
func formFile(r *http.Request, field string) (*reconsvc.File, func()) {
	if r.MultipartForm == nil {
		return nil, func() {}
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, func() {}
	}
	if hdr.Filename == "" || hdr.Size == 0 {
		f.Close() //nolint:errcheck
		return nil, func() {}
	}
	return &reconsvc.File{Name: hdr.Filename, Body: f}, closer(f)
}

func closer(f multipart.File) func() {
	return func() { f.Close() } //nolint:errcheck
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("console: encode json", zap.Error(err))
	}
}
