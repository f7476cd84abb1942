// Package download hands encoded documents to the user, either as a file
// on disk or as an HTTP attachment.
package download

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Document is an encoded export.
type Document struct {
	Body      []byte
	MediaType string
	Charset   string
}

// NewDocument builds a Document from a Content-Type value such as
// "text/csv; charset=utf-8".
func NewDocument(body []byte, contentType string) (Document, error) {
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return Document{}, eris.Wrapf(err, "download: parse content type %q", contentType)
	}
	return Document{Body: body, MediaType: mt, Charset: params["charset"]}, nil
}

// ContentType formats the Content-Type header value.
func (d Document) ContentType() string {
	if d.Charset == "" {
		return mime.FormatMediaType(d.MediaType, nil)
	}
	return mime.FormatMediaType(d.MediaType, map[string]string{"charset": d.Charset})
}

// FileName returns "<label>_<YYYYMMDD>.<ext>" for the local date of now.
func FileName(label, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", label, now.Format("20060102"), strings.TrimPrefix(ext, "."))
}

// Trigger writes documents into a directory.
type Trigger struct {
	Dir string
}

// NewTrigger creates a Trigger for dir. An empty dir means the working
// directory.
func NewTrigger(dir string) *Trigger {
	if dir == "" {
		dir = "."
	}
	return &Trigger{Dir: dir}
}

// Download writes doc to filename inside the trigger's directory and
// returns the final path. The document is staged in a temp file that is
// renamed into place; the temp file never outlives the call. An existing
// file of the same name is replaced.
func (t *Trigger) Download(doc Document, filename string) (string, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return "", eris.Errorf("download: invalid file name %q", filename)
	}
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return "", eris.Wrap(err, "download: create directory")
	}

	tmp, err := os.CreateTemp(t.Dir, "."+filename+".*.tmp")
	if err != nil {
		return "", eris.Wrap(err, "download: create temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck

	if _, err := tmp.Write(doc.Body); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "download: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "download: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "download: close temp file")
	}

	dest := filepath.Join(t.Dir, filename)
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", eris.Wrap(err, "download: move into place")
	}

	zap.L().Info("download: export written",
		zap.String("path", dest),
		zap.Int("bytes", len(doc.Body)),
	)
	return dest, nil
}

// ServeAttachment writes doc as an attachment named filename.
func ServeAttachment(w http.ResponseWriter, doc Document, filename string) error {
	h := w.Header()
	h.Set("Content-Type", doc.ContentType())
	h.Set("Content-Disposition", ContentDisposition(filename))
	h.Set("Content-Length", strconv.Itoa(len(doc.Body)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(doc.Body); err != nil {
		return eris.Wrap(err, "download: write attachment")
	}
	return nil
}

// ContentDisposition builds an attachment header carrying an ASCII
// filename for old clients and the RFC 5987 encoded filename* for the rest.
func ContentDisposition(filename string) string {
	fallback := mime.FormatMediaType("attachment", map[string]string{"filename": asciiName(filename)})
	return fallback + "; filename*=UTF-8''" + strings.ReplaceAll(url.QueryEscape(filename), "+", "%20")
}

func asciiName(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '_'
		}
		return r
	}, name)
}
