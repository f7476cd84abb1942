package download

import (
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvDoc(body string) Document {
	return Document{Body: []byte(body), MediaType: "text/csv", Charset: "utf-8"}
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

func TestFileName(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 7, 23, 59, 0, 0, time.Local)
	assert.Equal(t, "中签结果_20260307.csv", FileName("中签结果", "csv", now))
	assert.Equal(t, "report_20260307.xlsx", FileName("report", ".xlsx", now))
}

func TestDownload_WritesAndCleansUp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	trig := NewTrigger(dir)

	path, err := trig.Download(csvDoc("\ufeffa,b\n"), "中签结果_20260307.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "中签结果_20260307.csv"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\ufeffa,b\n", string(b))
	assert.Equal(t, []string{"中签结果_20260307.csv"}, entries(t, dir))
}

func TestDownload_SameDayOverwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	trig := NewTrigger(dir)

	for _, body := range []string{"first", "second", "third"} {
		_, err := trig.Download(csvDoc(body), "r_20260307.csv")
		require.NoError(t, err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "r_20260307.csv"))
	require.NoError(t, err)
	assert.Equal(t, "third", string(b))
	assert.Len(t, entries(t, dir), 1)
}

func TestDownload_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "exports", "daily")
	path, err := NewTrigger(dir).Download(csvDoc("x"), "r.csv")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestDownload_RejectsPathNames(t *testing.T) {
	t.Parallel()

	trig := NewTrigger(t.TempDir())
	for _, name := range []string{"", "../escape.csv", "sub/r.csv"} {
		_, err := trig.Download(csvDoc("x"), name)
		assert.Error(t, err, name)
	}
}

func TestDownload_FailureLeavesNoTempFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// A directory occupying the destination name makes the rename fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "r.csv"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.csv", "keep"), []byte("x"), 0o600))

	_, err := NewTrigger(dir).Download(csvDoc("x"), "r.csv")
	require.Error(t, err)
	assert.Equal(t, []string{"r.csv"}, entries(t, dir))
}

func TestNewDocument(t *testing.T) {
	t.Parallel()

	doc, err := NewDocument([]byte("x"), "text/csv; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", doc.MediaType)
	assert.Equal(t, "utf-8", doc.Charset)
	assert.Equal(t, "text/csv; charset=utf-8", doc.ContentType())

	_, err = NewDocument(nil, "")
	assert.Error(t, err)
}

func TestServeAttachment(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	require.NoError(t, ServeAttachment(rec, csvDoc("a,b\n"), "中签结果_20260307.csv"))

	resp := rec.Result()
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t,
		"attachment; filename=_____20260307.csv; filename*=UTF-8''%E4%B8%AD%E7%AD%BE%E7%BB%93%E6%9E%9C_20260307.csv",
		resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "4", resp.Header.Get("Content-Length"))
	assert.Equal(t, "a,b\n", rec.Body.String())
}

func TestContentDisposition_Spaces(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `attachment; filename="my report.csv"; filename*=UTF-8''my%20report.csv`, ContentDisposition("my report.csv"))
}

func TestContentDisposition_ParsesBothForms(t *testing.T) {
	t.Parallel()

	mt, params, err := mime.ParseMediaType(ContentDisposition("中签结果_20260307.csv"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", mt)
	assert.Equal(t, "中签结果_20260307.csv", params["filename"])
}
