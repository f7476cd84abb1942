package reconsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/recon-cli/internal/model"
)

func testRequest() MatchRequest {
	return MatchRequest{
		AccountFile: File{Name: "accounts.xlsx", Body: strings.NewReader("roster-bytes")},
		ResultFile:  File{Name: "results.xlsx", Body: strings.NewReader("result-bytes")},
	}
}

func TestMatch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/match", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "2026", r.FormValue("year"))

		for field, want := range map[string][2]string{
			FieldAccountFile: {"accounts.xlsx", "roster-bytes"},
			FieldResultFile:  {"results.xlsx", "result-bytes"},
		} {
			f, hdr, err := r.FormFile(field)
			if !assert.NoError(t, err) {
				return
			}
			b, _ := io.ReadAll(f)
			assert.Equal(t, want[0], hdr.Filename)
			assert.Equal(t, want[1], string(b))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":[
			{"name":"A","account":"001","buy_count":3,"win_count":1,"status":"matched"},
			{"name":"B","account":"002","buy_count":2,"win_count":0,"status":"unmatched"}],
			"total_matches":1,"total_unmatched":1,"total_win_count":1,"has_results":true}`))
	}))
	defer srv.Close()

	req := testRequest()
	req.Fields = map[string]string{"year": "2026"}

	client := NewClient(WithBaseURL(srv.URL + "/"))
	got, err := client.Match(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, got.Succeeded())
	assert.True(t, got.Exportable())
	assert.NotEmpty(t, got.RequestID)
	require.Len(t, got.Data, 2)
	assert.Equal(t, model.StatusMatched, got.Data[0].Status)
	assert.Equal(t, "3", got.Data[0].BuyCount.String())
	assert.Equal(t, 1, got.TotalMatches)
	require.NotNil(t, got.TotalUnmatched)
	assert.Equal(t, 1, *got.TotalUnmatched)
	assert.Equal(t, 1, got.TotalWinCount)
}

func TestMatch_ServiceError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "文件格式错误"})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.Match(context.Background(), testRequest())

	require.NoError(t, err)
	assert.False(t, got.Succeeded())
	assert.Equal(t, "文件格式错误", got.Message)
	assert.False(t, got.Exportable())
}

func TestMatch_JSONErrorWithNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"请上传账号文件"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.Match(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "请上传账号文件", got.Message)
}

func TestMatch_NonJSONServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Match(context.Background(), testRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestMatch_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Match(context.Background(), testRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestMatch_CustomEndpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/reconcile", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"success","data":[],"total_matches":0,"total_win_count":0}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithEndpoint("api/v2/reconcile"))
	got, err := client.Match(context.Background(), testRequest())

	require.NoError(t, err)
	assert.True(t, got.Succeeded())
	assert.Nil(t, got.TotalUnmatched)
	assert.False(t, got.Exportable())
}

func TestMatch_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(WithBaseURL(url))
	_, err := client.Match(context.Background(), testRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestMatch_MissingBody(t *testing.T) {
	t.Parallel()

	client := NewClient(WithBaseURL("http://127.0.0.1:1"))
	_, err := client.Match(context.Background(), MatchRequest{
		AccountFile: File{Name: "a.xlsx", Body: strings.NewReader("x")},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), FieldResultFile)
}

func TestMatch_LimiterHonorsContext(t *testing.T) {
	t.Parallel()

	// A limiter with no burst never admits a request.
	limiter := rate.NewLimiter(rate.Every(time.Hour), 0)
	client := NewClient(WithBaseURL("http://127.0.0.1:1"), WithLimiter(limiter))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Match(ctx, testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestMatch_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Match(ctx, testRequest())

	require.Error(t, err)
}

func TestMatch_BareNaNCount(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":[
			{"name":"A","account":"001","buy_count":NaN,"win_count":2,"status":"matched"}],
			"total_matches":1,"total_win_count":2}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.Match(context.Background(), testRequest())

	require.NoError(t, err)
	require.Len(t, got.Data, 1)
	assert.False(t, got.Data[0].BuyCount.Present())
	assert.Equal(t, 2, got.Data[0].WinCount.Int())
}

func TestNonFiniteToNull(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"untouched", `{"a":1,"b":"x"}`, `{"a":1,"b":"x"}`},
		{"nan", `{"a":NaN}`, `{"a":null}`},
		{"infinities", `[Infinity,-Infinity, NaN]`, `[null,null, null]`},
		{"inside string", `{"name":"NaN Infinity","a":NaN}`, `{"name":"NaN Infinity","a":null}`},
		{"escaped quote", `{"name":"say \"NaN\"","a":NaN}`, `{"name":"say \"NaN\"","a":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(nonFiniteToNull([]byte(tt.in))))
		})
	}
}
