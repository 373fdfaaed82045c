package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/prompt-vault/internal/config"
	"github.com/sakif/prompt-vault/internal/handler"
	"github.com/sakif/prompt-vault/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Environment: "development"},
		Logger:  config.LoggerConfig{Level: "info"},
		Storage: config.StorageConfig{DBPath: ":memory:"},
		Server: config.ServerConfig{
			Port:            3108,
			CORSOrigins:     []string{"http://localhost:5173"},
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			IdleTimeout:     time.Second,
			ShutdownTimeout: time.Second,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	s, err := New(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Close()
	})
	return ts
}

// call sends a request and decodes a JSON response into out when out is non-nil.
func call(t *testing.T, ts *httptest.Server, method, path, body string, out any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createPrompt(t *testing.T, ts *httptest.Server, body string) model.Prompt {
	t.Helper()
	var p model.Prompt
	resp := call(t, ts, http.MethodPost, "/api/prompts", body, &p)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return p
}

func TestAPI_CreateAcceptsBothTagForms(t *testing.T) {
	ts := newTestServer(t, testConfig())

	fromString := createPrompt(t, ts, `{"title":"Summarize","content":"Summarize this","tags":"a, B ,a"}`)
	fromList := createPrompt(t, ts, `{"title":"Translate","content":"Translate this","tags":["a","B","a"]}`)

	assert.Equal(t, []string{"a", "b"}, fromString.Tags)
	assert.Equal(t, []string{"a", "b"}, fromList.Tags)
	assert.Equal(t, int64(0), fromString.UseCount)
	assert.Nil(t, fromString.LastUsed)
	assert.Nil(t, fromString.Notes)
	assert.Equal(t, fromString.CreatedAt, fromString.UpdatedAt)

	var got model.Prompt
	resp := call(t, ts, http.MethodGet, fmt.Sprintf("/api/prompts/%d", fromList.ID), "", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, fromList.ID, got.ID)
	assert.Equal(t, "Translate this", got.Content)
}

func TestAPI_CreateValidation(t *testing.T) {
	ts := newTestServer(t, testConfig())

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   string
	}{
		{name: "empty title", body: `{"title":"  ","content":"x"}`, wantStatus: http.StatusBadRequest, wantKind: "validation_error"},
		{name: "missing content", body: `{"title":"x"}`, wantStatus: http.StatusBadRequest, wantKind: "validation_error"},
		{name: "malformed json", body: `{"title":`, wantStatus: http.StatusBadRequest, wantKind: "invalid_json"},
		{name: "tags wrong type", body: `{"title":"x","content":"y","tags":5}`, wantStatus: http.StatusBadRequest, wantKind: "invalid_json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp handler.ErrorResponse
			resp := call(t, ts, http.MethodPost, "/api/prompts", tt.body, &errResp)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantKind, errResp.Error)
			assert.NotEmpty(t, errResp.Message)
		})
	}

	var list []model.Prompt
	call(t, ts, http.MethodGet, "/api/prompts", "", &list)
	assert.Empty(t, list, "rejected creates must not store anything")
}

func TestAPI_BodyTooLarge(t *testing.T) {
	s, err := New(testConfig(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	body := `{"title":"big","content":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/prompts", strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	var errResp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "payload_too_large", errResp.Error)
}

func TestAPI_UpdateWithEmptyTitleKeepsRecord(t *testing.T) {
	ts := newTestServer(t, testConfig())
	p := createPrompt(t, ts, `{"title":"Original","content":"body","tags":"x"}`)
	path := fmt.Sprintf("/api/prompts/%d", p.ID)

	var errResp handler.ErrorResponse
	resp := call(t, ts, http.MethodPut, path, `{"title":"","content":"changed"}`, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", errResp.Error)

	var got model.Prompt
	call(t, ts, http.MethodGet, path, "", &got)
	assert.Equal(t, "Original", got.Title)
	assert.Equal(t, "body", got.Content)
	assert.Equal(t, p.UpdatedAt, got.UpdatedAt)
}

func TestAPI_UpdateReplacesFields(t *testing.T) {
	ts := newTestServer(t, testConfig())
	p := createPrompt(t, ts, `{"title":"Original","content":"body","tags":"x","notes":"keep"}`)

	var got model.Prompt
	resp := call(t, ts, http.MethodPut, fmt.Sprintf("/api/prompts/%d", p.ID),
		`{"title":"Renamed","content":"new body","tags":["Y"],"favorite":"true"}`, &got)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "new body", got.Content)
	assert.Equal(t, []string{"y"}, got.Tags)
	assert.Nil(t, got.Notes, "omitted notes clear the field")
	assert.True(t, got.Favorite)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)
	assert.False(t, got.UpdatedAt.Before(p.UpdatedAt))
}

func TestAPI_NotFound(t *testing.T) {
	ts := newTestServer(t, testConfig())

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/prompts/999", ""},
		{http.MethodPut, "/api/prompts/999", `{"title":"t","content":"c"}`},
		{http.MethodDelete, "/api/prompts/999", ""},
		{http.MethodPost, "/api/prompts/999/copy", ""},
		{http.MethodPost, "/api/prompts/999/favorite", ""},
		{http.MethodGet, "/api/nothing-here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var errResp handler.ErrorResponse
			resp := call(t, ts, tt.method, tt.path, tt.body, &errResp)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, "not_found", errResp.Error)
		})
	}
}

func TestAPI_NonNumericID(t *testing.T) {
	ts := newTestServer(t, testConfig())

	var errResp handler.ErrorResponse
	resp := call(t, ts, http.MethodGet, "/api/prompts/abc", "", &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", errResp.Error)
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, testConfig())

	var errResp handler.ErrorResponse
	resp := call(t, ts, http.MethodPatch, "/api/prompts/1", `{}`, &errResp)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "method_not_allowed", errResp.Error)
}

func TestAPI_DeleteRemovesPrompt(t *testing.T) {
	ts := newTestServer(t, testConfig())
	p := createPrompt(t, ts, `{"title":"Doomed","content":"bye","tags":"gone"}`)
	path := fmt.Sprintf("/api/prompts/%d", p.ID)

	var ok map[string]bool
	resp := call(t, ts, http.MethodDelete, path, "", &ok)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]bool{"success": true}, ok)

	resp = call(t, ts, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var counts []model.TagCount
	call(t, ts, http.MethodGet, "/api/tags", "", &counts)
	assert.Empty(t, counts)
}

func TestAPI_CopyAndFavorite(t *testing.T) {
	ts := newTestServer(t, testConfig())
	p := createPrompt(t, ts, `{"title":"Reusable","content":"copy me"}`)
	base := fmt.Sprintf("/api/prompts/%d", p.ID)

	var first, second model.Prompt
	call(t, ts, http.MethodPost, base+"/copy", "", &first)
	call(t, ts, http.MethodPost, base+"/copy", "", &second)

	assert.Equal(t, int64(1), first.UseCount)
	assert.Equal(t, int64(2), second.UseCount)
	require.NotNil(t, second.LastUsed)
	assert.False(t, second.LastUsed.Before(*first.LastUsed))
	assert.False(t, second.UpdatedAt.Before(p.UpdatedAt))

	var on, off model.Prompt
	call(t, ts, http.MethodPost, base+"/favorite", "", &on)
	call(t, ts, http.MethodPost, base+"/favorite", "", &off)
	assert.True(t, on.Favorite)
	assert.False(t, off.Favorite)
}

func TestAPI_ListFiltersAndOrder(t *testing.T) {
	ts := newTestServer(t, testConfig())

	sql := createPrompt(t, ts, `{"title":"SQL helper","content":"Write a query","tags":"db"}`)
	code := createPrompt(t, ts, `{"title":"Code review","content":"Review this diff","tags":["dev","db"],"favorite":true}`)
	mail := createPrompt(t, ts, `{"title":"Email","content":"Draft a reply about the SQL outage","notes":"unused"}`)

	ids := func(ps []model.Prompt) []int64 {
		out := make([]int64, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{name: "all, favorites first", query: "", want: []int64{code.ID, mail.ID, sql.ID}},
		{name: "favorite only", query: "?favorite=true", want: []int64{code.ID}},
		{name: "favorite not literal true", query: "?favorite=1", want: []int64{code.ID, mail.ID, sql.ID}},
		{name: "tag", query: "?tag=DB", want: []int64{code.ID, sql.ID}},
		{name: "search is case-insensitive", query: "?search=sql", want: []int64{mail.ID, sql.ID}},
		{name: "search and tag", query: "?search=review&tag=db", want: []int64{code.ID}},
		{name: "no match", query: "?search=zzz", want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var list []model.Prompt
			resp := call(t, ts, http.MethodGet, "/api/prompts"+tt.query, "", &list)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.want, ids(list))
		})
	}
}

func TestAPI_TagsAndHealth(t *testing.T) {
	ts := newTestServer(t, testConfig())

	var health map[string]any
	resp := call(t, ts, http.MethodGet, "/api/health", "", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 0, health["prompts"])

	createPrompt(t, ts, `{"title":"One","content":"1","tags":"go,sql"}`)
	createPrompt(t, ts, `{"title":"Two","content":"2","tags":"go"}`)

	var counts []model.TagCount
	call(t, ts, http.MethodGet, "/api/tags", "", &counts)
	assert.Equal(t, []model.TagCount{{Tag: "go", Count: 2}, {Tag: "sql", Count: 1}}, counts)

	call(t, ts, http.MethodGet, "/api/health", "", &health)
	assert.EqualValues(t, 2, health["prompts"])
}

func TestAPI_EmptyListIsArray(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, err := ts.Client().Get(ts.URL + "/api/prompts")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestAPI_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 2}
	ts := newTestServer(t, cfg)

	for range 2 {
		resp := call(t, ts, http.MethodGet, "/api/health", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var errResp handler.ErrorResponse
	resp := call(t, ts, http.MethodGet, "/api/health", "", &errResp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", errResp.Error)
}

func TestAPI_CORSPreflight(t *testing.T) {
	ts := newTestServer(t, testConfig())

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/prompts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_ServesStaticClient(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>vault</html>"), 0o644))

	cfg := testConfig()
	cfg.Server.StaticDir = dir
	ts := newTestServer(t, cfg)

	resp, err := ts.Client().Get(ts.URL + "/prompts/3")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>vault</html>", string(raw))

	var errResp handler.ErrorResponse
	apiResp := call(t, ts, http.MethodGet, "/api/unknown", "", &errResp)
	assert.Equal(t, http.StatusNotFound, apiResp.StatusCode)
	assert.Equal(t, "not_found", errResp.Error)
}

func TestAPI_CreateAcceptsLongFields(t *testing.T) {
	ts := newTestServer(t, testConfig())

	tests := []struct {
		name string
		body string
	}{
		{name: "long title", body: `{"title":"` + strings.Repeat("t", 201) + `","content":"c"}`},
		{name: "long content", body: `{"title":"t","content":"` + strings.Repeat("c", 100001) + `"}`},
		{name: "long tag", body: `{"title":"t","content":"c","tags":["` + strings.Repeat("g", 65) + `"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			createPrompt(t, ts, tt.body)
		})
	}
}
