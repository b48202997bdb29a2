package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/jimbo/internal/insertion"
	"github.com/phobologic/jimbo/internal/model"
	"github.com/phobologic/jimbo/internal/outline"
	"github.com/phobologic/jimbo/internal/session"
	"github.com/phobologic/jimbo/internal/snippet"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cache, err := outline.NewCache(16)
	require.NoError(t, err)
	s := New(Options{
		Outlines: cache,
		Session: session.Options{
			Settle:    20 * time.Millisecond,
			ClickHold: 50 * time.Millisecond,
		},
	})
	t.Cleanup(s.Close)
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"OK"`)
}

func TestClassify(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/classify", classifyRequest{
		Snippet:  "async function load() {\n  const items = await fetch(url);\n  return items.map(x => x.id);\n}",
		Language: "javascript",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp classifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, snippet.ConstructFunction, resp.Result.ConstructType)
	assert.Equal(t, []string{snippet.ActionAPI, snippet.ActionData}, resp.Result.Actions)
	require.NotNil(t, resp.Outline)
	require.Len(t, resp.Outline.Symbols, 1)
	assert.Equal(t, "load", resp.Outline.Symbols[0].Name)
}

func TestClassifyWithoutLanguage(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/classify", classifyRequest{Snippet: ""})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"result": {"lineCount":0,"constructType":"","actions":[],"complexity":"simple","score":0,"gist":"Added code"},
		"outline": null
	}`, rec.Body.String())
}

func TestClassifyErrors(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/classify",
		classifyRequest{Snippet: "x", Language: "cobol"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChanges(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/changes", changesRequest{
		File:    "a.js",
		Changes: []insertion.Change{{Text: "ab", RangeLength: 0}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"significant":false}`, rec.Body.String())

	rec = doJSON(t, s.Handler(), http.MethodPost, "/v1/changes", changesRequest{
		File:    "src/store.ts",
		Changes: []insertion.Change{{Text: "class Store {\n  save() {}\n}", RangeLength: 0}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp changesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Significant)
	require.NotNil(t, resp.Insertion)
	assert.Equal(t, "src/store.ts", resp.Insertion.File)
	assert.Equal(t, "Added a class", resp.Insertion.Result.Gist)
	require.NotNil(t, resp.Insertion.Outline)
	assert.Equal(t, "typescript", resp.Insertion.Outline.Language)
}

func TestClick(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/click", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var r model.Reaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, model.Click, r.Kind)
	assert.Equal(t, "Click me for wisdom! 🃏", r.Text)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/classify", nil)
	req.Header.Set("Origin", "vscode-webview://jimbo")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestEventsFeed(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	s.Insert(model.Insertion{
		Report: model.Report{File: "a.js", Result: snippet.Classify("const x = 1;")},
	})

	ev := readEvent(t, conn)
	assert.Equal(t, EventInsertion, ev.Type)
	require.NotNil(t, ev.Insertion)
	assert.Equal(t, "a.js", ev.Insertion.File)

	ev = readEvent(t, conn)
	assert.Equal(t, EventReaction, ev.Type)
	require.NotNil(t, ev.Reaction)
	assert.Equal(t, model.Accepted, ev.Reaction.Kind)
	assert.Equal(t, "Added a constant", ev.Reaction.Gist)

	// clicking through the feed
	require.NoError(t, conn.WriteJSON(inbound{Type: "click"}))
	ev = readEvent(t, conn)
	require.NotNil(t, ev.Reaction)
	assert.Equal(t, model.Click, ev.Reaction.Kind)
}

func TestCloseDisconnectsClients(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.count() == 1 },
		2*time.Second, 10*time.Millisecond)
	s.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestReloadQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"clickQuotes": ["first"]}`), 0o644))

	s := New(Options{
		QuotesPath: path,
		Session:    session.Options{ClickHold: 10 * time.Millisecond},
	})
	t.Cleanup(s.Close)

	require.NoError(t, os.WriteFile(path, []byte(`{
		"copilotAccepted": {"positive": ["a", "b"], "sarcastic": ["c"]},
		"clickQuotes": ["reloaded", "again"]
	}`), 0o644))
	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/quotes/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"positive":2,"sarcastic":1,"click":2}`, rec.Body.String())

	var r model.Reaction
	rec = doJSON(t, s.Handler(), http.MethodPost, "/v1/click", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Contains(t, []string{"reloaded", "again"}, r.Quote)

	tests := []struct {
		name    string
		content string
	}{
		{"empty catalog", `{"copilotAccepted": {"positive": [], "sarcastic": []}, "clickQuotes": []}`},
		{"bad json", `{"clickQuotes": [`},
	}
	for _, tt := range tests {
		require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
		rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/quotes/reload", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, tt.name)
		assert.Contains(t, rec.Body.String(), `"error"`, tt.name)
	}

	// a failed reload keeps the last good catalog
	require.Eventually(t, func() bool {
		rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/click", nil)
		var r model.Reaction
		return json.Unmarshal(rec.Body.Bytes(), &r) == nil &&
			(r.Quote == "reloaded" || r.Quote == "again")
	}, time.Second, 5*time.Millisecond)
}

func TestReloadQuotesBuiltIn(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/quotes/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"positive":1,"sarcastic":1,"click":1}`, rec.Body.String())
}
