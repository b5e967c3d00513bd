package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxu-infra/kml-dashboard/config"
	"github.com/bxu-infra/kml-dashboard/internal/auth"
	"github.com/bxu-infra/kml-dashboard/internal/chat"
	"github.com/bxu-infra/kml-dashboard/internal/ollama"
)

type stubUpstream struct {
	calls   atomic.Int32
	prompts []string
	status  int
	body    string
}

func (s *stubUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)
	var req ollama.GenerateRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.prompts = append(s.prompts, req.Prompt)
	if s.status != 0 {
		w.WriteHeader(s.status)
	}
	_, _ = w.Write([]byte(s.body))
}

type memHistory struct {
	turns map[string][]chat.Turn
	err   error
}

func (m *memHistory) Append(_ context.Context, uid string, turns ...chat.Turn) error {
	if m.err != nil {
		return m.err
	}
	m.turns[uid] = append(m.turns[uid], turns...)
	return nil
}

func (m *memHistory) Recent(_ context.Context, uid string, limit int) ([]chat.Turn, error) {
	if m.err != nil {
		return nil, m.err
	}
	t := m.turns[uid]
	if limit > 0 && len(t) > limit {
		t = t[len(t)-limit:]
	}
	return append([]chat.Turn{}, t...), nil
}

func (m *memHistory) Clear(_ context.Context, uid string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.turns, uid)
	return nil
}

func setup(t *testing.T, up *stubUpstream, history chat.HistoryStore) *gin.Engine {
	t.Helper()
	return setupLimited(t, up, history, nil)
}

func setupLimited(t *testing.T, up *stubUpstream, history chat.HistoryStore, limiter *Limiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := httptest.NewServer(up)
	t.Cleanup(server.Close)

	client := ollama.NewClient(config.OllamaConfig{URL: server.URL, Model: "phi3:mini", Timeout: 5 * time.Second}, nil)

	r := gin.New()
	api := r.Group("/api", auth.HeaderUser())
	New(client, history, limiter).Register(api)
	return r
}

func postJSON(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "uid-1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestSend_Reply(t *testing.T) {
	up := &stubUpstream{body: `{"response":"hi"}`}
	r := setup(t, up, nil)

	rr := postJSON(r, `{"message":"  hello there  "}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"reply": "hi"}, decode(t, rr))
	assert.Equal(t, []string{"hello there"}, up.prompts)
}

func TestSend_FallbackReply(t *testing.T) {
	up := &stubUpstream{body: `{"done":true}`}
	r := setup(t, up, nil)

	rr := postJSON(r, `{"message":"hello"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"reply": NoReplyFallback}, decode(t, rr))
}

func TestSend_ValidationErrors(t *testing.T) {
	cases := map[string]struct {
		body    string
		message string
	}{
		"missing":    {`{}`, msgRequired},
		"empty":      {`{"message":""}`, msgRequired},
		"whitespace": {`{"message":"   "}`, msgRequired},
		"null":       {`{"message":null}`, msgRequired},
		"no body":    {``, msgRequired},
		"number":     {`{"message":42}`, msgString},
		"array":      {`{"message":["a"]}`, msgString},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			up := &stubUpstream{body: `{"response":"should not be called"}`}
			r := setup(t, up, nil)

			rr := postJSON(r, tc.body)

			require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			var v validationError
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
			assert.Equal(t, tc.message, v.Message)
			assert.Equal(t, []string{tc.message}, v.Errors["message"])
			assert.Equal(t, int32(0), up.calls.Load(), "no outbound call on validation failure")
		})
	}
}

func TestSend_MalformedJSON(t *testing.T) {
	up := &stubUpstream{}
	r := setup(t, up, nil)

	rr := postJSON(r, `{"message":`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, int32(0), up.calls.Load())
}

func TestSend_FormBody(t *testing.T) {
	up := &stubUpstream{body: `{"response":"from form"}`}
	r := setup(t, up, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(url.Values{"message": {"hello"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "from form", decode(t, rr)["reply"])
}

func TestSend_UpstreamStatus(t *testing.T) {
	up := &stubUpstream{status: http.StatusServiceUnavailable, body: `busy`}
	r := setup(t, up, nil)

	rr := postJSON(r, `{"message":"hello"}`)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, map[string]any{"error": "Ollama API returned status 503"}, decode(t, rr))
}

func TestSend_UpstreamAcceptedIsAnError(t *testing.T) {
	up := &stubUpstream{status: http.StatusAccepted, body: `{"response":"queued"}`}
	r := setup(t, up, nil)

	rr := postJSON(r, `{"message":"hello"}`)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, map[string]any{"error": "Ollama API returned status 202"}, decode(t, rr))
}

func TestSend_UpstreamUnreachable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client := ollama.NewClient(config.OllamaConfig{URL: "http://127.0.0.1:1", Model: "m", Timeout: time.Second}, nil)
	r := gin.New()
	New(client, nil, nil).Register(r.Group("/api"))

	rr := postJSON(r, `{"message":"hello"}`)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, map[string]any{"error": "Ollama API request failed"}, decode(t, rr))
}

func TestSend_RecordsHistory(t *testing.T) {
	up := &stubUpstream{body: `{"response":"two zones"}`}
	hist := &memHistory{turns: map[string][]chat.Turn{}}
	r := setup(t, up, hist)

	rr := postJSON(r, `{"message":"how many zones?"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	turns := hist.turns["uid-1"]
	require.Len(t, turns, 2)
	assert.Equal(t, chat.RoleUser, turns[0].Role)
	assert.Equal(t, "how many zones?", turns[0].Text)
	assert.Equal(t, chat.RoleAssistant, turns[1].Role)
	assert.Equal(t, "two zones", turns[1].Text)
}

func TestSend_HistoryFailureDoesNotFailReply(t *testing.T) {
	up := &stubUpstream{body: `{"response":"ok"}`}
	r := setup(t, up, &memHistory{err: errors.New("redis down")})

	rr := postJSON(r, `{"message":"hello"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode(t, rr)["reply"])
}

func TestHistoryEndpoints(t *testing.T) {
	hist := &memHistory{turns: map[string][]chat.Turn{
		"uid-1": {
			{Role: chat.RoleUser, Text: "a", Ts: 1},
			{Role: chat.RoleAssistant, Text: "b", Ts: 2},
		},
	}}
	r := setup(t, &stubUpstream{}, hist)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-User-Id", "uid-1")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	rr := get("/api/chat/history?limit=1")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp historyResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []chat.Turn{{Role: chat.RoleAssistant, Text: "b", Ts: 2}}, resp.Turns)

	assert.Equal(t, http.StatusBadRequest, get("/api/chat/history?limit=-3").Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/chat/history", nil)
	req.Header.Set("X-User-Id", "uid-1")
	del := httptest.NewRecorder()
	r.ServeHTTP(del, req)
	require.Equal(t, http.StatusOK, del.Code)
	assert.Empty(t, hist.turns["uid-1"])
}

func postAs(r *gin.Engine, uid, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", uid)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestSend_RateLimitedPerUser(t *testing.T) {
	up := &stubUpstream{body: `{"response":"ok"}`}
	r := setupLimited(t, up, nil, NewLimiter(0.001, 1))

	assert.Equal(t, http.StatusOK, postAs(r, "alice", `{"message":"one"}`).Code)

	limited := postAs(r, "alice", `{"message":"two"}`)
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, map[string]any{"error": "too many requests"}, decode(t, limited))

	assert.Equal(t, http.StatusOK, postAs(r, "bob", `{"message":"one"}`).Code, "other users keep their own bucket")
	assert.Equal(t, int32(2), up.calls.Load())
}

func TestSend_InvalidRequestsDoNotSpendTokens(t *testing.T) {
	up := &stubUpstream{body: `{"response":"ok"}`}
	r := setupLimited(t, up, nil, NewLimiter(0.001, 1))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnprocessableEntity, postAs(r, "alice", `{"message":""}`).Code)
	}

	assert.Equal(t, http.StatusOK, postAs(r, "alice", `{"message":"hello"}`).Code)
}
