package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/models"
	modeltetris "github.com/progate-hackathon-strawberry-flavor/playfield/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/services/tetris"
)

const testSecret = "router-secret"

type testEnv struct {
	handler  http.Handler
	sessions *tetris.SessionManager
	results  database.ResultRepository
}

func newTestEnv(t *testing.T, db *fakePinger) *testEnv {
	t.Helper()
	results := database.NewMemoryResultRepository()
	sm, err := tetris.NewSessionManager(tetris.SessionManagerConfig{
		Field:        modeltetris.DefaultConfig(),
		TickInterval: time.Hour,
		NewSource:    func() modeltetris.KindSource { return modeltetris.NewSequenceKinds(modeltetris.KindT) },
	}, results)
	require.NoError(t, err)
	t.Cleanup(sm.Shutdown)

	deps := Dependencies{
		Sessions:       sm,
		Results:        results,
		Auth:           middleware.NewAuthenticator(testSecret, false),
		FieldConfig:    modeltetris.DefaultConfig(),
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	if db != nil {
		deps.DB = db
	}
	return &testEnv{handler: NewRouter(deps), sessions: sm, results: results}
}

type fakePinger struct{ err error }

func (f *fakePinger) PingContext(ctx context.Context) error { return f.err }

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+bearer(t, userID))
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/public/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"memory"}`, rec.Body.String())

	env = newTestEnv(t, &fakePinger{})
	rec = env.do(t, http.MethodGet, "/api/public/health", "", nil)
	assert.JSONEq(t, `{"status":"ok","database":"ok"}`, rec.Body.String())

	env = newTestEnv(t, &fakePinger{err: errors.New("down")})
	rec = env.do(t, http.MethodGet, "/api/public/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFieldConfigEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/public/field", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Config modeltetris.Config `json:"config"`
		Kinds  []string           `json:"kinds"`
	}
	decode(t, rec, &body)
	assert.Equal(t, modeltetris.DefaultConfig(), body.Config)
	assert.Equal(t, []string{"I", "J", "L", "O", "S", "T", "Z"}, body.Kinds)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions", "user-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		SessionID string          `json:"session_id"`
		Snapshot  tetris.Snapshot `json:"snapshot"`
	}
	decode(t, rec, &created)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, "startup", created.Snapshot.State)
	assert.Equal(t, "T", created.Snapshot.Current.Kind)

	path := "/api/sessions/" + created.SessionID

	rec = env.do(t, http.MethodGet, path, "user-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/sessions/missing", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, path+"/actions", "user-1", map[string]string{"action": "start"})
	require.Equal(t, http.StatusOK, rec.Code)
	var applied struct {
		Changed  bool            `json:"changed"`
		Snapshot tetris.Snapshot `json:"snapshot"`
	}
	decode(t, rec, &applied)
	assert.True(t, applied.Changed)
	assert.Equal(t, "running", applied.Snapshot.State)

	rec = env.do(t, http.MethodPost, path+"/actions", "user-1", map[string]string{"action": "hold"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, path, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap tetris.Snapshot
	decode(t, rec, &snap)
	assert.Equal(t, "running", snap.State)

	rec = env.do(t, http.MethodDelete, path, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, env.sessions.SessionCount())
}

func TestResultsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	for i, lines := range []int{2, 8, 5} {
		_, err := env.results.CreateResult(ctx, models.GameResult{
			UserID:       []string{"alice", "bob", "alice"}[i],
			SessionID:    "s",
			LinesCleared: lines,
		})
		require.NoError(t, err)
	}

	rec := env.do(t, http.MethodGet, "/api/results?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var top struct {
		Success bool                        `json:"success"`
		Results []models.GameResultResponse `json:"results"`
	}
	decode(t, rec, &top)
	assert.True(t, top.Success)
	require.Len(t, top.Results, 2)
	assert.Equal(t, 8, top.Results[0].LinesCleared)
	assert.Equal(t, 5, top.Results[1].LinesCleared)

	rec = env.do(t, http.MethodGet, "/api/results/user/alice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user struct {
		Result *models.GameResultResponse `json:"result"`
	}
	decode(t, rec, &user)
	require.NotNil(t, user.Result)
	assert.Equal(t, 5, user.Result.LinesCleared)
	assert.Equal(t, 2, user.Result.Rank)

	rec = env.do(t, http.MethodGet, "/api/results/user/nobody", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &user)
	assert.Nil(t, user.Result)
}

func TestWebSocketEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	session, err := env.sessions.CreateSession("user-1")
	require.NoError(t, err)

	server := httptest.NewServer(env.handler)
	t.Cleanup(server.Close)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions/" + session.ID

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": bearer(t, "user-1")}))

	var ack map[string]string
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "auth_success", ack["type"])

	var snap tetris.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, session.ID, snap.SessionID)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "start"}))
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "running", snap.State)
}

func TestWebSocketEndpointRejectsOtherUser(t *testing.T) {
	env := newTestEnv(t, nil)
	session, err := env.sessions.CreateSession("owner")
	require.NoError(t, err)

	server := httptest.NewServer(env.handler)
	t.Cleanup(server.Close)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions/" + session.ID

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": bearer(t, "intruder")}))

	var ack map[string]string
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "auth_success", ack["type"])

	var failure map[string]string
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Contains(t, failure["error"], "another user")
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/ws/sessions/x", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}

func TestWebSocketEndpointUnknownSession(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/ws/sessions/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
