package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GerGh0stface/GhostyPlaytime/internal/api/middleware"
	"github.com/GerGh0stface/GhostyPlaytime/internal/ledger"
	"github.com/GerGh0stface/GhostyPlaytime/internal/models"
	"github.com/GerGh0stface/GhostyPlaytime/internal/names"
	"github.com/GerGh0stface/GhostyPlaytime/internal/service"
	"github.com/GerGh0stface/GhostyPlaytime/internal/session"
	"github.com/GerGh0stface/GhostyPlaytime/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminToken = "s3cret"

type queue struct {
	submitted int
	err       error
}

func (q *queue) Submit(task worker.SaveTask) error {
	if q.err != nil {
		return q.err
	}
	q.submitted++
	return nil
}

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

type testServer struct {
	app   *fiber.App
	svc   *service.PlaytimeService
	store *ledger.Store
	queue *queue
	ghost uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := ledger.NewStore()
	dir, err := names.NewDirectory(100)
	require.NoError(t, err)
	q := &queue{}
	tracker := session.NewTracker(store, dir, q)
	svc := service.NewPlaytimeService(store, dir, tracker, q, okPinger{}, service.Options{PageSize: 2, TopAmount: 2})

	ghost := uuid.New()
	dir.Remember(ghost, "Ghosty")
	store.Set(ghost, 93784)
	store.Set(uuid.New(), 50)
	store.Set(uuid.New(), 10)

	app := fiber.New()
	NewPlaytimeHandler(svc).Register(app.Group("/api/v1"), middleware.AdminRequired(adminToken))

	return &testServer{app: app, svc: svc, store: store, queue: q, ghost: ghost}
}

func (s *testServer) do(t *testing.T, method, path, body string, admin bool) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set(middleware.AdminTokenHeader, adminToken)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestGetPlaytime(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/api/v1/playtime/ghosty", "", false)
	require.Equal(t, http.StatusOK, code)

	var profile models.PlayerProfile
	require.NoError(t, json.Unmarshal(body, &profile))
	assert.Equal(t, s.ghost.String(), profile.UUID)
	assert.Equal(t, "1d 2h 3m 4s", profile.Formatted)
	assert.Equal(t, 1, profile.Rank)

	code, _ = s.do(t, http.MethodGet, "/api/v1/playtime/nobody", "", false)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = s.do(t, http.MethodGet, "/api/v1/playtime/"+uuid.NewString(), "", false)
	require.Equal(t, http.StatusOK, code)
	var fresh models.PlayerProfile
	require.NoError(t, json.Unmarshal(body, &fresh))
	assert.Equal(t, "0s", fresh.Formatted)
	assert.Zero(t, fresh.Rank)
}

func TestGetTopAndLeaderboard(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/api/v1/top", "", false)
	require.Equal(t, http.StatusOK, code)
	var top models.TopResponse
	require.NoError(t, json.Unmarshal(body, &top))
	assert.Equal(t, 2, top.Limit)
	assert.Len(t, top.Data, 2)

	code, body = s.do(t, http.MethodGet, "/api/v1/leaderboard?page=9", "", false)
	require.Equal(t, http.StatusOK, code)
	var page models.LeaderboardPage
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 3, page.Data[0].Rank)
	assert.Equal(t, int64(10), page.Data[0].Seconds)
}

func TestSessionsLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()

	code, _ := s.do(t, http.MethodPost, "/api/v1/sessions", `{"uuid":"`+id.String()+`","name":"Joiner"}`, true)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4, s.store.Len())

	code, _ = s.do(t, http.MethodDelete, "/api/v1/sessions/"+id.String(), "", true)
	assert.Equal(t, http.StatusNoContent, code)
	assert.Equal(t, 1, s.queue.submitted)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/sessions/"+id.String(), "", true)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStartSession_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"uuid":`},
		{"missing uuid", `{"name":"x"}`},
		{"bad uuid", `{"uuid":"not-a-uuid"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, http.MethodPost, "/api/v1/sessions", tt.body, true)
			assert.Equal(t, http.StatusBadRequest, code)

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPut, "/api/v1/admin/playtime/Ghosty", `{"seconds":5}`, false)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, int64(93784), s.store.Get(s.ghost))
}

func TestSessionRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)
	before := s.store.Len()

	for i := 0; i < 50; i++ {
		code, _ := s.do(t, http.MethodPost, "/api/v1/sessions", `{"uuid":"`+uuid.NewString()+`","name":"Intruder"}`, false)
		require.Equal(t, http.StatusForbidden, code)
	}
	assert.Equal(t, before, s.store.Len(), "rejected joins must not create records")

	id := uuid.New()
	code, _ := s.do(t, http.MethodPost, "/api/v1/sessions", `{"uuid":"`+id.String()+`"}`, true)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/sessions/"+id.String(), "", false)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, 0, s.queue.submitted)
}

func TestAdminSetAndAdd(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPut, "/api/v1/admin/playtime/Ghosty", `{"seconds":-5}`, true)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(0), s.store.Get(s.ghost))

	code, body := s.do(t, http.MethodPost, "/api/v1/admin/playtime/"+s.ghost.String()+"/add", `{"seconds":120}`, true)
	require.Equal(t, http.StatusOK, code)
	var profile models.PlayerProfile
	require.NoError(t, json.Unmarshal(body, &profile))
	assert.Equal(t, int64(120), profile.Seconds)

	code, _ = s.do(t, http.MethodPut, "/api/v1/admin/playtime/Ghosty", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, code, "seconds is required")

	code, body = s.do(t, http.MethodPost, "/api/v1/admin/playtime/Ghosty/add", `{"seconds":0}`, true)
	require.Equal(t, http.StatusOK, code, "zero delta is a no-op, not an error")
	require.NoError(t, json.Unmarshal(body, &profile))
	assert.Equal(t, int64(120), profile.Seconds)

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/playtime/Ghosty/add", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, code, "seconds is required")

	code, _ = s.do(t, http.MethodPut, "/api/v1/admin/playtime/unknown-name", `{"seconds":5}`, true)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminSave(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/admin/save", "", true)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, 1, s.queue.submitted)

	s.queue.err = worker.ErrQueueFull
	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/save", "", true)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestAdminReload(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/admin/reload", "", false)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/reload", "", true)
	assert.Equal(t, http.StatusInternalServerError, code, "no loader installed")

	s.svc.SetReloader(func() (service.Options, error) {
		return service.Options{TopAmount: 1}, nil
	})
	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/reload", "", true)
	require.Equal(t, http.StatusOK, code)

	_, body := s.do(t, http.MethodGet, "/api/v1/top", "", false)
	var top models.TopResponse
	require.NoError(t, json.Unmarshal(body, &top))
	assert.Len(t, top.Data, 1)
}

func TestSuggestAndHealth(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/api/v1/players/suggest?q=gho", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "Ghosty")

	code, body = s.do(t, http.MethodGet, "/api/v1/health", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "healthy")
}
