package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/truco-backend/internal/engine"
	"github.com/DoyleJ11/truco-backend/internal/hub"
	"github.com/DoyleJ11/truco-backend/internal/room"
	"github.com/DoyleJ11/truco-backend/internal/store"
)

type fixture struct {
	handler http.Handler
	rooms   *room.Service
	mem     *store.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, nil)
	mem := store.NewMemory()
	rooms := room.NewService(h, mem, nil)
	return fixture{handler: SetupRoutes(h, rooms, mem, nil), rooms: rooms, mem: mem}
}

func (f fixture) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRooms_CreateJoinLeave(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/rooms", "", `{"mode":"1v1","points":15}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/rooms", "ana", `{"mode":"1v1","points":20}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/rooms", "ana", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/rooms", "ana", `{"name":"mesa","mode":"1v1","points":15}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[room.Room](t, rec)
	assert.Equal(t, "mesa", created.Name)
	assert.Equal(t, room.StatusOpen, created.Status)

	rec = f.do(t, http.MethodGet, "/rooms", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]room.Room](t, rec), 1)

	rec = f.do(t, http.MethodPost, "/rooms/join", "ana", `{"roomId":"`+created.ID+`","team":"B"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	joined := decode[joinResponse](t, rec)
	assert.Equal(t, engine.TeamB, joined.Team)

	rec = f.do(t, http.MethodPost, "/rooms/join", "beto", `{"roomId":"`+created.ID+`","team":"B"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	joined = decode[joinResponse](t, rec)
	assert.Equal(t, engine.TeamA, joined.Team)
	assert.Equal(t, room.StatusInProgress, joined.Room.Status)

	rec = f.do(t, http.MethodPost, "/rooms/join", "caro", `{"roomId":"`+created.ID+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/rooms/"+created.ID+"/leave", "ana", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/rooms/"+created.ID+"/leave", "caro", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/rooms/"+created.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[room.Room](t, rec)
	assert.Len(t, got.Members, 2)
	assert.NotEmpty(t, got.GameID)
}

func TestRooms_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/rooms/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/rooms/join", "ana", `{"code":"ZZZZZZ"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/rooms/join", "ana", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRanking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mem.RecordMatch(ctx, store.MatchResult{
		GameID: "g1", WinnerTeam: "A", ScoreA: 15, ScoreB: 9,
		Winners: []string{"ana"}, Losers: []string{"beto"}, FinishedAt: time.Now(),
	}))
	require.NoError(t, f.mem.RecordMatch(ctx, store.MatchResult{
		GameID: "g2", WinnerTeam: "B", ScoreA: 3, ScoreB: 15,
		Winners: []string{"caro"}, Losers: []string{"ana"}, FinishedAt: time.Now(),
	}))

	rec := f.do(t, http.MethodGet, "/ranking", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]store.Ranking](t, rec)
	require.Len(t, rows, 3)
	assert.Equal(t, "ana", rows[0].UserID)

	rec = f.do(t, http.MethodGet, "/ranking?limit=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Ranking](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/ranking?limit=zero", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/ranking?user=beto", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	beto := decode[store.Ranking](t, rec)
	assert.Equal(t, 1, beto.Losses)

	rec = f.do(t, http.MethodGet, "/ranking?user=nobody", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWS_UnknownRoom(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/ws?room=nope&user=ana", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
