package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codelafda/codelafda/internal/cache"
	"github.com/codelafda/codelafda/internal/database"
	progDb "github.com/codelafda/codelafda/internal/database/progression/database"
	"github.com/codelafda/codelafda/internal/database/progression/model"
)

func newTestAPI(t *testing.T) *http.ServeMux {
	t.Helper()

	ctx := context.Background()
	sdb, err := database.NewFromEnv(ctx, &database.Config{
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = sdb.Close(ctx) })

	lru, err := cache.NewLRU(16)
	if err != nil {
		t.Fatalf("build cache: %v", err)
	}

	mux := http.NewServeMux()
	NewAPI(progDb.New(sdb, lru)).Register(mux)
	return mux
}

func postResult(t *testing.T, mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/match-result", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestMatchResultRoundTrip(t *testing.T) {
	t.Parallel()

	mux := newTestAPI(t)

	rec := postResult(t, mux, `{
		"playerId": "p1",
		"username": "alice",
		"isWin": true,
		"role": "HACKER",
		"testCasesPassed": 3,
		"totalTestCases": 3,
		"timeTakenSeconds": 90
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var xp model.XPResult
	if err := json.Unmarshal(rec.Body.Bytes(), &xp); err != nil {
		t.Fatalf("decode xp result: %v", err)
	}
	// win 100 + accuracy 50 + speed 30
	if xp.XPGained != 180 {
		t.Errorf("expected 180 xp gained, got %d", xp.XPGained)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/profile?player=p1", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats model.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.XP != 180 || stats.Wins != 1 || stats.Username != "alice" {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestMatchResultValidation(t *testing.T) {
	t.Parallel()

	mux := newTestAPI(t)

	if rec := postResult(t, mux, `{"role": "HACKER"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing playerId must 400, got %d", rec.Code)
	}
	if rec := postResult(t, mux, `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body must 400, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/match-result", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET must 405, got %d", rec.Code)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	t.Parallel()

	mux := newTestAPI(t)

	for _, player := range []string{"p1", "p2"} {
		rec := postResult(t, mux, `{"playerId": "`+player+`", "role": "IMPOSTOR"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("submit for %s: %d", player, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("limit must cap entries, got %d", len(entries))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=zero", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit must 400, got %d", rec.Code)
	}
}
