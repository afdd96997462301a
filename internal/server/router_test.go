package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"icarus/internal/config"
	"icarus/internal/db"
	"icarus/internal/entries"
	"icarus/internal/store"
)

var edt = time.FixedZone("EDT", -4*60*60)

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	conn, err := store.Open("sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(conn))

	cfg := &config.Config{
		Env:                "test",
		JWTSecret:          "test-secret",
		JWTExpireHours:     72,
		CORSAllowedOrigins: []string{"*"},
		AuthRatePerMinute:  600,
		AuthRateBurst:      100,
	}
	st := store.New(conn, nil)
	clock := func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, edt) }
	svc := entries.NewService(st, edt, zap.NewNop(), entries.WithClock(clock))

	srv := httptest.NewServer(NewRouter(Deps{Config: cfg, Logger: zap.NewNop(), Store: st, Entries: svc}))
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv}
}

func (s *testServer) do(method, path string, body any) (int, map[string]any) {
	s.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rdr)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *testServer) signupAndLogin(name string) {
	s.t.Helper()
	code, _ := s.do(http.MethodPost, "/signup", map[string]string{
		"email": name + "@example.com", "username": name, "password": "secret123",
	})
	require.Equal(s.t, http.StatusCreated, code)

	code, body := s.do(http.MethodPost, "/login", map[string]string{
		"email": name + "@example.com", "password": "secret123",
	})
	require.Equal(s.t, http.StatusOK, code)
	require.Equal(s.t, true, body["success"])
	s.token = body["token"].(string)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodPost, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	s.signupAndLogin("ada")

	code, body := s.do(http.MethodPost, "/", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["status"])
	assert.Equal(t, "ada", body["user"])

	s.token = ""
	code, body = s.do(http.MethodPost, "/signup", map[string]string{
		"email": "ada@example.com", "username": "ada2", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["success"])

	code, body = s.do(http.MethodPost, "/login", map[string]string{"email": "ada@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])

	code, _ = s.do(http.MethodPost, "/signup", map[string]string{"email": "x@example.com", "username": "x", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLoginSetsCookie(t *testing.T) {
	s := newTestServer(t)
	s.signupAndLogin("ada")

	body := strings.NewReader(`{"email":"ada@example.com","password":"secret123"}`)
	resp, err := http.Post(s.srv.URL+"/login", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/user/getProteinGoal", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestGoalRoundTrip(t *testing.T) {
	s := newTestServer(t)
	s.signupAndLogin("ada")

	code, body := s.do(http.MethodGet, "/user/getProteinGoal", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0", body["proteinGoal"])

	code, body = s.do(http.MethodPost, "/user/updateProteinGoal", map[string]any{"proteinGoal": "150"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Protein goal updated successfully!", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "150", user["proteinGoal"])
	assert.NotContains(t, user, "passwordHash")

	code, body = s.do(http.MethodGet, "/user/getProteinGoal", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "150", body["proteinGoal"])

	code, body = s.do(http.MethodPost, "/user/updateProteinGoal", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "You must provide a protein goal.", body["message"])

	code, _ = s.do(http.MethodPost, "/user/updateProteinGoal", map[string]any{"proteinGoal": 180})
	assert.Equal(t, http.StatusOK, code)
}

func TestEntriesLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.signupAndLogin("ada")

	add := func(meal string, amount any, at string) map[string]any {
		code, body := s.do(http.MethodPost, "/user/addEntry", map[string]any{
			"mealName": meal, "proteinAmount": amount, "time": at,
		})
		require.Equal(t, http.StatusCreated, code, body)
		return body
	}
	eggs := add("Eggs", 20, "2026-10-16T08:00:00-04:00")
	add("Chicken", "40", "2026-10-16T19:00:00-04:00")
	add("Old", 99, "2026-10-15T12:00:00-04:00")
	assert.NotEmpty(t, eggs["_id"])
	assert.Equal(t, "Eggs", eggs["mealName"])
	assert.Equal(t, 20.0, eggs["proteinAmount"])

	code, body := s.do(http.MethodGet, "/user/getTodaysEntries", nil)
	require.Equal(t, http.StatusOK, code)
	today := body["todaysEntries"].([]any)
	require.Len(t, today, 2)
	assert.Equal(t, "Eggs", today[0].(map[string]any)["mealName"])
	assert.Equal(t, "Chicken", today[1].(map[string]any)["mealName"])

	code, body = s.do(http.MethodGet, "/user/sumTodaysEntries", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 60.0, body["totalProteinToday"])

	code, body = s.do(http.MethodGet, "/user/sumTodaysEntries?time=2026-10-15", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 99.0, body["totalProteinToday"])

	code, body = s.do(http.MethodGet, "/user/getAllPastEntries", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["pastEntries"].([]any), 3)

	id := eggs["_id"].(string)
	code, body = s.do(http.MethodDelete, "/user/deleteEntry/"+id, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Entry deleted successfully.", body["message"])

	code, body = s.do(http.MethodDelete, "/user/deleteEntry/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Entry not found.", body["message"])

	code, body = s.do(http.MethodGet, "/user/sumTodaysEntries", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 40.0, body["totalProteinToday"])
}

func TestAddEntryValidation(t *testing.T) {
	s := newTestServer(t)
	s.signupAndLogin("ada")

	for _, body := range []map[string]any{
		{"proteinAmount": 10},
		{"mealName": "Tofu"},
		{"mealName": "Tofu", "proteinAmount": "lots"},
		{"mealName": "Tofu", "proteinAmount": 10, "time": "tomorrow"},
	} {
		code, resp := s.do(http.MethodPost, "/user/addEntry", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.NotEmpty(t, resp["message"])
	}

	code, body := s.do(http.MethodGet, "/user/getAllPastEntries", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["pastEntries"])

	code, _ = s.do(http.MethodGet, "/user/getTodaysEntries?time=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEntriesAreScopedToUser(t *testing.T) {
	s := newTestServer(t)
	s.signupAndLogin("ada")
	code, eggs := s.do(http.MethodPost, "/user/addEntry", map[string]any{"mealName": "Eggs", "proteinAmount": 20})
	require.Equal(t, http.StatusCreated, code)

	s.signupAndLogin("bob")
	code, body := s.do(http.MethodGet, "/user/getTodaysEntries", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["todaysEntries"])

	code, _ = s.do(http.MethodDelete, "/user/deleteEntry/"+eggs["_id"].(string), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestImportAndDailyTotals(t *testing.T) {
	s := newTestServer(t)
	s.signupAndLogin("ada")

	code, body := s.do(http.MethodPost, "/user/importEntries", map[string]any{
		"entries": []map[string]any{
			{"mealName": "Eggs", "proteinAmount": 20, "time": "2026-10-14"},
			{"mealName": "Steak", "proteinAmount": "50", "time": "2026-10-16"},
		},
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, 2.0, body["imported"])

	code, _ = s.do(http.MethodPost, "/user/importEntries", map[string]any{
		"entries": []map[string]any{
			{"mealName": "Tuna", "proteinAmount": 25},
			{"mealName": "", "proteinAmount": 10},
		},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(http.MethodGet, "/user/dailyTotals?days=3", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2026-10-16", body["referenceDate"])
	assert.Equal(t, "0", body["proteinGoal"])
	days := body["days"].([]any)
	require.Len(t, days, 3)
	assert.Equal(t, "2026-10-14", days[0].(map[string]any)["date"])
	assert.Equal(t, 20.0, days[0].(map[string]any)["totalProtein"])
	assert.Equal(t, 0.0, days[1].(map[string]any)["totalProtein"])
	assert.Equal(t, 50.0, days[2].(map[string]any)["totalProtein"])

	code, _ = s.do(http.MethodGet, "/user/dailyTotals?days=90", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(http.MethodGet, "/user/dailyTotals?days=0", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, body = s.do(http.MethodGet, "/user/dailyTotals", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["days"], entries.DefaultHistoryDays)
	code, _ = s.do(http.MethodGet, "/user/dailyTotals?days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Post(s.srv.URL+"/logout", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			found = true
			assert.Empty(t, c.Value)
			assert.True(t, c.MaxAge < 0)
		}
	}
	assert.True(t, found)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/healthz", nil)

	resp, err := http.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "http_requests_total")
}
