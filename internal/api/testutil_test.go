package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/victorivanov/huddle/internal/auth"
	"github.com/victorivanov/huddle/internal/database/memstore"
	"github.com/victorivanov/huddle/internal/gateway"
	"github.com/victorivanov/huddle/internal/models"
	"github.com/victorivanov/huddle/internal/msgid"
	redisclient "github.com/victorivanov/huddle/internal/redis"
	"github.com/victorivanov/huddle/internal/scheduler"
	"github.com/victorivanov/huddle/internal/service"
)

const testSecret = "test-secret-key-for-api-tests"

const (
	owner    int64 = 1
	member   int64 = 2
	outsider int64 = 3
)

var (
	teamChannel = models.Channel(100)
	teamDM      = models.DM(200)
	testEpoch   = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
)

func newTestContext(method, path string, body any) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func setAuthUser(c echo.Context, userID int64) {
	c.Set("user_id", userID)
}

func newTestRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := redisclient.NewClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("creating test redis client: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// testServer is a full router over the in-memory store with a manual clock.
type testServer struct {
	e      *echo.Echo
	store  *memstore.Store
	clock  *scheduler.ManualClock
	tokens *auth.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	store.AddUser(owner, "olga", false)
	store.AddUser(member, "mika", false)
	store.AddUser(outsider, "otto", false)
	store.AddContainer(teamChannel, "team", owner)
	store.Join(teamChannel, member)
	store.AddContainer(teamDM, "mika, olga", owner)
	store.Join(teamDM, member)

	clock := scheduler.NewManualClock(testEpoch)
	sched := scheduler.New(store.Jobs(), clock, time.Second)
	t.Cleanup(sched.Stop)

	tokens := auth.NewTokenService(testSecret)
	gw := gateway.NewManager(tokens)
	notifier := service.NewNotifier(store.Notifications(), store.Membership(), gw, clock)
	messages := service.NewMessageService(
		store.Messages(),
		store.Reactions(),
		store.Notifications(),
		store.Membership(),
		notifier,
		msgid.NewSeeded(1),
		clock,
		gw,
	)
	deferred := service.NewDeferredService(messages, store.Jobs(), store.Standups(), sched)
	standups := service.NewStandupService(store.Standups(), store.Membership(), store.Jobs(), messages, sched)

	e := echo.New()
	SetupRouter(e, &Dependencies{
		Messages:     NewMessageHandler(messages, deferred),
		Standups:     NewStandupHandler(standups),
		Gateway:      gw,
		TokenService: tokens,
		Redis:        newTestRedis(t),
		Store:        store,
		RateLimit:    1000,
	})
	return &testServer{e: e, store: store, clock: clock, tokens: tokens}
}

// do sends a request as userID (0 for anonymous) and returns the recorder.
func (s *testServer) do(t *testing.T, userID int64, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != 0 {
		token, err := s.tokens.GenerateAccessToken(userID)
		if err != nil {
			t.Fatalf("issuing token: %v", err)
		}
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	resp := decode[ErrorResponse](t, rec)
	if resp.Error.Code != code {
		t.Fatalf("expected error code %q, got %q", code, resp.Error.Code)
	}
}

// sendMessage posts body to the team channel as userID and returns the new id.
func (s *testServer) sendMessage(t *testing.T, userID int64, body string) int64 {
	t.Helper()
	rec := s.do(t, userID, http.MethodPost, "/api/v1/channels/100/messages", map[string]string{"body": body})
	expectStatus(t, rec, http.StatusCreated)
	resp := decode[messageIDResponse](t, rec)
	return resp.MessageID
}

func messagePath(id int64, suffix string) string {
	return "/api/v1/messages/" + strconv.FormatInt(id, 10) + suffix
}
