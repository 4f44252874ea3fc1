package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"loandesk/internal/domain/user"
)

var (
	callerA = user.Actor{UserID: strings.Repeat("b", 32), Role: user.RoleUser}
	callerB = user.Actor{UserID: strings.Repeat("c", 32), Role: user.RoleUser}
)

// asCaller stands in for JWTAuth.
func asCaller(a user.Actor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if a.UserID != "" {
				SetActor(c, a)
			}
			return next(c)
		}
	}
}

func setupEcho(rdb *redis.Client, caller user.Actor, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(asCaller(caller), Idempotency(rdb, ttl))
	e.POST("/loans", handler)
	e.GET("/loans", handler)
	return e
}

func doReq(t *testing.T, e *echo.Echo, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func validHeaders() map[string]string {
	return map[string]string{
		HeaderRequestID: strings.Repeat("a", 32),
		HeaderRequestAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// countingHandler answers 201 with a body that changes per call.
func countingHandler(n *int32) echo.HandlerFunc {
	return func(c echo.Context) error {
		v := atomic.AddInt32(n, 1)
		return c.JSON(http.StatusCreated, map[string]any{"call": v})
	}
}

func Test_BypassOnGET_NoHeadersRequired(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	e := setupEcho(rdb, callerA, 30*time.Second, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "get ok"})
	})
	if rec := doReq(t, e, http.MethodGet, "/loans", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func Test_ValidationFailures(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var n int32
	e := setupEcho(rdb, callerA, 30*time.Second, countingHandler(&n))

	tests := []struct {
		name   string
		mutate func(h map[string]string)
	}{
		{"missing request id", func(h map[string]string) { delete(h, HeaderRequestID) }},
		{"invalid request id", func(h map[string]string) { h[HeaderRequestID] = "NOT-VALID" }},
		{"invalid request at", func(h map[string]string) { h[HeaderRequestAt] = "not-a-time" }},
		{"skewed request at", func(h map[string]string) {
			h[HeaderRequestAt] = time.Now().UTC().Add(-maxClockSkew - time.Minute).Format(time.RFC3339)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeaders()
			tt.mutate(h)
			if rec := doReq(t, e, http.MethodPost, "/loans", `{"x":1}`, h); rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d", rec.Code)
			}
		})
	}
	if n != 0 {
		t.Fatalf("handler ran %d times on rejected requests", n)
	}
}

func Test_MissingCaller_Unauthorized(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var n int32
	e := setupEcho(rdb, user.Actor{}, time.Minute, countingHandler(&n))
	if rec := doReq(t, e, http.MethodPost, "/loans", `{}`, validHeaders()); rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var n int32
	e := setupEcho(rdb, callerA, 2*time.Minute, countingHandler(&n))

	h := validHeaders()
	rec1 := doReq(t, e, http.MethodPost, "/loans", `{"amount":"5000.00"}`, h)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first request => want 201, got %d, body: %s", rec1.Code, rec1.Body.String())
	}
	rec2 := doReq(t, e, http.MethodPost, "/loans", `{"amount":"5000.00"}`, h)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay => want 201, got %d", rec2.Code)
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
	if rec2.Header().Get("Idempotent-Replay") != "true" {
		t.Fatal("replay not flagged")
	}
	if n != 1 {
		t.Fatalf("handler ran %d times, want 1", n)
	}
}

func Test_SameRequestID_DifferentCallers_Independent(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var n int32
	h := validHeaders()

	for _, caller := range []user.Actor{callerA, callerB} {
		e := setupEcho(rdb, caller, time.Minute, countingHandler(&n))
		if rec := doReq(t, e, http.MethodPost, "/loans", `{}`, h); rec.Code != http.StatusCreated {
			t.Fatalf("caller %s: want 201, got %d", caller.UserID, rec.Code)
		}
	}
	if n != 2 {
		t.Fatalf("handler ran %d times, want 2", n)
	}
}

func Test_ServerError_ReleasesKey(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var n int32
	e := setupEcho(rdb, callerA, time.Minute, func(c echo.Context) error {
		if atomic.AddInt32(&n, 1) == 1 {
			return echo.NewHTTPError(http.StatusInternalServerError, "transient")
		}
		return c.JSON(http.StatusCreated, map[string]bool{"ok": true})
	})

	h := validHeaders()
	if rec := doReq(t, e, http.MethodPost, "/loans", `{}`, h); rec.Code != http.StatusInternalServerError {
		t.Fatalf("first => want 500, got %d", rec.Code)
	}
	if rec := doReq(t, e, http.MethodPost, "/loans", `{}`, h); rec.Code != http.StatusCreated {
		t.Fatalf("retry => want 201, got %d", rec.Code)
	}
}

func Test_ClientError_IsReplayed(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var n int32
	e := setupEcho(rdb, callerA, time.Minute, func(c echo.Context) error {
		atomic.AddInt32(&n, 1)
		return c.JSON(http.StatusConflict, map[string]string{"error": "already decided"})
	})

	h := validHeaders()
	doReq(t, e, http.MethodPost, "/loans", `{}`, h)
	rec := doReq(t, e, http.MethodPost, "/loans", `{}`, h)
	if rec.Code != http.StatusConflict || n != 1 {
		t.Fatalf("want replayed 409 after one call, got %d after %d", rec.Code, n)
	}
}

func Test_Conflict_When_InProgress(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var n int32
	e := setupEcho(rdb, callerA, 2*time.Minute, countingHandler(&n))

	body := []byte(`{"x":1}`)
	key := buildKey(http.MethodPost, "/loans", callerA.UserID, strings.Repeat("a", 32))
	entry := idempEntry{InProgress: true, BodySHA256: bodyHash(body), RequestID: strings.Repeat("a", 32), CreatedAt: nowUTC()}
	if ok, err := provisionalSet(context.Background(), rdb, key, entry); err != nil || !ok {
		t.Fatalf("seed provisional failed, ok=%v err=%v", ok, err)
	}

	rec := doReq(t, e, http.MethodPost, "/loans", string(body), validHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-progress => want 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func Test_Conflict_When_SameReqID_DifferentBody(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var n int32
	e := setupEcho(rdb, callerA, 2*time.Minute, countingHandler(&n))

	h := validHeaders()
	if rec := doReq(t, e, http.MethodPost, "/loans", `{"x":1}`, h); rec.Code != http.StatusCreated {
		t.Fatalf("first => want 201, got %d", rec.Code)
	}
	rec := doReq(t, e, http.MethodPost, "/loans", `{"x":2}`, h)
	if rec.Code != http.StatusConflict {
		t.Fatalf("different body same reqID => want 409, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("different body")) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func Test_StoreUnavailable_Returns503(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	var n int32
	e := setupEcho(rdb, callerA, time.Minute, countingHandler(&n))

	rec := doReq(t, e, http.MethodPost, "/loans", `{}`, validHeaders())
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store unavailable => want 503, got %d", rec.Code)
	}
	if n != 0 {
		t.Fatal("handler must not run without the store")
	}
}
