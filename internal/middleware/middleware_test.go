package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/ledger-backend/internal/auth"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())
	_, _ = w.Write([]byte(uid))
}

func TestAuth(t *testing.T) {
	tm := auth.NewTokenManager("secret", "ledger", time.Minute)
	tok, _, err := tm.Issue("jwt-user")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		env    string
		header string
		status int
		user   string
	}{
		{"missing", "dev", "", http.StatusUnauthorized, ""},
		{"not bearer", "dev", "Basic abc", http.StatusUnauthorized, ""},
		{"dev token", "dev", "Bearer dev-u1", http.StatusOK, "u1"},
		{"dev token in prod", "prod", "Bearer dev-u1", http.StatusUnauthorized, ""},
		{"jwt", "prod", "Bearer " + tok, http.StatusOK, "jwt-user"},
		{"lowercase scheme", "prod", "bearer " + tok, http.StatusOK, "jwt-user"},
		{"garbage", "prod", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthMiddleware(tm, tc.env).Auth(http.HandlerFunc(echoUser))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("want %d, got %d", tc.status, rec.Code)
			}
			if tc.status == http.StatusOK && rec.Body.String() != tc.user {
				t.Fatalf("want user %q, got %q", tc.user, rec.Body.String())
			}
		})
	}
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	h := RateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes: %v", codes)
	}
}

func TestTokenBucketRefills(t *testing.T) {
	start := time.Now()
	tb := &tokenBucket{tokens: 0, last: start, rate: 10, burst: 10}
	if tb.allow(start) {
		t.Fatal("empty bucket allowed a request")
	}
	if !tb.allow(start.Add(150 * time.Millisecond)) {
		t.Fatal("bucket did not refill")
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get("X-Request-Id") != seen {
		t.Fatalf("request id not propagated: %q vs %q", seen, rec.Header().Get("X-Request-Id"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc" {
		t.Fatalf("incoming id not reused: %q", seen)
	}
}

func TestRecover(t *testing.T) {
	h := RequestID(Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-7")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "req-7") {
		t.Fatalf("request id missing from error body: %s", rec.Body.String())
	}
}

func TestRecoverReraisesAbort(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic(http.ErrAbortHandler) }))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("want ErrAbortHandler re-raised, got %v", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Fatal("abort panic was swallowed")
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedisLimiter(client, "test:", 1, 0)
	if l.prefix != "test" || l.window != time.Second {
		t.Fatalf("limiter not normalised: %+v", l)
	}
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("want pass-through when redis is down, got %d", rec.Code)
	}
}
