package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func runAuthRequest(t *testing.T, secret string, defaultUserID int64, authHeader string) (int, int64) {
	t.Helper()
	var gotUser int64
	var called bool
	handler := AuthMiddleware(secret, defaultUserID)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotUser, _ = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		return rec.Code, 0
	}
	return rec.Code, gotUser
}

func TestAuthMiddleware_NoSecretUsesDefaultUser(t *testing.T) {
	code, user := runAuthRequest(t, "", 7, "")
	if code != http.StatusOK || user != 7 {
		t.Fatalf("expected default user 7, got code=%d user=%d", code, user)
	}
}

func TestAuthMiddleware_MissingHeaderFallsBack(t *testing.T) {
	code, user := runAuthRequest(t, "secret", 7, "")
	if code != http.StatusOK || user != 7 {
		t.Fatalf("expected fallback to default user, got code=%d user=%d", code, user)
	}
}

func TestAuthMiddleware_ValidTokenSelectsUser(t *testing.T) {
	token := signToken(t, "secret", "42")
	code, user := runAuthRequest(t, "secret", 7, "Bearer "+token)
	if code != http.StatusOK || user != 42 {
		t.Fatalf("expected user 42 from token, got code=%d user=%d", code, user)
	}
}

func TestAuthMiddleware_RejectsBadSignature(t *testing.T) {
	token := signToken(t, "wrong-secret", "42")
	code, _ := runAuthRequest(t, "secret", 7, "Bearer "+token)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", code)
	}
}

func TestAuthMiddleware_RejectsMalformedHeader(t *testing.T) {
	code, _ := runAuthRequest(t, "secret", 7, "Token abc")
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed header, got %d", code)
	}
}

func TestAuthMiddleware_RejectsNonNumericSubject(t *testing.T) {
	token := signToken(t, "secret", "user_abc")
	code, _ := runAuthRequest(t, "secret", 7, "Bearer "+token)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-numeric subject, got %d", code)
	}
}

// limiterStub returns a fixed count so tests can pin the request on either
// side of the limit.
type limiterStub struct {
	count      int
	retryAfter int
	err        error
}

func (l *limiterStub) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	return l.count, l.retryAfter, l.err
}

func runRateLimitRequest(t *testing.T, limiter WriteRateLimiter, perMinute int, method string) *httptest.ResponseRecorder {
	t.Helper()
	handler := WriteRateLimitMiddleware(limiter, perMinute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
	return rec
}

func TestWriteRateLimit_OverLimitRejected(t *testing.T) {
	rec := runRateLimitRequest(t, &limiterStub{count: 11, retryAfter: 30}, 10, http.MethodPost)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected Retry-After 30, got %q", got)
	}
}

func TestWriteRateLimit_UnderLimitPasses(t *testing.T) {
	rec := runRateLimitRequest(t, &limiterStub{count: 3, retryAfter: 30}, 10, http.MethodPost)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected request under the limit to pass, got %d", rec.Code)
	}
}

func TestWriteRateLimit_FailsOpenOnLimiterError(t *testing.T) {
	rec := runRateLimitRequest(t, &limiterStub{err: errors.New("redis: connection refused")}, 10, http.MethodPost)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected limiter error to fail open, got %d", rec.Code)
	}
}

func TestWriteRateLimit_SkipsReads(t *testing.T) {
	rec := runRateLimitRequest(t, &limiterStub{count: 100, retryAfter: 30}, 10, http.MethodGet)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected GET to bypass the limiter, got %d", rec.Code)
	}
}
