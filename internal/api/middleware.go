/**
 * @description
 * This file contains custom middleware for the HTTP router. Middlewares are used
 * to process requests before they reach the final handler, perfect for tasks like
 * authentication, rate limiting, or adding context to a request.
 *
 * Authentication is optional by deployment: with AUTH_TOKEN_SECRET set, a
 * Bearer token signed with HMAC is required and its `sub` claim selects the
 * user. Without a secret the service runs in single-user mode and every request
 * acts as the configured default user.
 *
 * @dependencies
 * - context, net/http, strconv, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: Token parsing and validation.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDContextKey is a custom type for the context key to avoid collisions.
type UserIDContextKey string

const userIDKey UserIDContextKey = "userID"

// UserFromContext extracts the authenticated user id set by AuthMiddleware.
func UserFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// AuthMiddleware resolves the acting user for each request. When secret is
// empty the middleware always injects defaultUserID. When a secret is
// configured, a missing Authorization header falls back to the default user but
// a present, invalid token is rejected.
func AuthMiddleware(secret string, defaultUserID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if secret == "" || authHeader == "" {
				ctx := context.WithValue(r.Context(), userIDKey, defaultUserID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				http.Error(w, "User ID not found in token", http.StatusUnauthorized)
				return
			}
			userID, err := strconv.ParseInt(sub, 10, 64)
			if err != nil || userID <= 0 {
				http.Error(w, "Invalid user ID in token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteRateLimiter is the contract for the distributed limiter applied to
// mutating requests.
type WriteRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// WriteRateLimitMiddleware throttles POST/PUT/DELETE requests per user. A nil
// limiter or a limiter error fails open so a Redis outage never blocks writes.
func WriteRateLimitMiddleware(limiter WriteRateLimiter, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || perMinute <= 0 || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			userID, _ := UserFromContext(r.Context())
			subject := strconv.FormatInt(userID, 10)
			count, retryAfter, err := limiter.ConsumeRateLimit(r.Context(), "write", subject, perMinute, time.Minute)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if count > perMinute {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
