// Package middleware provides HTTP middleware for the dashboard server.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// SessionIDKey is the context key for the session ID.
	SessionIDKey ContextKey = "session_id"

	// SessionNewKey marks a session minted for the current request.
	SessionNewKey ContextKey = "session_new"

	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "dashboard_session"

	// SessionTokenHeader returns the session token to API clients, which can
	// send it back as a bearer token.
	SessionTokenHeader = "X-Session-Token"
)

// Claims represents the session token claims. The subject is the session ID.
type Claims struct {
	jwt.RegisteredClaims
}

// SessionOptions configures the Session middleware.
type SessionOptions struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

// IssueSessionToken signs a token for a session ID.
func IssueSessionToken(secret, sessionID string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSessionToken verifies a token and returns its claims.
func ParseSessionToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if err := ValidateSessionID(claims.Subject); err != nil {
		return nil, err
	}
	return claims, nil
}

// Session resolves the caller's session from the session cookie or a bearer
// token. Callers without a valid token start a new session. Tokens past half
// their lifetime are reissued so active sessions keep sliding forward.
func Session(opts SessionOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			claims, err := sessionClaims(r, opts.Secret)

			var sessionID string
			reissue := false
			switch {
			case err != nil:
				sessionID = uuid.Must(uuid.NewV7()).String()
				reissue = true
			default:
				sessionID = claims.Subject
				if claims.ExpiresAt != nil && claims.ExpiresAt.Sub(now) < opts.TTL/2 {
					reissue = true
				}
			}

			if reissue {
				token, err := IssueSessionToken(opts.Secret, sessionID, opts.TTL, now)
				if err != nil {
					http.Error(w, `{"error":"failed to issue session"}`, http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    token,
					Path:     "/",
					Expires:  now.Add(opts.TTL),
					MaxAge:   int(opts.TTL.Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
				w.Header().Set(SessionTokenHeader, token)
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			if err != nil {
				ctx = context.WithValue(ctx, SessionNewKey, true)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var errNoSessionToken = errors.New("no session token")

func sessionClaims(r *http.Request, secret string) (*Claims, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return ParseSessionToken(secret, parts[1])
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return ParseSessionToken(secret, cookie.Value)
	}
	return nil, errNoSessionToken
}

// GetSessionID gets the session ID from context.
func GetSessionID(ctx context.Context) string {
	if v, ok := ctx.Value(SessionIDKey).(string); ok {
		return v
	}
	return ""
}

// IsNewSession reports whether the request arrived without a valid session
// token and was given a new one.
func IsNewSession(ctx context.Context) bool {
	v, _ := ctx.Value(SessionNewKey).(bool)
	return v
}

// WithSessionID returns a context carrying a session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}
