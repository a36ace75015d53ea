package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/covid-dashboard/pkg/logger"
)

func TestLogging_CorrelationID(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Use(Logging(logger.NewNop()))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Correlation-ID", "abc-123")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-ID"))
		assert.Equal(t, "abc-123", seen)
	})

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
		assert.Equal(t, rec.Header().Get("X-Correlation-ID"), seen)
	})
}

func TestRateLimit_PerSession(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := RateLimit(2, time.Minute)(ok)

	call := func(session string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithSessionID(req.Context(), session))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusTooManyRequests, call("a"))
	assert.Equal(t, http.StatusOK, call("b"), "sessions have separate budgets")
}

func TestRateLimit_CookielessClientsShareIPBudget(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := Session(testOpts)(RateLimit(2, time.Minute)(ok))

	post := func(remoteAddr, token string) int {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.RemoteAddr = remoteAddr
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	codes := map[int]int{}
	for i := 0; i < 20; i++ {
		codes[post("10.0.0.1:5000", "")]++
	}
	assert.Equal(t, map[int]int{http.StatusOK: 2, http.StatusTooManyRequests: 18}, codes)

	assert.Equal(t, http.StatusOK, post("10.0.0.2:5000", ""), "other addresses have their own budget")

	token, err := IssueSessionToken(testSecret, "0190a5b4-7c3e-7d2a-9b1f-2c3d4e5f6a7b", time.Hour, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, post("10.0.0.1:5000", token), "an established session is limited on its own")
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
}

func TestValidateQuestion(t *testing.T) {
	assert.NoError(t, ValidateQuestion(""))
	assert.NoError(t, ValidateQuestion("How many cases in France?"))
	assert.Error(t, ValidateQuestion(strings.Repeat("a", maxQuestionBytes+1)))
	assert.Error(t, ValidateQuestion("bad \xff utf8"))
}

func TestValidateCountries(t *testing.T) {
	assert.NoError(t, ValidateCountries(nil))
	assert.NoError(t, ValidateCountries([]string{"United States", "India"}))
	assert.Error(t, ValidateCountries(make([]string, maxCountries+1)))
	assert.Error(t, ValidateCountries([]string{strings.Repeat("x", maxCountryLength+1)}))
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID("0190b8f6-6d8b-7c3a-9a4e-3b1f2c5d6e7f"))
	assert.Error(t, ValidateSessionID("admin"))
}
