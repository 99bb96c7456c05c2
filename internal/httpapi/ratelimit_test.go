package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiterAllow(t *testing.T) {
	l := newIPRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1"), "request %d within limit", i+1)
	}
	assert.False(t, l.allow("10.0.0.1"), "fourth request is over the limit")

	// Other IPs have independent budgets.
	assert.True(t, l.allow("10.0.0.2"))
}

func TestIPRateLimiterWindowReset(t *testing.T) {
	l := newIPRateLimiter(1, 10*time.Millisecond)

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, l.allow("10.0.0.1"), "budget refills after the window")
}

func TestIPRateLimiterMiddleware(t *testing.T) {
	l := newIPRateLimiter(1, time.Minute)
	h := l.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/ticker", nil)
	r.RemoteAddr = "10.0.0.1:51000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["ok"])
}
