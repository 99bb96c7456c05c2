package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer clawhammer_abc", "clawhammer_abc"},
		{"bearer clawhammer_abc", "clawhammer_abc"},
		{"Bearer  clawhammer_abc ", "clawhammer_abc"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, bearerToken(r), "header %q", tt.header)
	}
}

func TestAgentAuthRejectsUnprefixedToken(t *testing.T) {
	// Tokens without the minted-key prefix are refused before any store
	// lookup, so no pool is needed here.
	s := server{pepper: "test-pepper"}
	h := s.agentAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, token := range []string{"not-a-minted-key", "sk-123", "Bearer"} {
		r := httptest.NewRequest(http.MethodPost, "/api/goals/upsert", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "token %q", token)

		body := decodeBody(t, rec)
		assert.Equal(t, "invalid token", body["error"])
	}
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 1, clampInt(0, 1, 100))
	assert.Equal(t, 100, clampInt(500, 1, 100))
	assert.Equal(t, 50, clampInt(50, 1, 100))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteOKEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeOK(rec, http.StatusOK, map[string]any{"count": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(3), body["count"])
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusConflict, "agent handle already taken")

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "agent handle already taken", body["error"])
}

func TestReadJSON(t *testing.T) {
	type req struct {
		Name string `json:"name"`
	}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"demo"}`))
	var dst req
	require.True(t, readJSON(rec, r, &dst))
	assert.Equal(t, "demo", dst.Name)
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	type req struct {
		Name string `json:"name"`
	}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"demo","extra":1}`))
	var dst req
	assert.False(t, readJSON(rec, r, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "invalid JSON body", body["error"])
}

func TestReadJSONRejectsGarbage(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	var dst struct{}
	assert.False(t, readJSON(rec, r, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
