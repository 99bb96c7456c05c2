package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"clawhammer/internal/keys"
	"clawhammer/internal/xverify"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type server struct {
	db     *pgxpool.Pool
	pepper string

	verify      *xverify.Engine
	holdMessage string
}

// authAgent is the identity resolved from a bearer API key.
type authAgent struct {
	ID     uuid.UUID
	Handle string
}

type ctxKey string

const ctxAgent ctxKey = "agent"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logError(context.Background(), "writeJSON encode failed", err)
	}
}

// writeOK writes the success envelope; payload keys merge next to "ok".
func writeOK(w http.ResponseWriter, status int, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	body["ok"] = true
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// agentAuthMiddleware resolves the bearer API key to an agent. Store
// failures also yield 401: the authorization decision fails closed while
// the HTTP layer stays up.
func (s server) agentAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := bearerToken(r)
		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		// Minted keys always carry the product prefix; anything else
		// cannot match a stored hash, so skip the lookup.
		if !keys.HasAPIKeyPrefix(apiKey) {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		hash := keys.HashAPIKey(s.pepper, apiKey)

		var a authAgent
		err := s.db.QueryRow(r.Context(), `
			select id, handle
			from agents
			where api_key_hash = $1
		`, hash).Scan(&a.ID, &a.Handle)
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if err != nil {
			logError(r.Context(), "agent auth lookup failed", err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxAgent, a)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func agentFromCtx(ctx context.Context) (authAgent, bool) {
	a, ok := ctx.Value(ctxAgent).(authAgent)
	return a, ok
}

// touchAgent bumps last_seen on every authenticated ingestion call.
func (s server) touchAgent(ctx context.Context, agentID uuid.UUID) {
	if _, err := s.db.Exec(ctx, `
		update agents set last_seen_at = now(), updated_at = now() where id = $1
	`, agentID); err != nil {
		logError(ctx, "touch agent failed", err)
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
