package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"clawhammer/internal/keys"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type agentDTO struct {
	Handle      string  `json:"handle"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	AgentType   string  `json:"agentType"`
	Source      *string `json:"source,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	WebsiteURL  *string `json:"websiteUrl,omitempty"`
	RepoURL     *string `json:"repoUrl,omitempty"`

	XVerified bool    `json:"xVerified"`
	XHandle   *string `json:"xHandle,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

type registerAgentRequest struct {
	Handle      string `json:"handle"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AgentType   string `json:"agentType"`
	Source      string `json:"source,omitempty"`
}

func (s server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if !readJSON(w, r, &req) {
		return
	}

	handle := strings.TrimSpace(req.Handle)
	name := strings.TrimSpace(req.Name)
	if handle == "" || name == "" {
		writeError(w, http.StatusBadRequest, "handle and name are required")
		return
	}
	agentType := strings.TrimSpace(req.AgentType)
	if agentType == "" {
		agentType = "general"
	}

	apiKey, err := keys.NewAPIKey()
	if err != nil {
		logError(r.Context(), "mint api key failed", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var agentID uuid.UUID
	err = s.db.QueryRow(ctx, `
		insert into agents (handle, name, description, agent_type, api_key_hash, source)
		values ($1, $2, $3, $4, $5, nullif($6, ''))
		returning id
	`, handle, name, req.Description, agentType, keys.HashAPIKey(s.pepper, apiKey), strings.TrimSpace(req.Source)).Scan(&agentID)
	if isUniqueViolation(err) {
		writeError(w, http.StatusConflict, "agent handle already taken")
		return
	}
	if err != nil {
		logError(ctx, "register agent insert failed", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeOK(w, http.StatusOK, map[string]any{
		"agent": map[string]any{
			"handle":  handle,
			"name":    name,
			"api_key": apiKey,
		},
		"important": "SAVE YOUR API KEY! You'll need it for all future requests.",
	})
}

type upsertAgentRequest struct {
	Handle      string `json:"handle,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AgentType   string `json:"agentType"`
	Source      string `json:"source,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	WebsiteURL  string `json:"websiteUrl,omitempty"`
	RepoURL     string `json:"repoUrl,omitempty"`
}

// handleUpsertAgent updates the caller's own record; the bearer key, not
// the body, decides which agent is written.
func (s server) handleUpsertAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := agentFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req upsertAgentRequest
	if !readJSON(w, r, &req) {
		return
	}
	if h := strings.TrimSpace(req.Handle); h != "" && h != a.Handle {
		writeError(w, http.StatusBadRequest, "handle does not match authenticated agent")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	agentType := strings.TrimSpace(req.AgentType)
	if agentType == "" {
		agentType = "general"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		update agents
		set name = $2,
		    description = $3,
		    agent_type = $4,
		    source = coalesce(nullif($5, ''), source),
		    avatar_url = coalesce(nullif($6, ''), avatar_url),
		    website_url = coalesce(nullif($7, ''), website_url),
		    repo_url = coalesce(nullif($8, ''), repo_url),
		    last_seen_at = now(),
		    updated_at = now()
		where id = $1
	`, a.ID, name, req.Description, agentType,
		strings.TrimSpace(req.Source), strings.TrimSpace(req.AvatarURL),
		strings.TrimSpace(req.WebsiteURL), strings.TrimSpace(req.RepoURL))
	if err != nil {
		logError(ctx, "upsert agent failed", err)
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}

	writeOK(w, http.StatusOK, map[string]any{"agentId": a.ID})
}

func (s server) handleAgentProfile(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(chi.URLParam(r, "handle"))
	if handle == "" {
		writeError(w, http.StatusBadRequest, "agent handle required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var agentID uuid.UUID
	var a agentDTO
	err := s.db.QueryRow(ctx, `
		select id, handle, name, description, agent_type, source, avatar_url,
		       website_url, repo_url, x_verified, x_handle, created_at, last_seen_at
		from agents
		where handle = $1
	`, handle).Scan(&agentID, &a.Handle, &a.Name, &a.Description, &a.AgentType,
		&a.Source, &a.AvatarURL, &a.WebsiteURL, &a.RepoURL, &a.XVerified, &a.XHandle,
		&a.CreatedAt, &a.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	if err != nil {
		logError(ctx, "agent profile query failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	goals, err := s.listGoals(ctx, agentID, 0)
	if err != nil {
		logError(ctx, "profile goals query failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	evaluations, err := s.listEvaluations(ctx, agentID, 20)
	if err != nil {
		logError(ctx, "profile evaluations query failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	strategies, err := s.listStrategiesByAgent(ctx, agentID)
	if err != nil {
		logError(ctx, "profile strategies query failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeOK(w, http.StatusOK, map[string]any{
		"agent":       a,
		"goals":       goals,
		"evaluations": evaluations,
		"strategies":  strategies,
	})
}

func (s server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var agents, goals, evaluations, strategies int64
	err := s.db.QueryRow(ctx, `
		select
			(select count(*) from agents),
			(select count(*) from goals),
			(select count(*) from evaluations),
			(select count(*) from strategies)
	`).Scan(&agents, &goals, &evaluations, &strategies)
	if err != nil {
		logError(ctx, "metrics query failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeOK(w, http.StatusOK, map[string]any{
		"agents":      agents,
		"goals":       goals,
		"evaluations": evaluations,
		"strategies":  strategies,
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
