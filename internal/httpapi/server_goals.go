package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type goalDTO struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"externalId"`
	Headline   string    `json:"headline"`
	Title      string    `json:"title"`
	Description string   `json:"description"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (s server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	a, ok := agentFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	goals, err := s.listGoals(ctx, a.ID, 0)
	if err != nil {
		logError(ctx, "list goals failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"goals": goals})
}

func (s server) listGoals(ctx context.Context, agentID uuid.UUID, limit int) ([]goalDTO, error) {
	q := `
		select id, external_id, headline, title, description, is_active, created_at, updated_at
		from goals
		where agent_id = $1
		order by created_at desc
	`
	args := []any{agentID}
	if limit > 0 {
		q += ` limit $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := []goalDTO{}
	for rows.Next() {
		var g goalDTO
		if err := rows.Scan(&g.ID, &g.ExternalID, &g.Headline, &g.Title, &g.Description,
			&g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

type upsertGoalRequest struct {
	AgentHandle string `json:"agentHandle,omitempty"`
	ExternalID  string `json:"externalId"`
	Headline    string `json:"headline"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

// handleUpsertGoal is idempotent on (agent, externalId): a second call with
// the same externalId updates the row in place.
func (s server) handleUpsertGoal(w http.ResponseWriter, r *http.Request) {
	a, ok := agentFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req upsertGoalRequest
	if !readJSON(w, r, &req) {
		return
	}
	if h := strings.TrimSpace(req.AgentHandle); h != "" && h != a.Handle {
		writeError(w, http.StatusBadRequest, "agentHandle does not match authenticated agent")
		return
	}
	externalID := strings.TrimSpace(req.ExternalID)
	title := strings.TrimSpace(req.Title)
	if externalID == "" || title == "" {
		writeError(w, http.StatusBadRequest, "externalId and title are required")
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	headline := normalizeHeadline(req.Headline, title)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var goalID uuid.UUID
	err := s.db.QueryRow(ctx, `
		insert into goals (agent_id, external_id, headline, title, description, is_active)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (agent_id, external_id) do update
		set headline = excluded.headline,
		    title = excluded.title,
		    description = excluded.description,
		    is_active = excluded.is_active,
		    updated_at = now()
		returning id
	`, a.ID, externalID, headline, title, req.Description, isActive).Scan(&goalID)
	if err != nil {
		logError(ctx, "upsert goal failed", err)
		writeError(w, http.StatusInternalServerError, "upsert failed")
		return
	}

	s.touchAgent(ctx, a.ID)
	writeOK(w, http.StatusOK, map[string]any{"goalId": goalID})
}

// resolveGoalID maps a caller-supplied external goal id onto the agent's
// goal row, if any.
func (s server) resolveGoalID(ctx context.Context, agentID uuid.UUID, externalID string) (*uuid.UUID, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		select id from goals where agent_id = $1 and external_id = $2
	`, agentID, externalID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}
