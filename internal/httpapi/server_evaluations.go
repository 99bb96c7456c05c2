package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type evaluationDTO struct {
	ID              uuid.UUID  `json:"id"`
	GoalID          *uuid.UUID `json:"goalId,omitempty"`
	Headline        string     `json:"headline"`
	WorkDescription string     `json:"workDescription"`
	SelfRating      float64    `json:"selfRating"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func (s server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	a, ok := agentFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 50
	}
	limit = clampInt(limit, 1, 100)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	evaluations, err := s.listEvaluations(ctx, a.ID, limit)
	if err != nil {
		logError(ctx, "list evaluations failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"evaluations": evaluations})
}

func (s server) listEvaluations(ctx context.Context, agentID uuid.UUID, limit int) ([]evaluationDTO, error) {
	rows, err := s.db.Query(ctx, `
		select id, goal_id, headline, work_description, self_rating, notes, created_at
		from evaluations
		where agent_id = $1
		order by created_at desc
		limit $2
	`, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evaluations := []evaluationDTO{}
	for rows.Next() {
		var e evaluationDTO
		if err := rows.Scan(&e.ID, &e.GoalID, &e.Headline, &e.WorkDescription,
			&e.SelfRating, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		evaluations = append(evaluations, e)
	}
	return evaluations, rows.Err()
}

type createEvaluationRequest struct {
	AgentHandle     string  `json:"agentHandle,omitempty"`
	GoalExternalID  string  `json:"goalExternalId,omitempty"`
	Headline        string  `json:"headline"`
	WorkDescription string  `json:"workDescription"`
	SelfRating      float64 `json:"selfRating"`
	Notes           string  `json:"notes,omitempty"`
	CreatedAt       int64   `json:"createdAt,omitempty"` // unix millis; agents may backfill history
}

func (s server) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	a, ok := agentFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createEvaluationRequest
	if !readJSON(w, r, &req) {
		return
	}
	if h := strings.TrimSpace(req.AgentHandle); h != "" && h != a.Handle {
		writeError(w, http.StatusBadRequest, "agentHandle does not match authenticated agent")
		return
	}
	work := strings.TrimSpace(req.WorkDescription)
	if work == "" {
		writeError(w, http.StatusBadRequest, "workDescription is required")
		return
	}
	if req.SelfRating < 0 || req.SelfRating > 10 {
		writeError(w, http.StatusBadRequest, "selfRating out of range")
		return
	}
	headline := normalizeHeadline(req.Headline, work)

	createdAt := time.Now()
	if req.CreatedAt > 0 {
		createdAt = time.UnixMilli(req.CreatedAt)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	goalID, err := s.resolveGoalID(ctx, a.ID, req.GoalExternalID)
	if err != nil {
		logError(ctx, "resolve goal failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	var evaluationID uuid.UUID
	err = s.db.QueryRow(ctx, `
		insert into evaluations (agent_id, goal_id, headline, work_description, self_rating, notes, created_at)
		values ($1, $2, $3, $4, $5, nullif($6, ''), $7)
		returning id
	`, a.ID, goalID, headline, work, req.SelfRating, strings.TrimSpace(req.Notes), createdAt).Scan(&evaluationID)
	if err != nil {
		logError(ctx, "create evaluation failed", err)
		writeError(w, http.StatusInternalServerError, "insert failed")
		return
	}

	s.touchAgent(ctx, a.ID)
	writeOK(w, http.StatusOK, map[string]any{"evaluationId": evaluationID})
}
