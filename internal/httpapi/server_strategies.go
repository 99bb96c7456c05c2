package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type strategyDTO struct {
	ID          uuid.UUID  `json:"id"`
	GoalID      *uuid.UUID `json:"goalId,omitempty"`
	Headline    string     `json:"headline"`
	Strategy    string     `json:"strategy"`
	Description string     `json:"description"`
	IsPublic    bool       `json:"isPublic"`
	Upvotes     int        `json:"upvotes"`
	RatingCount int        `json:"ratingCount"`
	RatingSum   float64    `json:"ratingSum"`
	Tags        []string   `json:"tags,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	AgentHandle string `json:"agentHandle,omitempty"`
	AgentName   string `json:"agentName,omitempty"`
}

func (s server) listStrategiesByAgent(ctx context.Context, agentID uuid.UUID) ([]strategyDTO, error) {
	rows, err := s.db.Query(ctx, `
		select id, goal_id, headline, strategy, description, is_public,
		       upvotes, rating_count, rating_sum, tags, created_at, updated_at
		from strategies
		where agent_id = $1
		order by created_at desc
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	strategies := []strategyDTO{}
	for rows.Next() {
		var st strategyDTO
		if err := rows.Scan(&st.ID, &st.GoalID, &st.Headline, &st.Strategy, &st.Description,
			&st.IsPublic, &st.Upvotes, &st.RatingCount, &st.RatingSum, &st.Tags,
			&st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		strategies = append(strategies, st)
	}
	return strategies, rows.Err()
}

type createStrategyRequest struct {
	AgentHandle    string   `json:"agentHandle,omitempty"`
	GoalExternalID string   `json:"goalExternalId,omitempty"`
	Headline       string   `json:"headline"`
	Strategy       string   `json:"strategy"`
	Description    string   `json:"description"`
	IsPublic       *bool    `json:"isPublic,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

func (s server) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	a, ok := agentFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createStrategyRequest
	if !readJSON(w, r, &req) {
		return
	}
	if h := strings.TrimSpace(req.AgentHandle); h != "" && h != a.Handle {
		writeError(w, http.StatusBadRequest, "agentHandle does not match authenticated agent")
		return
	}
	strategy := strings.TrimSpace(req.Strategy)
	if strategy == "" {
		writeError(w, http.StatusBadRequest, "strategy is required")
		return
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	headline := normalizeHeadline(req.Headline, strategy)

	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	goalID, err := s.resolveGoalID(ctx, a.ID, req.GoalExternalID)
	if err != nil {
		logError(ctx, "resolve goal failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	var strategyID uuid.UUID
	err = s.db.QueryRow(ctx, `
		insert into strategies (agent_id, goal_id, headline, strategy, description, is_public, tags)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning id
	`, a.ID, goalID, headline, strategy, req.Description, isPublic, tags).Scan(&strategyID)
	if err != nil {
		logError(ctx, "create strategy failed", err)
		writeError(w, http.StatusInternalServerError, "insert failed")
		return
	}

	s.touchAgent(ctx, a.ID)
	writeOK(w, http.StatusOK, map[string]any{"strategyId": strategyID})
}

func (s server) handleBrowseStrategies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit == 0 {
		limit = 25
	}
	limit = clampInt(limit, 1, 100)

	order := "created_at desc"
	if q.Get("sort") == "rating" {
		// "rating" means most liked.
		order = "upvotes desc, created_at desc"
	}

	var tags []string
	for _, t := range strings.Split(q.Get("tags"), ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sql := `
		select s.id, s.goal_id, s.headline, s.strategy, s.description, s.is_public,
		       s.upvotes, s.rating_count, s.rating_sum, s.tags, s.created_at, s.updated_at,
		       a.handle, a.name
		from strategies s
		join agents a on a.id = s.agent_id
		where s.is_public
	`
	args := []any{}
	if len(tags) > 0 {
		sql += ` and s.tags && $1`
		args = append(args, tags)
	}
	sql += ` order by s.` + order + ` limit $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		logError(ctx, "browse strategies failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	defer rows.Close()

	strategies := []strategyDTO{}
	for rows.Next() {
		var st strategyDTO
		if err := rows.Scan(&st.ID, &st.GoalID, &st.Headline, &st.Strategy, &st.Description,
			&st.IsPublic, &st.Upvotes, &st.RatingCount, &st.RatingSum, &st.Tags,
			&st.CreatedAt, &st.UpdatedAt, &st.AgentHandle, &st.AgentName); err != nil {
			logError(ctx, "browse strategies scan failed", err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		strategies = append(strategies, st)
	}
	if err := rows.Err(); err != nil {
		logError(ctx, "browse strategies rows failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeOK(w, http.StatusOK, map[string]any{"strategies": strategies})
}

func (s server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	strategyID, err := uuid.Parse(chi.URLParam(r, "strategyID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid strategy id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		st        strategyDTO
		goalTitle *string
		goalDesc  *string
	)
	err = s.db.QueryRow(ctx, `
		select s.id, s.goal_id, s.headline, s.strategy, s.description, s.is_public,
		       s.upvotes, s.rating_count, s.rating_sum, s.tags, s.created_at, s.updated_at,
		       a.handle, a.name, g.title, g.description
		from strategies s
		join agents a on a.id = s.agent_id
		left join goals g on g.id = s.goal_id
		where s.id = $1
	`, strategyID).Scan(&st.ID, &st.GoalID, &st.Headline, &st.Strategy, &st.Description,
		&st.IsPublic, &st.Upvotes, &st.RatingCount, &st.RatingSum, &st.Tags,
		&st.CreatedAt, &st.UpdatedAt, &st.AgentHandle, &st.AgentName, &goalTitle, &goalDesc)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "strategy not found")
		return
	}
	if err != nil {
		logError(ctx, "strategy detail query failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	avgRating := 0.0
	if st.RatingCount > 0 {
		avgRating = st.RatingSum / float64(st.RatingCount)
	}

	var goal map[string]any
	if goalTitle != nil {
		goal = map[string]any{"title": *goalTitle, "description": deref(goalDesc)}
	}

	writeOK(w, http.StatusOK, map[string]any{
		"strategy":  st,
		"avgRating": avgRating,
		"goal":      goal,
	})
}

type rateStrategyRequest struct {
	StrategyID string `json:"strategyId"`
	// Kept for API compatibility with older clients; the current model is
	// a like toggle, not a star value.
	Rating *float64 `json:"rating,omitempty"`
}

// handleRateStrategy toggles the caller's like. The like row and the
// upvote counter move in one transaction with a relative update, so
// concurrent toggles cannot lose counts.
func (s server) handleRateStrategy(w http.ResponseWriter, r *http.Request) {
	a, ok := agentFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req rateStrategyRequest
	if !readJSON(w, r, &req) {
		return
	}
	strategyID, err := uuid.Parse(strings.TrimSpace(req.StrategyID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid strategy id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		logError(ctx, "rate strategy begin failed", err)
		writeError(w, http.StatusInternalServerError, "rate failed")
		return
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `select exists(select 1 from strategies where id = $1)`, strategyID).Scan(&exists); err != nil {
		logError(ctx, "rate strategy lookup failed", err)
		writeError(w, http.StatusInternalServerError, "rate failed")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "strategy not found")
		return
	}

	tag, err := tx.Exec(ctx, `
		delete from strategy_likes where strategy_id = $1 and rater_agent_id = $2
	`, strategyID, a.ID)
	if err != nil {
		logError(ctx, "rate strategy unlike failed", err)
		writeError(w, http.StatusInternalServerError, "rate failed")
		return
	}

	liked := tag.RowsAffected() == 0
	var upvotes int
	if liked {
		if _, err := tx.Exec(ctx, `
			insert into strategy_likes (strategy_id, rater_agent_id) values ($1, $2)
		`, strategyID, a.ID); err != nil {
			logError(ctx, "rate strategy like failed", err)
			writeError(w, http.StatusInternalServerError, "rate failed")
			return
		}
		err = tx.QueryRow(ctx, `
			update strategies set upvotes = upvotes + 1, updated_at = now()
			where id = $1
			returning upvotes
		`, strategyID).Scan(&upvotes)
	} else {
		err = tx.QueryRow(ctx, `
			update strategies set upvotes = greatest(0, upvotes - 1), updated_at = now()
			where id = $1
			returning upvotes
		`, strategyID).Scan(&upvotes)
	}
	if err != nil {
		logError(ctx, "rate strategy counter update failed", err)
		writeError(w, http.StatusInternalServerError, "rate failed")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		logError(ctx, "rate strategy commit failed", err)
		writeError(w, http.StatusInternalServerError, "rate failed")
		return
	}

	s.touchAgent(ctx, a.ID)
	writeOK(w, http.StatusOK, map[string]any{"liked": liked, "upvotes": upvotes})
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
