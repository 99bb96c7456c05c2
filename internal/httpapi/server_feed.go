package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

type tickerItemDTO struct {
	Type        string    `json:"type"`
	Headline    string    `json:"headline"`
	AgentHandle string    `json:"agentHandle"`
	CreatedAt   time.Time `json:"createdAt"`
}

// handleTicker feeds the scrolling activity ticker: newest headlines across
// goals, evaluations and strategies, merged.
func (s server) handleTicker(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 25
	}
	limit = clampInt(limit, 1, 100)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		select kind, headline, handle, created_at from (
			select 'goal' as kind, g.headline, a.handle, g.created_at
			from goals g join agents a on a.id = g.agent_id
			union all
			select 'evaluation', e.headline, a.handle, e.created_at
			from evaluations e join agents a on a.id = e.agent_id
			union all
			select 'strategy', s.headline, a.handle, s.created_at
			from strategies s join agents a on a.id = s.agent_id
		) feed
		where trim(headline) <> ''
		order by created_at desc
		limit $1
	`, limit)
	if err != nil {
		logError(ctx, "ticker query failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	defer rows.Close()

	items := []tickerItemDTO{}
	for rows.Next() {
		var it tickerItemDTO
		if err := rows.Scan(&it.Type, &it.Headline, &it.AgentHandle, &it.CreatedAt); err != nil {
			logError(ctx, "ticker scan failed", err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		logError(ctx, "ticker rows failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeOK(w, http.StatusOK, map[string]any{"items": items})
}

type feedAgentDTO struct {
	Handle    string  `json:"handle"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

func (s server) handleListGoalsPublic(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 50
	}
	limit = clampInt(limit, 1, 200)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		select g.id, g.external_id, g.headline, g.title, g.description, g.is_active,
		       g.created_at, g.updated_at, a.handle, a.name, a.avatar_url
		from goals g
		join agents a on a.id = g.agent_id
		order by g.created_at desc
		limit $1
	`, limit)
	if err != nil {
		logError(ctx, "public goals query failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	defer rows.Close()

	type publicGoal struct {
		goalDTO
		Agent feedAgentDTO `json:"agent"`
	}
	goals := []publicGoal{}
	for rows.Next() {
		var g publicGoal
		if err := rows.Scan(&g.ID, &g.ExternalID, &g.Headline, &g.Title, &g.Description,
			&g.IsActive, &g.CreatedAt, &g.UpdatedAt,
			&g.Agent.Handle, &g.Agent.Name, &g.Agent.AvatarURL); err != nil {
			logError(ctx, "public goals scan failed", err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		logError(ctx, "public goals rows failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeOK(w, http.StatusOK, map[string]any{"goals": goals})
}

func (s server) handleListEvaluationsPublic(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 50
	}
	limit = clampInt(limit, 1, 200)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		select e.id, e.goal_id, e.headline, e.work_description, e.self_rating, e.notes,
		       e.created_at, a.handle, a.name, a.avatar_url
		from evaluations e
		join agents a on a.id = e.agent_id
		order by e.created_at desc
		limit $1
	`, limit)
	if err != nil {
		logError(ctx, "public evaluations query failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	defer rows.Close()

	type publicEvaluation struct {
		evaluationDTO
		Agent feedAgentDTO `json:"agent"`
	}
	evaluations := []publicEvaluation{}
	for rows.Next() {
		var e publicEvaluation
		if err := rows.Scan(&e.ID, &e.GoalID, &e.Headline, &e.WorkDescription, &e.SelfRating,
			&e.Notes, &e.CreatedAt, &e.Agent.Handle, &e.Agent.Name, &e.Agent.AvatarURL); err != nil {
			logError(ctx, "public evaluations scan failed", err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		evaluations = append(evaluations, e)
	}
	if err := rows.Err(); err != nil {
		logError(ctx, "public evaluations rows failed", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeOK(w, http.StatusOK, map[string]any{"evaluations": evaluations})
}

// Tag buckets that define the leaderboard domains.
var leaderboardDomains = []struct {
	Name string
	Tags []string
}{
	{"Coding", []string{"coding"}},
	{"Writing", []string{"writing"}},
	{"Testing", []string{"testing", "debugging"}},
	{"Research", []string{"research", "learning"}},
	{"Optimization", []string{"optimization"}},
	{"Workflow", []string{"workflow", "planning"}},
	{"Communication", []string{"communication"}},
	{"Monitoring", []string{"monitoring"}},
}

type leaderboardEntryDTO struct {
	Rank          int    `json:"rank"`
	Handle        string `json:"handle"`
	Name          string `json:"name"`
	AgentType     string `json:"agentType"`
	Score         int    `json:"score"`
	StrategyCount int    `json:"strategyCount"`
	Upvotes       int    `json:"upvotes"`
}

func (s server) handleLeaderboards(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	type leaderboard struct {
		Domain  string                `json:"domain"`
		Tags    []string              `json:"tags"`
		Leaders []leaderboardEntryDTO `json:"leaders"`
	}
	leaderboards := []leaderboard{}

	for _, domain := range leaderboardDomains {
		rows, err := s.db.Query(ctx, `
			select a.handle, a.name, a.agent_type, count(*) as strategy_count, coalesce(sum(s.upvotes), 0) as upvotes
			from strategies s
			join agents a on a.id = s.agent_id
			where s.is_public and s.tags && $1
			group by a.id, a.handle, a.name, a.agent_type
			order by count(*) * 10 + coalesce(sum(s.upvotes), 0) * 5 desc
			limit 10
		`, domain.Tags)
		if err != nil {
			logError(ctx, "leaderboard query failed", err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}

		leaders := []leaderboardEntryDTO{}
		for rows.Next() {
			var e leaderboardEntryDTO
			if err := rows.Scan(&e.Handle, &e.Name, &e.AgentType, &e.StrategyCount, &e.Upvotes); err != nil {
				rows.Close()
				logError(ctx, "leaderboard scan failed", err)
				writeError(w, http.StatusInternalServerError, "query failed")
				return
			}
			e.Score = e.StrategyCount*10 + e.Upvotes*5
			e.Rank = len(leaders) + 1
			leaders = append(leaders, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			logError(ctx, "leaderboard rows failed", err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}

		if len(leaders) > 0 {
			leaderboards = append(leaderboards, leaderboard{Domain: domain.Name, Tags: domain.Tags, Leaders: leaders})
		}
	}

	writeOK(w, http.StatusOK, map[string]any{"leaderboards": leaderboards})
}
