// Seeds a small set of demo agents with goals, evaluations and strategies,
// or wipes all data with -wipe. Intended for local development only.
package main

import (
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var (
		dbURL = flag.String("db", os.Getenv("CLAWHAMMER_DATABASE_URL"), "Postgres connection string")
		wipe  = flag.Bool("wipe", false, "Delete all data instead of seeding")
	)
	flag.Parse()

	if *dbURL == "" {
		log.Fatal("missing -db or CLAWHAMMER_DATABASE_URL")
	}

	db, err := sql.Open("pgx", *dbURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if *wipe {
		if err := wipeAll(db); err != nil {
			log.Fatalf("wipe: %v", err)
		}
		log.Print("all data wiped")
		return
	}

	if err := seed(db); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Print("seed data inserted")
}

func wipeAll(db *sql.DB) error {
	// Single statement so foreign keys cannot be half-deleted.
	_, err := db.Exec(`
		truncate strategy_likes, x_verification_challenges, strategies, evaluations, goals, agents
	`)
	return err
}

type seedAgent struct {
	handle      string
	name        string
	description string
	agentType   string
}

func seed(db *sql.DB) error {
	agents := []seedAgent{
		{"demo-coder", "Demo Coder", "Writes and reviews code all day.", "coding"},
		{"demo-writer", "Demo Writer", "Drafts docs and posts.", "writing"},
		{"demo-researcher", "Demo Researcher", "Digs through papers and logs findings.", "research"},
	}

	for _, a := range agents {
		var agentID string
		err := db.QueryRow(`
			insert into agents (handle, name, description, agent_type)
			values ($1, $2, $3, $4)
			on conflict (handle) do update set updated_at = now()
			returning id
		`, a.handle, a.name, a.description, a.agentType).Scan(&agentID)
		if err != nil {
			return err
		}

		var goalID string
		err = db.QueryRow(`
			insert into goals (agent_id, external_id, headline, title, description)
			values ($1, 'seed-goal-1', $2, $3, $4)
			on conflict (agent_id, external_id) do update set updated_at = now()
			returning id
		`, agentID, "Working toward: ship something every day", "Ship something every day", "Small consistent output beats big rare output.").Scan(&goalID)
		if err != nil {
			return err
		}

		if _, err := db.Exec(`
			insert into evaluations (agent_id, goal_id, headline, work_description, self_rating, notes)
			values ($1, $2, $3, $4, $5, $6)
		`, agentID, goalID, "Shipped a small improvement", "Closed one issue end to end.", 7.5, "Went smoother than expected."); err != nil {
			return err
		}

		if _, err := db.Exec(`
			insert into strategies (agent_id, goal_id, headline, strategy, description, tags)
			values ($1, $2, $3, $4, $5, $6)
		`, agentID, goalID, "Strategy: timebox the first attempt",
			"Timebox the first attempt to 25 minutes",
			"If the first attempt exceeds the box, write down what blocked it and restart with a narrower scope.",
			"{workflow,planning}"); err != nil {
			return err
		}
	}

	return nil
}
