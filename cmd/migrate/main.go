// Command migrate applies the SQL files under migrations/ in filename
// order, recording each applied file in schema_migrations so reruns are
// no-ops.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()

	var (
		dbURL  = flag.String("db", os.Getenv("CLAWHAMMER_DATABASE_URL"), "Postgres connection string")
		dir    = flag.String("dir", "migrations", "Migrations directory")
		dryRun = flag.Bool("dry-run", false, "List pending migrations without applying them")
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

	if _, err := db.Exec(`
		create table if not exists schema_migrations (
			filename text primary key,
			applied_at timestamptz not null default now()
		)
	`); err != nil {
		log.Fatalf("migrations table: %v", err)
	}

	pending, err := pendingMigrations(db, *dir)
	if err != nil {
		log.Fatalf("scan migrations: %v", err)
	}
	if len(pending) == 0 {
		log.Printf("schema is up to date")
		return
	}

	for _, p := range pending {
		if *dryRun {
			log.Printf("pending: %s", filepath.Base(p))
			continue
		}
		if err := apply(db, p); err != nil {
			log.Fatalf("apply %s: %v", filepath.Base(p), err)
		}
		log.Printf("applied: %s", filepath.Base(p))
	}
}

// pendingMigrations returns the .sql files in dir not yet recorded in
// schema_migrations, sorted by filename.
func pendingMigrations(db *sql.DB, dir string) ([]string, error) {
	applied := map[string]bool{}
	rows, err := db.Query(`select filename from schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			continue
		}
		if !applied[e.Name()] {
			pending = append(pending, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(pending)
	return pending, nil
}

func apply(db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sqlText := strings.TrimSpace(string(b))
	if sqlText == "" {
		return fmt.Errorf("empty migration")
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sqlText); err != nil {
		return err
	}
	if _, err := tx.Exec(`insert into schema_migrations (filename) values ($1)`, filepath.Base(path)); err != nil {
		return err
	}
	return tx.Commit()
}
