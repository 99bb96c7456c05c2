package xverify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists challenges in Postgres. The terminal transition is a
// conditional update on status='pending', which is what keeps concurrent
// checks from rewriting a resolved challenge. A verified transition and the
// agent's x_verified flag commit in one transaction, so a challenge can
// never end up verified with the flag unset.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CreateChallenge(ctx context.Context, ch Challenge) error {
	_, err := s.db.Exec(ctx, `
		insert into x_verification_challenges
			(id, agent_id, x_handle, token, status, created_at, expires_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, ch.ID, ch.AgentID, ch.XHandle, ch.Token, string(ch.Status), ch.CreatedAt, ch.ExpiresAt)
	return err
}

func (s *PGStore) GetChallenge(ctx context.Context, id uuid.UUID) (Challenge, error) {
	var (
		ch         Challenge
		status     string
		checkedAt  *time.Time
		verifiedAt *time.Time
		postID     *string
		postURL    *string
		failReason *string
	)
	err := s.db.QueryRow(ctx, `
		select id, agent_id, x_handle, token, status, created_at, expires_at,
		       checked_at, verified_at, post_id, post_url, fail_reason
		from x_verification_challenges
		where id = $1
	`, id).Scan(&ch.ID, &ch.AgentID, &ch.XHandle, &ch.Token, &status, &ch.CreatedAt, &ch.ExpiresAt,
		&checkedAt, &verifiedAt, &postID, &postURL, &failReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return Challenge{}, ErrNotFound
	}
	if err != nil {
		return Challenge{}, err
	}

	ch.Status = Status(status)
	ch.CheckedAt = checkedAt
	ch.VerifiedAt = verifiedAt
	if postID != nil {
		ch.PostID = *postID
	}
	if postURL != nil {
		ch.PostURL = *postURL
	}
	if failReason != nil {
		ch.FailReason = *failReason
	}
	return ch, nil
}

func (s *PGStore) CountChallengesSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		select count(*) from x_verification_challenges where created_at > $1
	`, since).Scan(&n)
	return n, err
}

func (s *PGStore) ResolveChallenge(ctx context.Context, id uuid.UUID, res Resolution) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var (
		agentID uuid.UUID
		xHandle string
	)
	err = tx.QueryRow(ctx, `
		update x_verification_challenges
		set status = $2,
		    checked_at = $3,
		    verified_at = $4,
		    post_id = nullif($5, ''),
		    post_url = nullif($6, ''),
		    fail_reason = nullif($7, '')
		where id = $1 and status = 'pending'
		returning agent_id, x_handle
	`, id, string(res.Status), res.CheckedAt, res.VerifiedAt, res.PostID, res.PostURL, res.FailReason).Scan(&agentID, &xHandle)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race; another check already resolved the row.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if res.Status == StatusVerified {
		if _, err := tx.Exec(ctx, `
			update agents
			set x_verified = true, x_handle = $2, updated_at = now()
			where id = $1
		`, agentID, xHandle); err != nil {
			return false, err
		}
	}
	return true, tx.Commit(ctx)
}
