// Package xverify implements the X identity verification workflow: an
// agent claims an X handle, receives a short-lived random token, posts it
// from that account, and asks the platform to check. Challenges move
// pending -> verified | failed | expired exactly once; terminal rows are
// never rewritten.
package xverify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clawhammer/internal/xapi"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
	StatusExpired  Status = "expired"
)

var (
	ErrNotFound      = errors.New("xverify: challenge not found")
	ErrOnHold        = errors.New("xverify: verification on hold")
	ErrBadHandle     = errors.New("xverify: invalid x handle")
	ErrNotConfigured = errors.New("xverify: x api bearer token not configured")
)

type Challenge struct {
	ID      uuid.UUID
	AgentID uuid.UUID
	XHandle string
	Token   string
	Status  Status

	CreatedAt time.Time
	ExpiresAt time.Time

	CheckedAt  *time.Time
	VerifiedAt *time.Time
	PostID     string
	PostURL    string
	FailReason string
}

// Resolution is the single terminal write applied to a pending challenge.
type Resolution struct {
	Status     Status
	CheckedAt  time.Time
	VerifiedAt *time.Time
	PostID     string
	PostURL    string
	FailReason string
}

type Store interface {
	CreateChallenge(ctx context.Context, ch Challenge) error
	// GetChallenge returns ErrNotFound for unknown ids.
	GetChallenge(ctx context.Context, id uuid.UUID) (Challenge, error)
	CountChallengesSince(ctx context.Context, since time.Time) (int, error)
	// ResolveChallenge applies res only if the row is still pending and
	// reports whether this caller won the transition. A verified resolution
	// also marks the owning agent; both writes land atomically, so a failure
	// leaves the challenge pending and the whole check retryable.
	ResolveChallenge(ctx context.Context, id uuid.UUID, res Resolution) (bool, error)
}

// PostSource is the external X lookup. *xapi.Client satisfies it.
type PostSource interface {
	UserByUsername(ctx context.Context, username string) (xapi.User, error)
	RecentPosts(ctx context.Context, userID string, max int) ([]xapi.Post, error)
}

type Config struct {
	TTL      time.Duration
	MaxPosts int

	SurgeGateEnabled bool
	SurgeWindow      time.Duration
	SurgeMax         int
}

type Engine struct {
	store Store
	posts PostSource // nil when no bearer token is configured
	cfg   Config
	now   func() time.Time
}

func New(store Store, posts PostSource, cfg Config) *Engine {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.MaxPosts < 1 {
		cfg.MaxPosts = 8
	}
	if cfg.MaxPosts > 10 {
		cfg.MaxPosts = 10
	}
	if cfg.SurgeWindow <= 0 {
		cfg.SurgeWindow = 10 * time.Minute
	}
	if cfg.SurgeMax < 1 {
		cfg.SurgeMax = 50
	}
	return &Engine{store: store, posts: posts, cfg: cfg, now: time.Now}
}

// NormalizeHandle strips a leading "@" and surrounding whitespace.
func NormalizeHandle(h string) string {
	return strings.TrimPrefix(strings.TrimSpace(h), "@")
}

// Start issues a fresh pending challenge for the agent's claimed handle.
func (e *Engine) Start(ctx context.Context, agentID uuid.UUID, xHandle string) (Challenge, error) {
	handle := NormalizeHandle(xHandle)
	if handle == "" {
		return Challenge{}, ErrBadHandle
	}

	now := e.now()

	if e.cfg.SurgeGateEnabled {
		n, err := e.store.CountChallengesSince(ctx, now.Add(-e.cfg.SurgeWindow))
		if err != nil {
			return Challenge{}, fmt.Errorf("surge count: %w", err)
		}
		if n >= e.cfg.SurgeMax {
			return Challenge{}, ErrOnHold
		}
	}

	token, err := NewToken()
	if err != nil {
		return Challenge{}, fmt.Errorf("mint token: %w", err)
	}

	ch := Challenge{
		ID:        uuid.New(),
		AgentID:   agentID,
		XHandle:   handle,
		Token:     token,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(e.cfg.TTL),
	}
	if err := e.store.CreateChallenge(ctx, ch); err != nil {
		return Challenge{}, fmt.Errorf("create challenge: %w", err)
	}
	return ch, nil
}

// Check resolves a pending challenge against the claimed account's recent
// posts. Terminal challenges are returned as-is with no external calls, so
// repeated checks are safe. External lookup failures leave the challenge
// pending and are returned as errors, preserving retryability.
func (e *Engine) Check(ctx context.Context, agentID, challengeID uuid.UUID) (Challenge, error) {
	ch, err := e.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return Challenge{}, err
	}
	// Ownership is authorization only; a foreign challenge is
	// indistinguishable from a missing one.
	if ch.AgentID != agentID {
		return Challenge{}, ErrNotFound
	}
	if ch.Status != StatusPending {
		return ch, nil
	}
	if e.posts == nil {
		return Challenge{}, ErrNotConfigured
	}

	now := e.now()

	user, err := e.posts.UserByUsername(ctx, ch.XHandle)
	if errors.Is(err, xapi.ErrUserNotFound) {
		return e.resolve(ctx, ch, Resolution{
			Status:     StatusFailed,
			CheckedAt:  now,
			FailReason: "handle not found",
		})
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("x user lookup: %w", err)
	}

	posts, err := e.posts.RecentPosts(ctx, user.ID, e.cfg.MaxPosts)
	if err != nil {
		return Challenge{}, fmt.Errorf("x posts lookup: %w", err)
	}

	for _, p := range posts {
		if !strings.Contains(p.Text, ch.Token) {
			continue
		}
		if p.CreatedAt.Before(ch.CreatedAt) || p.CreatedAt.After(ch.ExpiresAt) {
			continue
		}
		verifiedAt := now
		return e.resolve(ctx, ch, Resolution{
			Status:     StatusVerified,
			CheckedAt:  now,
			VerifiedAt: &verifiedAt,
			PostID:     p.ID,
			PostURL:    fmt.Sprintf("https://x.com/%s/status/%s", ch.XHandle, p.ID),
		})
	}

	if now.After(ch.ExpiresAt) {
		return e.resolve(ctx, ch, Resolution{
			Status:     StatusExpired,
			CheckedAt:  now,
			FailReason: "challenge expired",
		})
	}

	// A miss terminates the challenge even though it has not expired:
	// checks are single-shot, not retried. Current product behavior.
	return e.resolve(ctx, ch, Resolution{
		Status:     StatusFailed,
		CheckedAt:  now,
		FailReason: "token not found in recent posts",
	})
}

func (e *Engine) resolve(ctx context.Context, ch Challenge, res Resolution) (Challenge, error) {
	won, err := e.store.ResolveChallenge(ctx, ch.ID, res)
	if err != nil {
		return Challenge{}, fmt.Errorf("resolve challenge: %w", err)
	}
	if !won {
		// Lost the pending->terminal race; the winner's row is the truth.
		return e.store.GetChallenge(ctx, ch.ID)
	}

	ch.Status = res.Status
	ch.CheckedAt = &res.CheckedAt
	ch.VerifiedAt = res.VerifiedAt
	ch.PostID = res.PostID
	ch.PostURL = res.PostURL
	ch.FailReason = res.FailReason
	return ch, nil
}
