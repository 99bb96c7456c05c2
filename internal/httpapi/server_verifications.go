package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clawhammer/internal/xverify"

	"github.com/google/uuid"
)

type verificationStartRequest struct {
	XHandle string `json:"xHandle"`
}

func (s server) handleVerificationStart(w http.ResponseWriter, r *http.Request) {
	a, ok := agentFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req verificationStartRequest
	if !readJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ch, err := s.verify.Start(ctx, a.ID, req.XHandle)
	switch {
	case errors.Is(err, xverify.ErrBadHandle):
		writeError(w, http.StatusBadRequest, "xHandle is required")
		return
	case errors.Is(err, xverify.ErrOnHold):
		writeError(w, http.StatusTooManyRequests, s.holdMessage)
		return
	case err != nil:
		logError(ctx, "verification start failed", err)
		writeError(w, http.StatusInternalServerError, "verification start failed")
		return
	}

	writeOK(w, http.StatusOK, map[string]any{
		"challengeId": ch.ID,
		"token":       ch.Token,
		"expiresAt":   ch.ExpiresAt,
		"instructions": fmt.Sprintf(
			"Post the token %q from @%s before %s, then call /api/verifications/x/check.",
			ch.Token, ch.XHandle, ch.ExpiresAt.UTC().Format(time.RFC3339)),
	})
}

type verificationCheckRequest struct {
	ChallengeID string `json:"challengeId"`
}

func (s server) handleVerificationCheck(w http.ResponseWriter, r *http.Request) {
	a, ok := agentFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req verificationCheckRequest
	if !readJSON(w, r, &req) {
		return
	}
	challengeID, err := uuid.Parse(strings.TrimSpace(req.ChallengeID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid challenge id")
		return
	}

	// The check makes up to two external X API calls; give it more room
	// than a plain DB handler.
	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	ch, err := s.verify.Check(ctx, a.ID, challengeID)
	switch {
	case errors.Is(err, xverify.ErrNotFound):
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	case errors.Is(err, xverify.ErrNotConfigured):
		logError(ctx, "verification check unconfigured", err)
		writeError(w, http.StatusInternalServerError, "verification is not configured")
		return
	case err != nil:
		// Upstream/X failures leave the challenge pending; the caller can
		// retry the same check.
		logError(ctx, "verification check failed", err)
		writeError(w, http.StatusInternalServerError, "verification check failed")
		return
	}

	switch ch.Status {
	case xverify.StatusVerified:
		writeOK(w, http.StatusOK, map[string]any{
			"status":     string(ch.Status),
			"verified":   true,
			"xHandle":    ch.XHandle,
			"postId":     ch.PostID,
			"postUrl":    ch.PostURL,
			"verifiedAt": ch.VerifiedAt,
		})
	case xverify.StatusExpired:
		writeJSON(w, http.StatusGone, map[string]any{
			"ok":     false,
			"error":  "challenge expired",
			"status": string(ch.Status),
		})
	default: // failed
		writeOK(w, http.StatusOK, map[string]any{
			"status":     string(ch.Status),
			"verified":   false,
			"failReason": ch.FailReason,
		})
	}
}
