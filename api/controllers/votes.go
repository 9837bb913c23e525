package controllers

import (
	"net/http"
	"strings"

	"github.com/wecr8/damp-backend/api/middleware"
	"github.com/wecr8/damp-backend/api/responses"
	"github.com/wecr8/damp-backend/api/validators"
	"github.com/wecr8/damp-backend/internal/votes"
	"github.com/wecr8/damp-backend/pkg/enums"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/security"
)

// FingerprintHeader carries a client-computed voter fingerprint on reads.
const FingerprintHeader = "X-Voter-Fingerprint"

type submitVoteRequest struct {
	ProductID   string                   `json:"productId" validate:"required"`
	Fingerprint string                   `json:"fingerprint"`
	Signals     *security.BrowserSignals `json:"signals"`
}

// voterIdentity resolves who is voting: a verified user id wins, then browser
// signals hashed server-side, then a precomputed fingerprint.
func voterIdentity(r *http.Request, signals *security.BrowserSignals, fingerprint string) (string, enums.VoteType, error) {
	if uid := middleware.UIDFromContext(r.Context()); uid != "" {
		return uid, enums.VoteTypeAuthenticated, nil
	}
	if signals != nil && !signals.IsZero() {
		if signals.UserAgent == "" {
			signals.UserAgent = r.UserAgent()
		}
		return security.Fingerprint(*signals), enums.VoteTypePublic, nil
	}
	if fingerprint == "" {
		fingerprint = r.Header.Get(FingerprintHeader)
	}
	if fingerprint == "" {
		fingerprint = r.URL.Query().Get("fingerprint")
	}
	if fingerprint == "" {
		return "", "", votes.ErrVoterRequired
	}
	fp, err := security.ParseFingerprint(fingerprint)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid voter fingerprint")
	}
	return fp, enums.VoteTypePublic, nil
}

// VoteSubmit records one vote per voter identity. A repeat vote answers 409
// with the stored vote under details.existingVote.
func VoteSubmit(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "voting unavailable"))
			return
		}

		var payload submitVoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		voterID, voteType, err := voterIdentity(r, payload.Signals, strings.TrimSpace(payload.Fingerprint))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithVoterID(r.Context(), voterID)

		receipt, err := svc.Submit(ctx, votes.SubmitInput{
			VoterID:   voterID,
			Option:    payload.ProductID,
			VoteType:  voteType,
			UserAgent: validators.SanitizeString(r.UserAgent(), 512),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

func VoteResults(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "voting unavailable"))
			return
		}
		tally, err := svc.Results(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=10")
		responses.WriteSuccess(w, tally)
	}
}

// VoteStatus reports whether the caller has voted. Anonymous callers identify
// themselves with the fingerprint header or query parameter.
func VoteStatus(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "voting unavailable"))
			return
		}
		voterID, _, err := voterIdentity(r, nil, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithVoterID(r.Context(), voterID)

		status, err := svc.Status(ctx, voterID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, status)
	}
}

// VoteFingerprint hashes browser signals into the fp_ identity so clients can
// cache it for later status checks.
func VoteFingerprint(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var signals security.BrowserSignals
		if err := validators.DecodeJSONBody(r, &signals); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if signals.UserAgent == "" {
			signals.UserAgent = r.UserAgent()
		}
		if signals.IsZero() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "browser signals required"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"fingerprint": security.Fingerprint(signals)})
	}
}
