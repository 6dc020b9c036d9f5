package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/toeigo/toeigo/internal/apperr"
	"github.com/toeigo/toeigo/internal/attempt"
	"github.com/toeigo/toeigo/internal/rbac"
	"github.com/toeigo/toeigo/internal/scale"
)

// POST /tests/{testRef}/submit
func SubmitHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in attempt.SubmitInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, apperr.Wrap(apperr.ErrValidation, "bad json"))
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		res, err := svc.Submit(r.Context(), sub, chi.URLParam(r, "testRef"), in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, res)
	}
}

// GET /attempts/{attemptID} — full attempt plus the predicted scaled score.
// "last" resolves to the caller's most recent attempt.
func GetAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	type out struct {
		attempt.Attempt
		Predicted scale.Predicted `json:"predicted"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		sub := rbac.SubjectFromContext(r.Context())
		a, err := svc.GetForUser(r.Context(), sub, id, rbac.CanViewAll(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, out{Attempt: a, Predicted: attempt.Predicted(a)})
	}
}

// GET /attempts/{attemptID}/items — review payload in original display order.
func ReplayItemsHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		sub := rbac.SubjectFromContext(r.Context())
		p, err := svc.Replay(r.Context(), sub, id, rbac.CanViewAll(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, p)
	}
}

// GET /attempts?test_ref=...&limit=50&offset=0
// Students are always scoped to their own history; attempt:view-all roles may
// pass user_id to inspect another learner.
func ListAttemptsHandler(store attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" || !rbac.CanViewAll(r) {
			userID = sub
		}
		list, err := store.List(r.Context(), attempt.ListOpts{
			UserID:  userID,
			TestRef: strings.TrimSpace(r.URL.Query().Get("test_ref")),
			Limit:   parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:  parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		if list == nil {
			list = []attempt.Attempt{}
		}
		writeJSON(w, list)
	}
}

// POST /attempts/{attemptID}/lock  { "locked": true } — admin-only patch of
// the one mutable administrative flag.
func LockAttemptHandler(store attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Locked bool `json:"locked"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, apperr.Wrap(apperr.ErrValidation, "bad json"))
			return
		}
		id := chi.URLParam(r, "attemptID")
		if err := store.SetFirstLocked(r.Context(), id, req.Locked); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]any{"id": id, "first_locked": req.Locked})
	}
}
