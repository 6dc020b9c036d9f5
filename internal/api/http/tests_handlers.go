package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toeigo/toeigo/internal/apperr"
	"github.com/toeigo/toeigo/internal/attempt"
	"github.com/toeigo/toeigo/internal/bank"
	"github.com/toeigo/toeigo/internal/rbac"
	"github.com/toeigo/toeigo/internal/replay"
)

// GET /tests — the catalog visible at the caller's unlocked tier.
func ListTestsHandler(b bank.Store, levels attempt.LevelResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		lvl := levels.Resolve(r.Context(), sub)
		tests, err := b.ListTests(r.Context(), lvl)
		if err != nil {
			writeErr(w, err)
			return
		}
		if tests == nil {
			tests = []bank.Test{}
		}
		writeJSON(w, tests)
	}
}

// GET /tests/{testID} — test metadata plus its items and stimuli in display
// order, with answer keys stripped. Level-gated: a locked test reads the same
// as a missing one apart from the status code.
func GetTestHandler(b bank.Store, levels attempt.LevelResolver) http.HandlerFunc {
	type out struct {
		Test        bank.Test                `json:"test"`
		Items       []bank.Item              `json:"items"`
		StimulusMap map[string]bank.Stimulus `json:"stimulus_map"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "testID")
		t, err := b.GetTest(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		if levels.Resolve(r.Context(), sub) < t.Level {
			writeErr(w, apperr.Wrap(apperr.ErrForbidden, "test %s not unlocked", id))
			return
		}

		fetched, err := b.GetItems(r.Context(), t.ItemIDs)
		if err != nil {
			writeErr(w, err)
			return
		}
		ordered, _ := replay.Reorder(t.ItemIDs, fetched)
		stripAnswers(ordered)

		stim, err := b.GetStimuli(r.Context(), replay.StimulusIDs(ordered))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, out{Test: t, Items: ordered, StimulusMap: stim})
	}
}

// Answer keys never leave the server before grading.
func stripAnswers(items []bank.Item) {
	for i := range items {
		items[i].Answer = ""
	}
}
