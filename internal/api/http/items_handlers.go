package http

import (
	"encoding/json"
	"net/http"

	"github.com/toeigo/toeigo/internal/apperr"
	"github.com/toeigo/toeigo/internal/bank"
	"github.com/toeigo/toeigo/internal/replay"
)

// POST /items/fetch  { "ids": [...] }
// Generic fallback endpoint: returns the requested items (answers stripped)
// with their stimuli. Duplicates in ids are expanded to match the request
// sequence, so a review client can use this when the order-preserving attempt
// endpoint is unavailable.
func FetchItemsHandler(b bank.Store) http.HandlerFunc {
	type out struct {
		Items       []bank.Item              `json:"items"`
		StimulusMap map[string]bank.Stimulus `json:"stimulus_map"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, apperr.Wrap(apperr.ErrValidation, "bad json"))
			return
		}
		if len(req.IDs) == 0 {
			writeErr(w, apperr.Wrap(apperr.ErrValidation, "ids required"))
			return
		}

		fetched, err := b.GetItems(r.Context(), req.IDs)
		if err != nil {
			writeErr(w, err)
			return
		}
		ordered, _ := replay.Reorder(req.IDs, fetched)
		for i := range ordered {
			ordered[i].Answer = ""
		}
		stim, err := b.GetStimuli(r.Context(), replay.StimulusIDs(ordered))
		if err != nil {
			writeErr(w, err)
			return
		}
		if ordered == nil {
			ordered = []bank.Item{}
		}
		writeJSON(w, out{Items: ordered, StimulusMap: stim})
	}
}
