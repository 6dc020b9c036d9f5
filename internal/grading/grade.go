package grading

import (
	"github.com/toeigo/toeigo/internal/bank"
)

// Answers maps item id to the picked choice id. Items shown but left blank
// simply have no entry.
type Answers map[string]string

// ItemResult is the graded outcome for one occurrence of an item.
type ItemResult struct {
	ID            string    `json:"id"`
	Part          bank.Part `json:"part"`
	Picked        *string   `json:"picked"` // nil means left blank
	CorrectAnswer string    `json:"correct_answer"`
	IsCorrect     bool      `json:"is_correct"`
}

type SectionStats struct {
	Total   int     `json:"total"`
	Correct int     `json:"correct"`
	Acc     float64 `json:"acc"`
}

type Summary struct {
	Items     []ItemResult `json:"items"`
	Total     int          `json:"total"`
	Correct   int          `json:"correct"`
	Acc       float64      `json:"acc"`
	Listening SectionStats `json:"listening"`
	Reading   SectionStats `json:"reading"`
	PartKeys  []string     `json:"part_keys"`
}

// Grade scores a submission against the bank's answer keys.
//
// allIDs is the authoritative record of which items were shown and in what
// order; it drives the iteration, so an item shown but absent from answers is
// scored blank-and-wrong instead of silently excluded. banked is the bank read
// for allIDs, in any order, one entry per stored id. Ids in allIDs with no
// bank row are dropped from scoring entirely: they count neither for nor
// against the learner. An id repeated in allIDs is graded once per occurrence.
func Grade(allIDs []string, banked []bank.Item, answers Answers, partKeysHint []string) Summary {
	byID := make(map[string]bank.Item, len(banked))
	for _, it := range banked {
		byID[it.ID] = it
	}

	var sum Summary
	for _, id := range allIDs {
		it, ok := byID[id]
		if !ok {
			continue
		}
		res := ItemResult{ID: it.ID, Part: it.Part, CorrectAnswer: it.Answer}
		if picked, answered := answers[id]; answered && picked != "" {
			p := picked
			res.Picked = &p
			res.IsCorrect = picked == it.Answer
		}
		sum.Items = append(sum.Items, res)

		sum.Total++
		sec := &sum.Reading
		if it.Part.IsListening() {
			sec = &sum.Listening
		}
		sec.Total++
		if res.IsCorrect {
			sum.Correct++
			sec.Correct++
		}
	}

	sum.Acc = ratio(sum.Correct, sum.Total)
	sum.Listening.Acc = ratio(sum.Listening.Correct, sum.Listening.Total)
	sum.Reading.Acc = ratio(sum.Reading.Correct, sum.Reading.Total)
	sum.PartKeys = derivePartKeys(partKeysHint, sum.Items)
	return sum
}

// ratio guards the empty-section case: 0, never NaN.
func ratio(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// derivePartKeys prefers the caller's explicit list (de-duplicated, order
// kept); otherwise collects the distinct parts actually graded.
func derivePartKeys(hint []string, items []ItemResult) []string {
	if len(hint) > 0 {
		return dedupKeys(hint)
	}
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, string(it.Part))
	}
	return dedupKeys(keys)
}

func dedupKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// IsFullExam reports whether every one of the seven parts is represented.
func IsFullExam(partKeys []string) bool {
	have := make(map[string]struct{}, len(partKeys))
	for _, k := range partKeys {
		have[k] = struct{}{}
	}
	for _, p := range bank.AllParts {
		if _, ok := have[string(p)]; !ok {
			return false
		}
	}
	return true
}
