// Package replay restores the exact item order a learner saw during a stored
// attempt. The bank read comes back unordered and collapsed to one row per id,
// while the canonical sequence may legitimately repeat an id, so this is a
// multiset reconciliation rather than a lookup.
package replay

import (
	"sort"

	"github.com/toeigo/toeigo/internal/bank"
)

// Reorder places fetched items back into canonical sequence.
//
// A FIFO queue of positions is kept per id. Each fetched copy claims the next
// queued position for its id; fetched copies beyond the queued positions are
// dropped. Positions still unclaimed after the scan are filled by reusing a
// fetched copy of the same id (the repeat case), or reported in missing when
// the bank no longer has the item at all (drift: deleted after the attempt).
// missing preserves canonical order of the unfillable ids.
func Reorder(canonicalIDs []string, fetched []bank.Item) (ordered []bank.Item, missing []string) {
	positions := make(map[string][]int, len(canonicalIDs))
	for pos, id := range canonicalIDs {
		positions[id] = append(positions[id], pos)
	}

	type placed struct {
		item bank.Item
		pos  int
	}
	out := make([]placed, 0, len(canonicalIDs))
	firstCopy := make(map[string]bank.Item, len(fetched))

	for _, it := range fetched {
		if _, ok := firstCopy[it.ID]; !ok {
			firstCopy[it.ID] = it
		}
		q := positions[it.ID]
		if len(q) == 0 {
			continue // extra copy, nothing left to claim
		}
		out = append(out, placed{item: it, pos: q[0]})
		positions[it.ID] = q[1:]
	}

	// Repeated canonical ids outnumber the collapsed bank rows; reuse the
	// fetched copy for the remaining positions.
	for pos, id := range canonicalIDs {
		q := positions[id]
		if len(q) == 0 || q[0] != pos {
			continue
		}
		if it, ok := firstCopy[id]; ok {
			out = append(out, placed{item: it, pos: pos})
		} else {
			missing = append(missing, id)
		}
		positions[id] = q[1:]
	}

	sort.Slice(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	ordered = make([]bank.Item, len(out))
	for i, p := range out {
		ordered[i] = p.item
	}
	return ordered, missing
}

// StimulusIDs collects the distinct stimulus references of ordered items,
// in first-appearance order.
func StimulusIDs(items []bank.Item) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.StimulusID == "" {
			continue
		}
		if _, ok := seen[it.StimulusID]; ok {
			continue
		}
		seen[it.StimulusID] = struct{}{}
		out = append(out, it.StimulusID)
	}
	return out
}
