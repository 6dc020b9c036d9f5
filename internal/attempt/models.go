package attempt

import (
	"github.com/toeigo/toeigo/internal/grading"
)

// Version tags rows with the grading/scaling rules in force at creation, so a
// future re-grade can tell which scale ("toeic.<version>.scale") produced them.
const Version = "v1"

// Attempt is one immutable record of a graded submission. Scored fields are
// never updated after Create; only FirstLocked may be patched, by a privileged
// path.
type Attempt struct {
	ID          string               `json:"id"`
	UserID      string               `json:"user_id"`
	TestRef     string               `json:"test_ref"` // test id or "placement"
	PartKeys    []string             `json:"part_keys"`
	Total       int                  `json:"total"`
	Correct     int                  `json:"correct"`
	Acc         float64              `json:"acc"`
	Listening   grading.SectionStats `json:"listening"`
	Reading     grading.SectionStats `json:"reading"`
	Items       []grading.ItemResult `json:"items"`
	TimeSec     int                  `json:"time_sec"`
	StartedAt   string               `json:"started_at,omitempty"` // client-reported, advisory
	SubmittedAt int64                `json:"submitted_at"`
	Version     string               `json:"version"`
	Level       int                  `json:"level"`
	IsFull      bool                 `json:"is_full"`
	FirstLocked bool                 `json:"first_locked"`
}

// ItemIDs returns the attempt's canonical item sequence, one entry per graded
// occurrence, in original display order.
func (a Attempt) ItemIDs() []string {
	ids := make([]string, len(a.Items))
	for i, it := range a.Items {
		ids[i] = it.ID
	}
	return ids
}

type ListOpts struct {
	UserID  string
	TestRef string
	Limit   int
	Offset  int
}
