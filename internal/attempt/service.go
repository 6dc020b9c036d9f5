package attempt

import (
	"context"
	"log"

	"github.com/toeigo/toeigo/internal/apperr"
	"github.com/toeigo/toeigo/internal/bank"
	"github.com/toeigo/toeigo/internal/grading"
	"github.com/toeigo/toeigo/internal/replay"
	"github.com/toeigo/toeigo/internal/scale"
)

// LevelResolver is the slice of the user layer the engine needs: read the
// caller's unlocked tier, and optionally raise it after a full-test result.
type LevelResolver interface {
	Resolve(ctx context.Context, userID string) int
	Promote(ctx context.Context, userID string, lvl int) error
}

type Service struct {
	bank     bank.Store
	attempts Store
	levels   LevelResolver
	promote  bool
}

func NewService(b bank.Store, st Store, lr LevelResolver, promote bool) *Service {
	return &Service{bank: b, attempts: st, levels: lr, promote: promote}
}

// SubmitInput is the ephemeral client payload. AllIDs is the authoritative
// "which items, in what order" record; Answers alone cannot represent skips.
type SubmitInput struct {
	AllIDs    []string          `json:"all_ids"`
	Answers   map[string]string `json:"answers"`
	TimeSec   int               `json:"time_sec"`
	StartedAt string            `json:"started_at,omitempty"`
	PartKeys  []string          `json:"part_keys,omitempty"`
}

type AnswerKey struct {
	CorrectAnswer string `json:"correct_answer"`
}

type SubmitResult struct {
	AttemptID  string               `json:"attempt_id"`
	Total      int                  `json:"total"`
	Correct    int                  `json:"correct"`
	Acc        float64              `json:"acc"`
	Listening  grading.SectionStats `json:"listening"`
	Reading    grading.SectionStats `json:"reading"`
	Level      int                  `json:"level"`
	TimeSec    int                  `json:"time_sec"`
	AnswersMap map[string]AnswerKey `json:"answers_map"`
}

// Submit grades one submission and persists the attempt. Validation happens
// before any grading; no partial attempt is ever written. Grading itself is
// deterministic, so nothing here is retried.
func (s *Service) Submit(ctx context.Context, userID, testRef string, in SubmitInput) (SubmitResult, error) {
	if userID == "" {
		return SubmitResult{}, apperr.Wrap(apperr.ErrUnauthorized, "submit requires a signed-in user")
	}
	if testRef == "" {
		return SubmitResult{}, apperr.Wrap(apperr.ErrValidation, "test_ref required")
	}
	if len(in.AllIDs) == 0 {
		return SubmitResult{}, apperr.Wrap(apperr.ErrValidation, "all_ids required")
	}
	if in.Answers == nil {
		return SubmitResult{}, apperr.Wrap(apperr.ErrValidation, "answers required")
	}

	partHint := in.PartKeys
	if testRef != bank.TestRefPlacement {
		t, err := s.bank.GetTest(ctx, testRef)
		if err != nil {
			return SubmitResult{}, err
		}
		if viewer := s.levels.Resolve(ctx, userID); viewer < t.Level {
			return SubmitResult{}, apperr.Wrap(apperr.ErrForbidden, "test %s not unlocked", testRef)
		}
		if len(partHint) == 0 {
			partHint = t.PartKeys
		}
	}

	items, err := s.bank.GetItems(ctx, in.AllIDs)
	if err != nil {
		return SubmitResult{}, err
	}

	sum := grading.Grade(in.AllIDs, items, in.Answers, partHint)
	lvl := scale.LevelFromAccuracy(sum.Acc)

	a, err := s.attempts.Create(ctx, Attempt{
		UserID:    userID,
		TestRef:   testRef,
		PartKeys:  sum.PartKeys,
		Total:     sum.Total,
		Correct:   sum.Correct,
		Acc:       sum.Acc,
		Listening: sum.Listening,
		Reading:   sum.Reading,
		Items:     sum.Items,
		TimeSec:   in.TimeSec,
		StartedAt: in.StartedAt,
		Version:   Version,
		Level:     lvl,
		IsFull:    grading.IsFullExam(sum.PartKeys),
	})
	if err != nil {
		return SubmitResult{}, err
	}

	if s.promote && a.IsFull {
		if err := s.levels.Promote(ctx, userID, lvl); err != nil {
			// Attempt is already durable; a failed promotion only delays the unlock.
			log.Printf("attempt %s: level promotion for user %s failed: %v", a.ID, userID, err)
		}
	}

	answersMap := make(map[string]AnswerKey, len(sum.Items))
	for _, it := range sum.Items {
		answersMap[it.ID] = AnswerKey{CorrectAnswer: it.CorrectAnswer}
	}
	return SubmitResult{
		AttemptID:  a.ID,
		Total:      a.Total,
		Correct:    a.Correct,
		Acc:        a.Acc,
		Listening:  a.Listening,
		Reading:    a.Reading,
		Level:      a.Level,
		TimeSec:    a.TimeSec,
		AnswersMap: answersMap,
	}, nil
}

// GetForUser loads an attempt and enforces ownership: callers without viewAll
// may only read their own rows. id may be the sentinel "last".
func (s *Service) GetForUser(ctx context.Context, userID, id string, viewAll bool) (Attempt, error) {
	if userID == "" {
		return Attempt{}, apperr.Wrap(apperr.ErrUnauthorized, "sign-in required")
	}
	var (
		a   Attempt
		err error
	)
	if id == "last" {
		a, err = s.attempts.Latest(ctx, userID, "")
	} else {
		a, err = s.attempts.Get(ctx, id)
	}
	if err != nil {
		return Attempt{}, err
	}
	if !viewAll && a.UserID != userID {
		// Same surface as a missing row: don't confirm the attempt exists.
		return Attempt{}, apperr.Wrap(apperr.ErrForbidden, "attempt %s", id)
	}
	return a, nil
}

// Predicted derives the scaled score for an attempt through the scale
// registry keyed by the attempt's version tag.
func Predicted(a Attempt) scale.Predicted {
	scaled := scale.Apply("toeic."+a.Version+".scale", map[string]float64{
		"listening_acc": a.Listening.Acc,
		"reading_acc":   a.Reading.Acc,
	})
	return scale.Predicted{
		Listening: int(scaled["listening"]),
		Reading:   int(scaled["reading"]),
		Overall:   int(scaled["overall"]),
	}
}

// ReplayPayload is the review-page contract: items in original display order
// plus the stimuli they reference.
type ReplayPayload struct {
	Items       []bank.Item              `json:"items"`
	StimulusMap map[string]bank.Stimulus `json:"stimulus_map"`
	MissingIDs  []string                 `json:"missing_ids,omitempty"`
}

// Replay rebuilds the original question sequence of a stored attempt. Bank
// drift (items deleted since the attempt) degrades gracefully: whatever is
// still available is returned in order and the gap is logged, not fatal.
func (s *Service) Replay(ctx context.Context, userID, id string, viewAll bool) (ReplayPayload, error) {
	a, err := s.GetForUser(ctx, userID, id, viewAll)
	if err != nil {
		return ReplayPayload{}, err
	}

	canonical := a.ItemIDs()
	fetched, err := s.bank.GetItems(ctx, canonical)
	if err != nil {
		return ReplayPayload{}, err
	}
	ordered, missing := replay.Reorder(canonical, fetched)
	if len(missing) > 0 {
		log.Printf("attempt %s (user=%s test=%s): bank drift, %d of %d items gone: %v",
			a.ID, a.UserID, a.TestRef, len(missing), len(canonical), missing)
	}

	stim, err := s.bank.GetStimuli(ctx, replay.StimulusIDs(ordered))
	if err != nil {
		return ReplayPayload{}, err
	}
	return ReplayPayload{Items: ordered, StimulusMap: stim, MissingIDs: missing}, nil
}
