package attempt

import (
	"context"
	"errors"
	"testing"

	"github.com/toeigo/toeigo/internal/apperr"
	"github.com/toeigo/toeigo/internal/bank"
)

/* ---- in-memory fakes satisfying bank.Store, Store, and LevelResolver ---- */

type fakeBank struct {
	items   map[string]bank.Item
	stimuli map[string]bank.Stimulus
	tests   map[string]bank.Test
}

func newFakeBank() *fakeBank {
	return &fakeBank{
		items:   map[string]bank.Item{},
		stimuli: map[string]bank.Stimulus{},
		tests:   map[string]bank.Test{},
	}
}

func (f *fakeBank) GetItems(_ context.Context, ids []string) ([]bank.Item, error) {
	seen := map[string]bool{}
	var out []bank.Item
	// reversed on purpose: callers must not rely on bank order
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		if seen[id] {
			continue
		}
		seen[id] = true
		if it, ok := f.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeBank) GetStimuli(_ context.Context, ids []string) (map[string]bank.Stimulus, error) {
	out := map[string]bank.Stimulus{}
	for _, id := range ids {
		if st, ok := f.stimuli[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}

func (f *fakeBank) GetTest(_ context.Context, id string) (bank.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return bank.Test{}, apperr.Wrap(apperr.ErrNotFound, "test %s", id)
	}
	return t, nil
}

func (f *fakeBank) ListTests(_ context.Context, maxLevel int) ([]bank.Test, error) {
	var out []bank.Test
	for _, t := range f.tests {
		if t.Level <= maxLevel {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeBank) PutItem(_ context.Context, it bank.Item) error {
	f.items[it.ID] = it
	return nil
}
func (f *fakeBank) PutStimulus(_ context.Context, st bank.Stimulus) error {
	f.stimuli[st.ID] = st
	return nil
}
func (f *fakeBank) PutTest(_ context.Context, t bank.Test) error {
	f.tests[t.ID] = t
	return nil
}

type fakeAttempts struct {
	rows map[string]Attempt
	seq  int
}

func newFakeAttempts() *fakeAttempts { return &fakeAttempts{rows: map[string]Attempt{}} }

func (f *fakeAttempts) Create(_ context.Context, a Attempt) (Attempt, error) {
	f.seq++
	if a.ID == "" {
		a.ID = "att-" + string(rune('0'+f.seq))
	}
	if a.SubmittedAt == 0 {
		a.SubmittedAt = int64(1700000000 + f.seq)
	}
	f.rows[a.ID] = a
	return a, nil
}

func (f *fakeAttempts) Get(_ context.Context, id string) (Attempt, error) {
	a, ok := f.rows[id]
	if !ok {
		return Attempt{}, apperr.Wrap(apperr.ErrNotFound, "attempt %s", id)
	}
	return a, nil
}

func (f *fakeAttempts) Latest(_ context.Context, userID, testRef string) (Attempt, error) {
	var best Attempt
	found := false
	for _, a := range f.rows {
		if a.UserID != userID {
			continue
		}
		if testRef != "" && a.TestRef != testRef {
			continue
		}
		if !found || a.SubmittedAt > best.SubmittedAt {
			best, found = a, true
		}
	}
	if !found {
		return Attempt{}, apperr.Wrap(apperr.ErrNotFound, "attempt latest")
	}
	return best, nil
}

func (f *fakeAttempts) List(_ context.Context, opts ListOpts) ([]Attempt, error) {
	var out []Attempt
	for _, a := range f.rows {
		if a.UserID == opts.UserID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttempts) SetFirstLocked(_ context.Context, id string, locked bool) error {
	a, ok := f.rows[id]
	if !ok {
		return apperr.Wrap(apperr.ErrNotFound, "attempt %s", id)
	}
	a.FirstLocked = locked
	f.rows[id] = a
	return nil
}

type fakeLevels struct {
	levels   map[string]int
	promoted map[string]int
}

func newFakeLevels() *fakeLevels {
	return &fakeLevels{levels: map[string]int{}, promoted: map[string]int{}}
}

func (f *fakeLevels) Resolve(_ context.Context, userID string) int {
	if lvl, ok := f.levels[userID]; ok {
		return lvl
	}
	return 1
}

func (f *fakeLevels) Promote(_ context.Context, userID string, lvl int) error {
	if lvl > f.levels[userID] {
		f.levels[userID] = lvl
	}
	f.promoted[userID] = lvl
	return nil
}

/* ---- fixtures ---- */

func seedPlacementItems(b *fakeBank) []string {
	ctx := context.Background()
	defs := []struct {
		id     string
		part   bank.Part
		answer string
	}{
		{"p1", bank.Part1, "A"},
		{"p2", bank.Part2, "B"},
		{"p3", bank.Part3, "C"},
		{"p4", bank.Part4, "D"},
		{"p5", bank.Part5, "A"},
		{"p6", bank.Part6, "B"},
	}
	ids := make([]string, 0, len(defs))
	for _, s := range defs {
		_ = b.PutItem(ctx, bank.Item{ID: s.id, Part: s.part, Answer: s.answer})
		ids = append(ids, s.id)
	}
	return ids
}

/* ---- tests ---- */

func TestSubmitUnauthorizedCreatesNoRow(t *testing.T) {
	b := newFakeBank()
	st := newFakeAttempts()
	svc := NewService(b, st, newFakeLevels(), true)

	_, err := svc.Submit(context.Background(), "", bank.TestRefPlacement, SubmitInput{
		AllIDs:  []string{"p1"},
		Answers: map[string]string{},
	})
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if len(st.rows) != 0 {
		t.Fatalf("unauthorized submit persisted %d attempts", len(st.rows))
	}
}

func TestSubmitValidation(t *testing.T) {
	b := newFakeBank()
	st := newFakeAttempts()
	svc := NewService(b, st, newFakeLevels(), true)
	ctx := context.Background()

	cases := []struct {
		name    string
		testRef string
		in      SubmitInput
	}{
		{"missing testRef", "", SubmitInput{AllIDs: []string{"p1"}, Answers: map[string]string{}}},
		{"missing allIds", bank.TestRefPlacement, SubmitInput{Answers: map[string]string{}}},
		{"missing answers", bank.TestRefPlacement, SubmitInput{AllIDs: []string{"p1"}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, "u1", c.testRef, c.in)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}
	if len(st.rows) != 0 {
		t.Fatalf("invalid input persisted %d attempts", len(st.rows))
	}
}

func TestSubmitPlacementEndToEnd(t *testing.T) {
	b := newFakeBank()
	st := newFakeAttempts()
	lv := newFakeLevels()
	svc := NewService(b, st, lv, true)
	ids := seedPlacementItems(b)
	ctx := context.Background()

	// Listening: correct, wrong, correct, blank. Reading: both correct.
	res, err := svc.Submit(ctx, "u1", bank.TestRefPlacement, SubmitInput{
		AllIDs:  ids,
		Answers: map[string]string{"p1": "A", "p2": "C", "p3": "C", "p5": "A", "p6": "B"},
		TimeSec: 600,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if res.Total != 6 || res.Correct != 4 {
		t.Fatalf("got total=%d correct=%d", res.Total, res.Correct)
	}
	if res.Listening.Total != 4 || res.Listening.Correct != 2 || res.Listening.Acc != 0.5 {
		t.Fatalf("listening: %+v", res.Listening)
	}
	if res.Reading.Total != 2 || res.Reading.Correct != 2 || res.Reading.Acc != 1.0 {
		t.Fatalf("reading: %+v", res.Reading)
	}
	if res.Level != 2 { // acc 4/6 ≈ 0.667
		t.Fatalf("level = %d, want 2", res.Level)
	}
	if res.AnswersMap["p2"].CorrectAnswer != "B" {
		t.Fatalf("answers map: %+v", res.AnswersMap)
	}

	a, err := st.Get(ctx, res.AttemptID)
	if err != nil {
		t.Fatalf("get persisted attempt: %v", err)
	}
	if a.Total != len(a.Items) {
		t.Fatalf("total %d != items %d", a.Total, len(a.Items))
	}
	if a.Version != Version || a.IsFull {
		t.Fatalf("attempt meta: version=%q isFull=%v", a.Version, a.IsFull)
	}
	// Only parts 1-6 were present: not a full exam, so no promotion.
	if _, ok := lv.promoted["u1"]; ok {
		t.Fatal("partial exam must not promote the user level")
	}
}

func TestSubmitLevelGate(t *testing.T) {
	b := newFakeBank()
	st := newFakeAttempts()
	lv := newFakeLevels()
	svc := NewService(b, st, lv, true)
	ctx := context.Background()

	_ = b.PutTest(ctx, bank.Test{ID: "t-adv", Title: "Advanced", Level: 3, ItemIDs: []string{"p1"}})
	_ = b.PutItem(ctx, bank.Item{ID: "p1", Part: bank.Part1, Answer: "A"})

	in := SubmitInput{AllIDs: []string{"p1"}, Answers: map[string]string{"p1": "A"}}

	_, err := svc.Submit(ctx, "u1", "t-adv", in)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("locked test: want ErrForbidden, got %v", err)
	}

	lv.levels["u1"] = 3
	if _, err := svc.Submit(ctx, "u1", "t-adv", in); err != nil {
		t.Fatalf("unlocked test: %v", err)
	}

	_, err = svc.Submit(ctx, "u1", "t-unknown", in)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown test: want ErrNotFound, got %v", err)
	}
}

func TestSubmitFullExamPromotes(t *testing.T) {
	b := newFakeBank()
	st := newFakeAttempts()
	lv := newFakeLevels()
	svc := NewService(b, st, lv, true)
	ctx := context.Background()

	ids := make([]string, 0, 7)
	answers := map[string]string{}
	for i, p := range bank.AllParts {
		id := "f" + string(rune('1'+i))
		_ = b.PutItem(ctx, bank.Item{ID: id, Part: p, Answer: "A"})
		ids = append(ids, id)
		answers[id] = "A" // perfect run
	}

	res, err := svc.Submit(ctx, "u1", bank.TestRefPlacement, SubmitInput{AllIDs: ids, Answers: answers})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Level != 4 {
		t.Fatalf("level = %d, want 4", res.Level)
	}
	a, _ := st.Get(ctx, res.AttemptID)
	if !a.IsFull {
		t.Fatal("all seven parts present, attempt should be full")
	}
	if lv.levels["u1"] != 4 {
		t.Fatalf("stored level = %d, want promotion to 4", lv.levels["u1"])
	}
}

func TestGetForUserOwnership(t *testing.T) {
	st := newFakeAttempts()
	svc := NewService(newFakeBank(), st, newFakeLevels(), false)
	ctx := context.Background()

	a, _ := st.Create(ctx, Attempt{UserID: "owner", TestRef: bank.TestRefPlacement})

	if _, err := svc.GetForUser(ctx, "owner", a.ID, false); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := svc.GetForUser(ctx, "other", a.ID, false); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("foreign read: want ErrForbidden, got %v", err)
	}
	if _, err := svc.GetForUser(ctx, "other", a.ID, true); err != nil {
		t.Fatalf("view-all read: %v", err)
	}
	if _, err := svc.GetForUser(ctx, "", a.ID, false); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("anonymous read: want ErrUnauthorized, got %v", err)
	}
}

func TestGetForUserLastSentinel(t *testing.T) {
	st := newFakeAttempts()
	svc := NewService(newFakeBank(), st, newFakeLevels(), false)
	ctx := context.Background()

	_, _ = st.Create(ctx, Attempt{ID: "a1", UserID: "u1", SubmittedAt: 100})
	_, _ = st.Create(ctx, Attempt{ID: "a2", UserID: "u1", SubmittedAt: 200})
	_, _ = st.Create(ctx, Attempt{ID: "a3", UserID: "u2", SubmittedAt: 300})

	a, err := svc.GetForUser(ctx, "u1", "last", false)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if a.ID != "a2" {
		t.Fatalf("last = %s, want a2", a.ID)
	}
}

func TestReplayRestoresOrderAndSurvivesDrift(t *testing.T) {
	b := newFakeBank()
	st := newFakeAttempts()
	svc := NewService(b, st, newFakeLevels(), false)
	ctx := context.Background()

	_ = b.PutStimulus(ctx, bank.Stimulus{ID: "s1", Transcript: "dialogue"})
	_ = b.PutItem(ctx, bank.Item{ID: "q1", Part: bank.Part3, StimulusID: "s1", Answer: "A"})
	_ = b.PutItem(ctx, bank.Item{ID: "q2", Part: bank.Part3, StimulusID: "s1", Answer: "B"})
	_ = b.PutItem(ctx, bank.Item{ID: "q3", Part: bank.Part5, Answer: "C"})

	res, err := svc.Submit(ctx, "u1", bank.TestRefPlacement, SubmitInput{
		AllIDs:  []string{"q3", "q1", "q2"},
		Answers: map[string]string{"q1": "A"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	p, err := svc.Replay(ctx, "u1", res.AttemptID, false)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	got := make([]string, len(p.Items))
	for i, it := range p.Items {
		got[i] = it.ID
	}
	if got[0] != "q3" || got[1] != "q1" || got[2] != "q2" {
		t.Fatalf("replay order = %v", got)
	}
	if _, ok := p.StimulusMap["s1"]; !ok {
		t.Fatalf("stimulus map missing s1: %v", p.StimulusMap)
	}

	// Bank drift: an item disappears after the attempt. Review degrades, not fails.
	delete(b.items, "q1")
	p, err = svc.Replay(ctx, "u1", res.AttemptID, false)
	if err != nil {
		t.Fatalf("replay after drift: %v", err)
	}
	if len(p.Items) != 2 || len(p.MissingIDs) != 1 || p.MissingIDs[0] != "q1" {
		t.Fatalf("drift payload: items=%d missing=%v", len(p.Items), p.MissingIDs)
	}
}
