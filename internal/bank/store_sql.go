package bank

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/toeigo/toeigo/internal/apperr"
)

// Store is the read-mostly item bank. Content is curated externally; the
// Put methods exist for the loader CLI and test seeding, not for learners.
type Store interface {
	GetItems(ctx context.Context, ids []string) ([]Item, error)
	GetStimuli(ctx context.Context, ids []string) (map[string]Stimulus, error)
	GetTest(ctx context.Context, id string) (Test, error)
	ListTests(ctx context.Context, maxLevel int) ([]Test, error)

	PutItem(ctx context.Context, it Item) error
	PutStimulus(ctx context.Context, st Stimulus) error
	PutTest(ctx context.Context, t Test) error
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// GetItems returns one row per stored id. Duplicate request ids are collapsed
// before querying, missing ids are dropped, and no order is guaranteed:
// callers that care about sequence reconcile against their own id list.
func (s *SQLStore) GetItems(ctx context.Context, ids []string) ([]Item, error) {
	uniq := dedup(ids)
	if len(uniq) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(
		`SELECT id,part,stimulus_id,stem,choices_json,answer FROM items WHERE id IN (%s)`,
		placeholders(len(uniq)))
	rows, err := s.db.QueryContext(ctx, q, toArgs(uniq)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		var cjson string
		if err := rows.Scan(&it.ID, &it.Part, &it.StimulusID, &it.Stem, &cjson, &it.Answer); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cjson), &it.Choices); err != nil {
			return nil, fmt.Errorf("item %s: choices: %w", it.ID, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetStimuli(ctx context.Context, ids []string) (map[string]Stimulus, error) {
	uniq := dedup(ids)
	if len(uniq) == 0 {
		return map[string]Stimulus{}, nil
	}
	q := fmt.Sprintf(
		`SELECT id,images_json,audio_url,transcript,explanation FROM stimuli WHERE id IN (%s)`,
		placeholders(len(uniq)))
	rows, err := s.db.QueryContext(ctx, q, toArgs(uniq)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Stimulus, len(uniq))
	for rows.Next() {
		var st Stimulus
		var ijson string
		if err := rows.Scan(&st.ID, &ijson, &st.AudioURL, &st.Transcript, &st.Explanation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ijson), &st.Images); err != nil {
			return nil, fmt.Errorf("stimulus %s: images: %w", st.ID, err)
		}
		out[st.ID] = st
	}
	return out, rows.Err()
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,level,part_keys_json,item_ids_json,time_limit_sec,created_at FROM tests WHERE id=$1`, id)
	var t Test
	var pkjson, idjson string
	if err := row.Scan(&t.ID, &t.Title, &t.Level, &pkjson, &idjson, &t.TimeLimitSec, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, apperr.Wrap(apperr.ErrNotFound, "test %s", id)
		}
		return Test{}, err
	}
	if err := json.Unmarshal([]byte(pkjson), &t.PartKeys); err != nil {
		return Test{}, err
	}
	if err := json.Unmarshal([]byte(idjson), &t.ItemIDs); err != nil {
		return Test{}, err
	}
	return t, nil
}

func (s *SQLStore) ListTests(ctx context.Context, maxLevel int) ([]Test, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,title,level,part_keys_json,item_ids_json,time_limit_sec,created_at
		 FROM tests WHERE level<=$1 ORDER BY level, created_at`, maxLevel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Test
	for rows.Next() {
		var t Test
		var pkjson, idjson string
		if err := rows.Scan(&t.ID, &t.Title, &t.Level, &pkjson, &idjson, &t.TimeLimitSec, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(pkjson), &t.PartKeys); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(idjson), &t.ItemIDs); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutItem(ctx context.Context, it Item) error {
	cj, err := json.Marshal(it.Choices)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items (id,part,stimulus_id,stem,choices_json,answer) VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET part=EXCLUDED.part, stimulus_id=EXCLUDED.stimulus_id,
		   stem=EXCLUDED.stem, choices_json=EXCLUDED.choices_json, answer=EXCLUDED.answer`,
		it.ID, string(it.Part), it.StimulusID, it.Stem, string(cj), it.Answer)
	return err
}

func (s *SQLStore) PutStimulus(ctx context.Context, st Stimulus) error {
	ij, err := json.Marshal(st.Images)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stimuli (id,images_json,audio_url,transcript,explanation) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET images_json=EXCLUDED.images_json, audio_url=EXCLUDED.audio_url,
		   transcript=EXCLUDED.transcript, explanation=EXCLUDED.explanation`,
		st.ID, string(ij), st.AudioURL, st.Transcript, st.Explanation)
	return err
}

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	pkj, err := json.Marshal(emptyIfNil(t.PartKeys))
	if err != nil {
		return err
	}
	idj, err := json.Marshal(emptyIfNil(t.ItemIDs))
	if err != nil {
		return err
	}
	created := t.CreatedAt
	if created == 0 {
		created = time.Now().Unix()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tests (id,title,level,part_keys_json,item_ids_json,time_limit_sec,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, level=EXCLUDED.level,
		   part_keys_json=EXCLUDED.part_keys_json, item_ids_json=EXCLUDED.item_ids_json,
		   time_limit_sec=EXCLUDED.time_limit_sec`,
		t.ID, t.Title, t.Level, string(pkj), string(idj), t.TimeLimitSec, created)
	return err
}

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ps, ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
