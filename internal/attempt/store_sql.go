package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/toeigo/toeigo/internal/apperr"
	"github.com/toeigo/toeigo/internal/grading"
)

// Store persists attempts. Create is insert-only; there is deliberately no
// update of scored fields, and concurrent submissions are not deduplicated —
// attempts are additive history, not a mutable current-score cell.
type Store interface {
	Create(ctx context.Context, a Attempt) (Attempt, error)
	Get(ctx context.Context, id string) (Attempt, error)
	Latest(ctx context.Context, userID, testRef string) (Attempt, error)
	List(ctx context.Context, opts ListOpts) ([]Attempt, error)
	SetFirstLocked(ctx context.Context, id string, locked bool) error
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const attemptCols = `id,user_id,test_ref,part_keys_json,total,correct,acc,
l_total,l_correct,l_acc,r_total,r_correct,r_acc,
items_json,time_sec,started_at,submitted_at,version,level,is_full,first_locked`

func (s *SQLStore) Create(ctx context.Context, a Attempt) (Attempt, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.SubmittedAt == 0 {
		a.SubmittedAt = time.Now().Unix()
	}
	if a.Version == "" {
		a.Version = Version
	}

	ij, err := json.Marshal(a.Items)
	if err != nil {
		return Attempt{}, err
	}
	pkj, err := json.Marshal(a.PartKeys)
	if err != nil {
		return Attempt{}, err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts (`+attemptCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		a.ID, a.UserID, a.TestRef, string(pkj), a.Total, a.Correct, a.Acc,
		a.Listening.Total, a.Listening.Correct, a.Listening.Acc,
		a.Reading.Total, a.Reading.Correct, a.Reading.Acc,
		string(ij), a.TimeSec, nullableStr(a.StartedAt), a.SubmittedAt,
		a.Version, a.Level, a.IsFull, a.FirstLocked)
	if err != nil {
		return Attempt{}, fmt.Errorf("insert attempt %s (user=%s test=%s): %w", a.ID, a.UserID, a.TestRef, err)
	}
	return a, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts WHERE id=$1`, id)
	return scanAttempt(row, id)
}

// Latest returns the caller's most recent attempt by submission time;
// testRef filters when non-empty.
func (s *SQLStore) Latest(ctx context.Context, userID, testRef string) (Attempt, error) {
	var row *sql.Row
	if testRef != "" {
		row = s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts
			WHERE user_id=$1 AND test_ref=$2 ORDER BY submitted_at DESC LIMIT 1`, userID, testRef)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts
			WHERE user_id=$1 ORDER BY submitted_at DESC LIMIT 1`, userID)
	}
	return scanAttempt(row, "latest for "+userID)
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT ` + attemptCols + ` FROM attempts WHERE user_id=$1`
	args := []any{opts.UserID}
	if opts.TestRef != "" {
		q += ` AND test_ref=$2`
		args = append(args, opts.TestRef)
	}
	q += fmt.Sprintf(` ORDER BY submitted_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttemptRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetFirstLocked is the one mutation allowed after creation; routed through
// an admin-only handler.
func (s *SQLStore) SetFirstLocked(ctx context.Context, id string, locked bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE attempts SET first_locked=$1 WHERE id=$2`, locked, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "attempt %s", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row *sql.Row, ref string) (Attempt, error) {
	a, err := scanAttemptRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, apperr.Wrap(apperr.ErrNotFound, "attempt %s", ref)
	}
	return a, err
}

func scanAttemptRows(sc scanner) (Attempt, error) {
	var a Attempt
	var pkj, ij string
	var started sql.NullString
	if err := sc.Scan(&a.ID, &a.UserID, &a.TestRef, &pkj, &a.Total, &a.Correct, &a.Acc,
		&a.Listening.Total, &a.Listening.Correct, &a.Listening.Acc,
		&a.Reading.Total, &a.Reading.Correct, &a.Reading.Acc,
		&ij, &a.TimeSec, &started, &a.SubmittedAt,
		&a.Version, &a.Level, &a.IsFull, &a.FirstLocked); err != nil {
		return Attempt{}, err
	}
	a.StartedAt = started.String
	if err := json.Unmarshal([]byte(pkj), &a.PartKeys); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(ij), &a.Items); err != nil {
		return Attempt{}, err
	}
	if a.Items == nil {
		a.Items = []grading.ItemResult{}
	}
	return a, nil
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
