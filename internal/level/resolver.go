// Package level resolves and maintains a user's unlocked difficulty tier.
package level

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/toeigo/toeigo/internal/scale"
)

type Resolver struct {
	db *sql.DB
}

func NewResolver(db *sql.DB) *Resolver { return &Resolver{db: db} }

// Resolve returns the requester's unlocked tier in [1,4]. Anonymous callers,
// unknown users, and junk stored values all fall back to tier 1; this never
// returns an error to the caller.
func (r *Resolver) Resolve(ctx context.Context, userID string) int {
	if userID == "" {
		return scale.MinLevel
	}
	var raw any
	err := r.db.QueryRowContext(ctx, `SELECT level FROM users WHERE id=$1`, userID).Scan(&raw)
	if err != nil {
		return scale.MinLevel
	}
	return coerceLevel(raw)
}

// Promote raises the stored level to lvl if it is higher than the current
// value. Levels are never lowered by grading outcomes.
func (r *Resolver) Promote(ctx context.Context, userID string, lvl int) error {
	if userID == "" {
		return nil
	}
	lvl = scale.ClampLevel(lvl)
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET level=$1 WHERE id=$2 AND level<$1`, lvl, userID)
	return err
}

// coerceLevel tolerates whatever ended up in the level column: integers,
// floats, numeric strings. Anything else means tier 1.
func coerceLevel(raw any) int {
	switch v := raw.(type) {
	case int64:
		return scale.ClampLevel(int(v))
	case float64:
		return scale.ClampLevel(int(v))
	case string:
		return levelFromString(v)
	case []byte:
		return levelFromString(string(v))
	default:
		return scale.MinLevel
	}
}

func levelFromString(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return scale.MinLevel
	}
	return scale.ClampLevel(int(f))
}
