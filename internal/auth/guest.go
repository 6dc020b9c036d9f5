package auth

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	authmw "github.com/toeigo/toeigo/internal/auth/middleware"
	"github.com/toeigo/toeigo/internal/config"
)

// GuestLoginHandler issues a throwaway student identity so placement tests
// work without registration. Guests start at level 1 like any new user.
func GuestLoginHandler(a *authmw.AuthService, db *sql.DB, cfg config.Config) http.HandlerFunc {
	type out struct {
		AccessToken string `json:"access_token"`
		Username    string `json:"username"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.EnableGuestAuth {
			http.Error(w, "guest auth disabled", http.StatusForbidden)
			return
		}

		// Reuse an existing guest identity from the cookie when possible.
		if c, err := r.Cookie("tg_guest_id"); err == nil && c.Value != "" && strings.HasPrefix(c.Value, "guest|") {
			var username, role string
			err := db.QueryRowContext(r.Context(),
				`SELECT username, role FROM users WHERE id=$1`, c.Value).Scan(&username, &role)
			if err == nil && role == "student" {
				tok, _ := a.IssueJWT(c.Value, role)
				setGuestCookie(w, c.Value)
				_ = json.NewEncoder(w).Encode(out{AccessToken: tok, Username: username})
				return
			}
		}

		sfx := strconv.FormatInt(time.Now().UnixNano(), 36)
		userID := "guest|" + sfx
		username := "guest-" + sfx[len(sfx)-6:]

		_, _ = db.ExecContext(r.Context(),
			`INSERT INTO users (id, username, role, level, created_at) VALUES ($1,$2,'student',1,$3)`,
			userID, username, time.Now().Unix())

		tok, err := a.IssueJWT(userID, "student")
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		setGuestCookie(w, userID)
		_ = json.NewEncoder(w).Encode(out{AccessToken: tok, Username: username})
	}
}

func setGuestCookie(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "tg_guest_id",
		Value:    userID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}
