package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	authmw "github.com/toeigo/toeigo/internal/auth/middleware"
	"github.com/toeigo/toeigo/internal/config"
)

// POST /auth/login  { "username": "...", "password": "..." }
// Checks the users table first; the env-configured admin credential is a
// bootstrap fallback for fresh databases.
func LoginHandler(a *authmw.AuthService, db *sql.DB, cfg config.Config) http.HandlerFunc {
	type out struct {
		AccessToken string `json:"access_token"`
		Role        string `json:"role"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			http.Error(w, "username and password required", http.StatusBadRequest)
			return
		}

		var userID, hash, role string
		err := db.QueryRowContext(r.Context(),
			`SELECT id, pass_hash, role FROM users WHERE username=$1`, req.Username).
			Scan(&userID, &hash, &role)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if req.Username == cfg.AdminUser && cfg.AdminPassHash != "" &&
				bcrypt.CompareHashAndPassword([]byte(cfg.AdminPassHash), []byte(req.Password)) == nil {
				userID, role = cfg.AdminUser, "admin"
				break
			}
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		case err != nil:
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		default:
			if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
		}

		tok, err := a.IssueJWT(userID, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out{AccessToken: tok, Role: role})
	}
}
