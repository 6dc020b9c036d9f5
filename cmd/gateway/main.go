package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/toeigo/toeigo/internal/api/http"
	"github.com/toeigo/toeigo/internal/attempt"
	"github.com/toeigo/toeigo/internal/auth"
	authmw "github.com/toeigo/toeigo/internal/auth/middleware"
	"github.com/toeigo/toeigo/internal/bank"
	"github.com/toeigo/toeigo/internal/config"
	"github.com/toeigo/toeigo/internal/db"
	"github.com/toeigo/toeigo/internal/level"
	"github.com/toeigo/toeigo/internal/rbac"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	bankStore := bank.NewSQLStore(dbh)
	attemptStore := attempt.NewSQLStore(dbh)
	levels := level.NewResolver(dbh)
	svc := attempt.NewService(bankStore, attemptStore, levels, cfg.EnableLevelPromotion)

	authSvc := authmw.NewAuthService(cfg.AuthSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, dbh, cfg))
	}
	if cfg.EnableGuestAuth {
		r.Post("/auth/guest", auth.GuestLoginHandler(authSvc, dbh, cfg))
	}

	// Protected API (JWT → subject+role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))

		pr.With(rbac.Require("test:view")).
			Get("/tests", api.ListTestsHandler(bankStore, levels))
		pr.With(rbac.Require("test:view")).
			Get("/tests/{testID}", api.GetTestHandler(bankStore, levels))

		pr.With(rbac.Require("attempt:submit")).
			Post("/tests/{testRef}/submit", api.SubmitHandler(svc))

		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(attemptStore))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}/items", api.ReplayItemsHandler(svc))

		pr.With(rbac.Require("attempt:lock")).
			Post("/attempts/{attemptID}/lock", api.LockAttemptHandler(attemptStore))

		pr.With(rbac.Require("item:view")).
			Post("/items/fetch", api.FetchItemsHandler(bankStore))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
