// Package server composes the HTTP router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"icarus/internal/config"
	"icarus/internal/entries"
	"icarus/internal/handlers"
	mw "icarus/internal/middleware"
	"icarus/internal/store"
)

type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   *store.Store
	Entries *entries.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(mw.RequestLogger(d.Logger, !cfg.IsProd()))
	r.Use(middleware.Recoverer)
	r.Use(mw.Prometheus)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authHandler := handlers.NewAuthHandler(d.Store, []byte(cfg.JWTSecret), cfg.JWTTTL(), cfg.IsProd(), d.Logger)
	userHandler := handlers.NewUserHandler(d.Entries, d.Logger)
	entryHandler := handlers.NewEntryHandler(d.Entries, d.Logger)
	importHandler := handlers.NewImportHandler(d.Entries, d.Logger)
	historyHandler := handlers.NewHistoryHandler(d.Entries, d.Logger)
	authMW := mw.NewAuthMiddleware([]byte(cfg.JWTSecret), d.Store, d.Logger)
	limiter := mw.AuthRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(pub chi.Router) {
		pub.Use(limiter.Middleware)
		pub.Post("/signup", authHandler.Signup)
		pub.Post("/login", authHandler.Login)
	})
	r.Post("/logout", authHandler.Logout)
	r.With(authMW.RequireAuth).Post("/", authHandler.Verify)

	r.Route("/user", func(u chi.Router) {
		u.Use(authMW.RequireAuth)
		u.Post("/updateProteinGoal", userHandler.UpdateProteinGoal)
		u.Get("/getProteinGoal", userHandler.GetProteinGoal)
		u.Post("/addEntry", entryHandler.AddEntry)
		u.Get("/getTodaysEntries", entryHandler.GetTodaysEntries)
		u.Get("/sumTodaysEntries", entryHandler.SumTodaysEntries)
		u.Delete("/deleteEntry/{entryId}", entryHandler.DeleteEntry)
		u.Get("/getAllPastEntries", entryHandler.GetAllPastEntries)
		u.Post("/importEntries", importHandler.ImportEntries)
		u.Get("/dailyTotals", historyHandler.DailyTotals)
	})

	return r
}
