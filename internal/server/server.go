package server

import (
	"context"
	"log"
	"net/http"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/strefethen/spotify-hub-go/internal/api"
	"github.com/strefethen/spotify-hub-go/internal/catalog"
	"github.com/strefethen/spotify-hub-go/internal/config"
	"github.com/strefethen/spotify-hub-go/internal/db"
	"github.com/strefethen/spotify-hub-go/internal/device"
	"github.com/strefethen/spotify-hub-go/internal/openapi"
	"github.com/strefethen/spotify-hub-go/internal/player"
	"github.com/strefethen/spotify-hub-go/internal/session"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs all incoming HTTP requests
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s rid=%s", r.Method, r.URL.Path, wrapped.status, time.Since(start).Round(time.Millisecond), api.GetRequestID(r))
	})
}

// Options controls server wiring.
type Options struct {
	// DisableSessionPrune skips the cron sweep (for tests).
	DisableSessionPrune bool
}

// NewHandler builds the HTTP handler and returns a shutdown function.
func NewHandler(cfg config.Config, options Options) (http.Handler, func(context.Context) error, error) {
	log.Printf("Using database: %s", cfg.SQLiteDBPath)
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}

	logger := log.Default()

	repo := session.NewRepository(dbPair)
	refresher := session.NewOAuthRefresher(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	store := session.NewStore(repo, refresher, logger)
	if err := store.Restore(); err != nil {
		log.Printf("session restore failed: %v", err)
	}
	if !options.DisableSessionPrune {
		if err := store.StartPruneJob(cfg.SessionPruneSchedule, time.Duration(cfg.SessionTTLSec)*time.Second); err != nil {
			dbPair.Close()
			return nil, nil, err
		}
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes) // Handle trailing slashes like Node.js
	router.Use(api.RequestIDMiddleware)
	router.Use(requestLoggerMiddleware)
	router.Use(api.RecovererMiddleware)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler)
	router.Use(newRateLimiter(shutdownCtx, cfg.RateLimitRPS, cfg.RateLimitBurst).middleware)
	router.Use(session.Middleware(cfg, store))

	registerHealthRoutes(router)
	openapi.RegisterRoutes(router)

	controller := device.NewController(
		func(ctx context.Context) (string, error) {
			cred, err := store.Access(ctx)
			if err != nil {
				return "", err
			}
			return cred.AccessToken, nil
		},
		func(reason string) { store.Invalidate(reason) },
		logger,
	)

	catalogClient := catalog.NewClient(time.Duration(cfg.CatalogTimeoutMs) * time.Millisecond)

	coordinator := player.NewCoordinator(
		catalogClient,
		controller,
		store,
		store.IsValid,
		func(reason string) { store.Invalidate(reason) },
		cfg.TrackPageLimit,
		logger,
	)
	controller.Subscribe(coordinator.OnDeviceEvent)

	states := session.NewStateStore(5 * time.Minute)
	states.StartCleanup(shutdownCtx, time.Minute)

	authenticator := session.NewAuthenticator(cfg)
	onSignOut := func() {
		controller.Teardown()
		coordinator.HandleSignOut()
	}
	session.RegisterRoutes(router, session.NewRoutes(cfg, authenticator, states, store, onSignOut, logger))

	device.RegisterRoutes(router, controller)
	player.RegisterRoutes(router, coordinator, logger)

	// Serve static files
	router.Handle("/v1/assets/*", http.StripPrefix("/v1/assets/", http.FileServer(http.Dir("./assets"))))

	shutdown := func(ctx context.Context) error {
		shutdownCancel()
		store.StopPruneJob()
		controller.Teardown()
		if ctx == nil {
			ctx = context.Background()
		}
		return dbPair.Close()
	}

	return router, shutdown, nil
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		response := map[string]any{
			"status":    "healthy",
			"service":   "spotify-hub",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		return api.WriteJSON(w, http.StatusOK, response)
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}))
}
