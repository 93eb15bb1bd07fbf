package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/geometer/geometer/backend-go/internal/auth"
	"github.com/geometer/geometer/backend-go/internal/board"
	"github.com/geometer/geometer/backend-go/internal/collab"
	"github.com/geometer/geometer/backend-go/internal/config"
	"github.com/geometer/geometer/backend-go/internal/db"
	mw "github.com/geometer/geometer/backend-go/internal/middleware"
	"github.com/geometer/geometer/backend-go/internal/sketch"
	"github.com/geometer/geometer/backend-go/internal/typeid"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	queries := db.New(pool)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	sketchService := sketch.NewService(queries)
	sketchHandler := sketch.NewHandler(sketchService)

	// Board loader for the collaboration hub. The playground has no
	// sketch row; it always starts from an empty board.
	boardLoader := func(sketchID string) (*board.Board, error) {
		if sketch.IsPlayground(sketchID) {
			return board.New(), nil
		}
		snap, err := queries.GetLatestSnapshot(context.Background(), sketchID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return board.New(), nil
			}
			return nil, err
		}
		b := board.New()
		if err := b.Load(snap.Records); err != nil {
			return nil, err
		}
		return b, nil
	}

	// Board saver for the collaboration hub. The playground is never
	// persisted; snapshots carry a foreign key into sketches and the
	// playground has no row there.
	boardSaver := func(sketchID string, records []byte) error {
		if sketch.IsPlayground(sketchID) {
			return nil
		}

		// Get current version to increment
		currentSnap, err := queries.GetLatestSnapshot(context.Background(), sketchID)
		nextVersion := int32(1)
		if err == nil {
			nextVersion = currentSnap.Version + 1
		}

		_, err = queries.CreateSnapshot(context.Background(), db.CreateSnapshotParams{
			ID:       typeid.NewSnapshotID(),
			SketchID: sketchID,
			Version:  nextVersion,
			Records:  records,
		})
		if err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}

		return nil
	}

	hub := collab.NewHub(boardLoader, boardSaver, time.Duration(cfg.SaveInterval)*time.Second)
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.AllowedOrigins))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/sketches", sketchHandler.List).Methods("GET")
	api.HandleFunc("/sketches", sketchHandler.Create).Methods("POST")
	api.HandleFunc("/sketches/{sketchId}", sketchHandler.Get).Methods("GET")
	api.HandleFunc("/sketches/{sketchId}", sketchHandler.Delete).Methods("DELETE")
	api.HandleFunc("/sketches/{sketchId}/invite", sketchHandler.Invite).Methods("POST")
	api.HandleFunc("/sketches/{sketchId}/members", sketchHandler.ListMembers).Methods("GET")
	api.HandleFunc("/sketches/{sketchId}/members/{userId}", sketchHandler.RemoveMember).Methods("DELETE")
	api.HandleFunc("/sketches/{sketchId}/snapshots/latest", sketchHandler.GetLatestSnapshot).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/sketch/{sketchId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, queries)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty boards
		slog.Info("saving all boards...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, queries *db.Queries) {
	vars := mux.Vars(r)
	sketchID := vars["sketchId"]

	var userID string
	var displayName string

	// Playground sketch allows anonymous access
	if sketch.IsPlayground(sketchID) {
		// Anonymous user for playground
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		// Auth via query param for real sketches
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		// Check membership
		_, err = queries.GetSketchMember(r.Context(), db.GetSketchMemberParams{
			SketchID: sketchID,
			UserID:   userID,
		})
		if err != nil {
			http.Error(w, "not a sketch member", http.StatusForbidden)
			return
		}

		// Get user display name
		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:5173", "localhost:3000"},
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(hub, conn, userID, displayName, sketchID, typeid.NewClientID())

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
