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

	"github.com/presemt/presemt/backend-go/internal/asset"
	"github.com/presemt/presemt/backend-go/internal/auth"
	"github.com/presemt/presemt/backend-go/internal/collab"
	"github.com/presemt/presemt/backend-go/internal/config"
	"github.com/presemt/presemt/backend-go/internal/document"
	"github.com/presemt/presemt/backend-go/internal/engine"
	"github.com/presemt/presemt/backend-go/internal/export"
	"github.com/presemt/presemt/backend-go/internal/gesture"
	mw "github.com/presemt/presemt/backend-go/internal/middleware"
	"github.com/presemt/presemt/backend-go/internal/plane"
	"github.com/presemt/presemt/backend-go/internal/session"
	"github.com/presemt/presemt/backend-go/internal/typeid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	level, err := cfg.Level()
	if err != nil {
		slog.Warn("falling back to info logging", "error", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assetHandler := asset.NewHandler(cfg.AssetDir)

	hub := collab.NewHub(ctx, engine.Options{
		Grid:    plane.Grid{Spacing: cfg.GridSpacing, Extent: cfg.GridExtent},
		MinZoom: cfg.MinZoom,
		MaxZoom: cfg.MaxZoom,
		Gesture: gesture.Options{
			ArmSelection:      cfg.AutoArmSelection,
			DoubleTapInterval: cfg.DoubleTapInterval,
			DoubleTapDistance: cfg.DoubleTapDistance,
		},
		ImageSize: func(source string) (plane.Size, error) {
			f, err := os.Open(assetHandler.Path(source))
			if err != nil {
				return plane.Size{}, err
			}
			defer f.Close()
			w, h, err := asset.Dimensions(f)
			if err != nil {
				return plane.Size{}, err
			}
			return plane.Size{Width: float64(w), Height: float64(h)}, nil
		},
		Logger: slog.Default(),
	})

	authService := auth.NewService(cfg.JWTSecret, cfg.SessionTokenTTL)
	authHandler := auth.NewHandler(authService)

	sessionService := session.NewService(hub, authService)
	sessionHandler := session.NewHandler(sessionService)

	// The playground is open to anyone and starts from the sample canvas.
	if _, err := sessionService.Host(cfg.PlaygroundID, "Playground", document.NewSampleDocument(cfg.PlaygroundID)); err != nil {
		slog.Error("host playground", "error", err)
		os.Exit(1)
	}

	exportHandler, err := export.NewHandler(hub, sessionService, assetHandler.Path, cfg.FfmpegPath)
	if err != nil {
		slog.Error("create export handler", "error", err)
		os.Exit(1)
	}

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Session routes (public)
	r.HandleFunc("/sessions", sessionHandler.List).Methods("GET")
	r.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/sessions/{sessionId}/join", sessionHandler.Join).Methods("POST", "OPTIONS")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Asset endpoints (public, used by the playground too)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Export: anonymous for hosted sessions, token otherwise
	exports := r.PathPrefix("/export").Subrouter()
	exports.Use(authService.OptionalMiddleware)
	exports.HandleFunc("/{sessionId}.png", exportHandler.Snapshot).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/token", authHandler.Refresh).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{sessionId}", sessionHandler.Get).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}", sessionHandler.Delete).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/sessions/{sessionId}/document", sessionHandler.GetDocument).Methods("GET")
	api.HandleFunc("/assets/{assetId}", assetHandler.HandleDelete).Methods("DELETE", "OPTIONS")

	// WebSocket endpoint
	r.HandleFunc("/ws/session/{sessionId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, sessionService, cfg.Origins())
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

		// Stop rooms first so clients get a close frame
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "playground", cfg.PlaygroundID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, sessions *session.Service, origins []string) {
	sessionID := mux.Vars(r)["sessionId"]

	var claims *auth.Claims
	if token := r.URL.Query().Get("token"); token != "" {
		var err error
		claims, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	if _, err := sessions.Authorize(claims, sessionID); err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			http.Error(w, "session not found", http.StatusNotFound)
		case claims == nil:
			http.Error(w, "missing token", http.StatusUnauthorized)
		default:
			http.Error(w, "not a session member", http.StatusForbidden)
		}
		return
	}

	// Hosted sessions admit anonymous users
	userID, displayName := "anon-"+uuid.New().String()[:8], "Anonymous"
	if claims != nil {
		userID, displayName = claims.UserID(), claims.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(origins),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(hub, conn, userID, displayName, sessionID, typeid.NewClientID())

	if err := hub.Register(client); err != nil {
		slog.Warn("websocket register", "session", sessionID, "error", err)
		conn.Close(websocket.StatusPolicyViolation, "session closed")
		return
	}

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
