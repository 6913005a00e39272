// Package server provides HTTP server initialization and lifecycle management
// for the Memovo API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/memovo/memovo/internal/chat"
	"github.com/memovo/memovo/internal/config"
	"github.com/memovo/memovo/internal/semantic"
	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/internal/wellbeing"
	"github.com/memovo/memovo/web/handlers"
)

// Services carries the application services the HTTP layer exposes.
type Services struct {
	Orchestrator *chat.Orchestrator
	Semantic     *semantic.Service
	Wellbeing    *wellbeing.Service
	Working      storage.WorkingMemoryStore
	Episodic     storage.EpisodicMemoryStore
	Sessions     storage.SessionRegistry

	// Hub is optional; when nil, Start creates its own. Pass one in when
	// consolidation events must be wired to it before the server accepts
	// requests.
	Hub *handlers.WebSocketHub
}

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server.
// Returns the actual address being listened on (useful for testing with port 0)
// and the WebSocketHub for wiring consolidation event broadcasts.
func Start(ctx context.Context, cfg *config.Config, svcs Services) (string, *handlers.WebSocketHub) {
	mux := http.NewServeMux()

	// Create WebSocket hub
	wsHub := svcs.Hub
	if wsHub == nil {
		wsHub = handlers.NewWebSocketHub()
	}
	go wsHub.Run()

	rateLimiter := handlers.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)

	chatHandler := handlers.NewChatHandler(svcs.Orchestrator)
	sessionHandlers := handlers.NewSessionHandlers(svcs.Sessions)
	memoryHandlers := handlers.NewMemoryHandlers(svcs.Working, svcs.Episodic)
	semanticHandlers := handlers.NewSemanticHandlers(svcs.Semantic)
	wellbeingHandlers := handlers.NewWellbeingHandlers(svcs.Wellbeing)

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()

	apiMux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandler.Stream(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Session routes
	apiMux.HandleFunc("/api/users/{userId}/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			sessionHandlers.ListSessions(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/users/{userId}/sessions/{sessionId}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sessionHandlers.GetSession(w, r)
		case http.MethodPatch:
			sessionHandlers.UpdateSession(w, r)
		case http.MethodDelete:
			sessionHandlers.DeleteSession(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Working memory routes
	apiMux.HandleFunc("/api/users/{userId}/sessions/{sessionId}/memory", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			memoryHandlers.ListSessionMemory(w, r)
		case http.MethodDelete:
			memoryHandlers.ClearSessionMemory(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/users/{userId}/memory", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			memoryHandlers.ListUserMemory(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/memory", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			memoryHandlers.CreateMemory(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/memory/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			memoryHandlers.DeleteMemory(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Episodic snapshot routes
	apiMux.HandleFunc("/api/users/{userId}/snapshots", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			memoryHandlers.ListSnapshots(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/users/{userId}/snapshots/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			memoryHandlers.GetSnapshot(w, r)
		case http.MethodDelete:
			memoryHandlers.DeleteSnapshot(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/snapshots", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			memoryHandlers.CreateSnapshot(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Semantic memory routes
	apiMux.HandleFunc("/api/semantic", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			semanticHandlers.Ingest(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/semantic/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			semanticHandlers.Search(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Wellbeing routes
	apiMux.HandleFunc("/api/users/{userId}/wellbeing", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			wellbeingHandlers.DailyInsights(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Health endpoint — no auth required, used by monitoring
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
	})

	// Wrap API routes with auth middleware
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// WebSocket endpoint (no auth required - origin validation handles security)
	mux.Handle("/ws/events", wsHub)

	// Wrap entire server with rate limiting, then security headers
	handler := rateLimiter.Middleware(mux)
	handler = securityHeadersMiddleware(handler)

	// No WriteTimeout: the chat and ingestion endpoints hold the connection
	// open while the model streams.
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub
}
