package api

import (
	"net/http"

	"github.com/arden/townsim/internal/config"
	"github.com/arden/townsim/internal/townsim"
	"github.com/arden/townsim/internal/ws"
)

// NewRouter creates the HTTP router with all routes, grounded on the
// teacher's NewRouter (internal/api/routes.go), generalized from the
// game/{id} route tree to townsim's worlds/{id} tree per spec.md §6.
func NewRouter(app *App, hub *ws.Hub, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()
	handler := NewHandler(app, hub)

	mux.HandleFunc("GET /health", handler.Health)

	mux.HandleFunc("GET /api/worlds", handler.ListWorlds)
	mux.HandleFunc("POST /api/worlds", handler.CreateWorld)
	mux.HandleFunc("GET /api/worlds/{id}", withWorldID(handler.GetWorldState))
	mux.HandleFunc("POST /api/worlds/{id}/start", withWorldID(handler.StartWorld))
	mux.HandleFunc("POST /api/worlds/{id}/stop", withWorldID(handler.StopWorld))

	mux.HandleFunc("POST /api/worlds/{id}/join", withWorldID(handler.Join))
	mux.HandleFunc("POST /api/worlds/{id}/leave", withWorldID(handler.Leave))
	mux.HandleFunc("POST /api/worlds/{id}/move", withWorldID(handler.MoveTo))
	mux.HandleFunc("POST /api/worlds/{id}/agents", withWorldID(handler.CreateAgentFromAIArena))
	mux.HandleFunc("DELETE /api/worlds/{id}/agents/{botId}", func(w http.ResponseWriter, r *http.Request) {
		worldID, err := ParseWorldID(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid world id")
			return
		}
		handler.CascadeDeleteBot(w, r, worldID, r.PathValue("botId"))
	})
	mux.HandleFunc("POST /api/worlds/{id}/equipment", withWorldID(handler.UpdatePlayerEquipment))

	mux.HandleFunc("POST /api/worlds/{id}/conversations", withWorldID(handler.StartConversation))
	mux.HandleFunc("POST /api/worlds/{id}/conversations/leave", withWorldID(handler.LeaveConversation))
	mux.HandleFunc("POST /api/worlds/{id}/messages", withWorldID(handler.SendMessage))

	mux.HandleFunc("POST /api/worlds/{id}/robbery", withWorldID(handler.StartRobbery))
	mux.HandleFunc("POST /api/worlds/{id}/combat", withWorldID(handler.StartCombat))

	mux.HandleFunc("GET /api/worlds/{id}/inputs/{number}", func(w http.ResponseWriter, r *http.Request) {
		worldID, err := ParseWorldID(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid world id")
			return
		}
		handler.GetInputResult(w, r, worldID, r.PathValue("number"))
	})

	mux.HandleFunc("GET /ws/world/{id}", withWorldID(handler.WebSocket))

	if cfg.Dev.Enabled {
		mux.HandleFunc("POST /api/dev/kick/{id}", withWorldID(handler.KickWorld))
	}

	return corsMiddleware(mux)
}

// withWorldID adapts a handler taking a parsed townsim.WorldID to the
// plain http.HandlerFunc signature ServeMux expects, grounded on the
// teacher's per-handler uuid.Parse(r.PathValue("id")) boilerplate
// (internal/api/handlers.go) collapsed into one helper.
func withWorldID(next func(http.ResponseWriter, *http.Request, townsim.WorldID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		worldID, err := ParseWorldID(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid world id")
			return
		}
		next(w, r, worldID)
	}
}

// corsMiddleware adds CORS headers for development, grounded on the
// teacher's corsMiddleware (internal/api/routes.go).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
