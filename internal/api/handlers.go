package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/arden/townsim/internal/townsim"
	"github.com/arden/townsim/internal/ws"
)

// Handler serves the HTTP surface over an App, grounded on the teacher's
// api.Handler (internal/api/handlers.go) wrapping a *game.Manager — here it
// wraps the townsim Supervisor/Engine pair instead, translating REST calls
// into Input appends and polling their return values per spec.md §6.
type Handler struct {
	app       *App
	wsHandler *ws.Handler
}

func NewHandler(app *App, hub *ws.Hub) *Handler {
	h := &Handler{app: app}
	h.wsHandler = ws.NewHandler(hub, h)
	return h
}

// WebSocket implements GET /ws/world/{id}, grounded on the teacher's
// WebSocket handler (internal/api/handlers.go).
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	if _, ok := h.app.GetWorld(worldID); !ok {
		writeError(w, http.StatusNotFound, "world not found")
		return
	}
	h.wsHandler.ServeWS(w, r, uuid.UUID(worldID))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusForErrorKind maps the kernel's closed ErrorKind set onto HTTP
// status codes, grounded on spec.md §7's error-kind-to-response mapping.
func statusForErrorKind(kind townsim.ErrorKind) int {
	switch kind {
	case townsim.ErrInvalidInput:
		return http.StatusBadRequest
	case townsim.ErrNotFound:
		return http.StatusNotFound
	case townsim.ErrConflict:
		return http.StatusConflict
	case townsim.ErrRateLimited:
		return http.StatusTooManyRequests
	case townsim.ErrTimedOut:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(w http.ResponseWriter, res townsim.Result) {
	if res.IsOK() {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "value": res.Value()})
		return
	}
	writeJSON(w, statusForErrorKind(res.ErrorKind()), map[string]any{
		"ok":    false,
		"error": res.Message(),
		"kind":  res.ErrorKind(),
	})
}

// CreateWorld implements POST /api/worlds, grounded on the teacher's
// CreateGame handler (internal/api/handlers.go).
func (h *Handler) CreateWorld(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  int   `json:"width"`
		Height int   `json:"height"`
		Seed   int64 `json:"seed"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Width <= 0 {
		req.Width = 64
	}
	if req.Height <= 0 {
		req.Height = 64
	}
	id := h.app.CreateWorld(req.Width, req.Height, req.Seed)
	writeJSON(w, http.StatusCreated, map[string]string{"worldId": id.String()})
}

// ListWorlds implements GET /api/worlds.
func (h *Handler) ListWorlds(w http.ResponseWriter, r *http.Request) {
	handles := h.app.Supervisor.All()
	out := make([]map[string]any, 0, len(handles))
	for _, handle := range handles {
		out = append(out, map[string]any{
			"worldId":     handle.World.ID.String(),
			"status":      handle.World.GetStatus(),
			"tick":        handle.World.Tick,
			"playerCount": handle.World.PlayerCount(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetWorldState implements GET /api/worlds/{id}, grounded on the teacher's
// GetGameState handler's snapshot shape (internal/api/handlers.go).
func (h *Handler) GetWorldState(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	handle, ok := h.app.GetWorld(worldID)
	if !ok {
		writeError(w, http.StatusNotFound, "world not found")
		return
	}
	players := handle.World.AllPlayers()
	snapshots := make([]townsim.PlayerSnapshot, 0, len(players))
	for _, p := range players {
		snapshots = append(snapshots, p.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"worldId": handle.World.ID.String(),
		"status":  handle.World.GetStatus(),
		"tick":    handle.World.Tick,
		"players": snapshots,
	})
}

// GetFullState implements ws.WorldStateProvider, feeding the initial
// snapshot a newly connected websocket client receives on join.
func (h *Handler) GetFullState(rawWorldID uuid.UUID) (interface{}, error) {
	worldID := townsim.WorldID(rawWorldID)
	handle, ok := h.app.GetWorld(worldID)
	if !ok {
		return nil, errNotFound
	}
	players := handle.World.AllPlayers()
	snapshots := make([]townsim.PlayerSnapshot, 0, len(players))
	for _, p := range players {
		snapshots = append(snapshots, p.Snapshot())
	}
	return map[string]any{
		"worldId": handle.World.ID.String(),
		"tick":    handle.World.Tick,
		"players": snapshots,
	}, nil
}

// StartWorld implements POST /api/worlds/{id}/start.
func (h *Handler) StartWorld(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	if !h.app.Supervisor.Start(r.Context(), worldID, time.Now()) {
		writeError(w, http.StatusNotFound, "world not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"started": true})
}

// StopWorld implements POST /api/worlds/{id}/stop.
func (h *Handler) StopWorld(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	if !h.app.Supervisor.Stop(worldID) {
		writeError(w, http.StatusNotFound, "world not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": true})
}

// KickWorld implements POST /api/dev/kick/{id} (dev mode only), grounded
// on the teacher's ForceTick dev route (internal/api/handlers.go), forcing
// a step to run immediately instead of waiting for the next step period.
func (h *Handler) KickWorld(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	if !h.app.Supervisor.Kick(worldID, time.Now()) {
		writeError(w, http.StatusNotFound, "world not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "tick processed"})
}

// Join implements POST /api/worlds/{id}/join, translating the request body
// into a townsim.InputJoin append, grounded on spec.md §6's join(name,
// character, description, isHuman, personality?) contract.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	var req struct {
		Name        string `json:"name"`
		Character   string `json:"character"`
		Description string `json:"description"`
		IsHuman     bool   `json:"isHuman"`
		Personality string `json:"personality"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	args := map[string]any{
		"name":        req.Name,
		"character":   req.Character,
		"description": req.Description,
		"isHuman":     req.IsHuman,
		"personality": req.Personality,
	}
	h.submit(w, r, worldID, townsim.InputJoin, townsim.PlayerID{}, args)
}

// Leave implements POST /api/worlds/{id}/leave.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	playerID, err := ParsePlayerID(r.URL.Query().Get("playerId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playerId")
		return
	}
	h.submit(w, r, worldID, townsim.InputLeave, playerID, nil)
}

// MoveTo implements POST /api/worlds/{id}/move, grounded on spec.md §6's
// moveTo(playerId, destination|null) contract.
func (h *Handler) MoveTo(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	var req struct {
		PlayerID    string `json:"playerId"`
		Destination *struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	playerID, err := ParsePlayerID(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playerId")
		return
	}
	args := map[string]any{}
	if req.Destination == nil {
		args["destination"] = nil
	} else {
		args["destination"] = true
		args["x"] = req.Destination.X
		args["y"] = req.Destination.Y
	}
	h.submit(w, r, worldID, townsim.InputMoveTo, playerID, args)
}

// CreateAgentFromAIArena implements POST /api/worlds/{id}/agents, grounded
// on spec.md §6's createAgentFromAIArena(aiArenaBotId, name, character?,
// identity?, plan?, personality?, initialZone?) contract.
func (h *Handler) CreateAgentFromAIArena(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	var req struct {
		AIArenaBotID string `json:"aiArenaBotId"`
		Name         string `json:"name"`
		Character    string `json:"character"`
		Identity     string `json:"identity"`
		Plan         string `json:"plan"`
		Personality  string `json:"personality"`
		InitialZone  string `json:"initialZone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	args := map[string]any{
		"aiArenaBotId": req.AIArenaBotID,
		"name":         req.Name,
		"character":    req.Character,
		"identity":     req.Identity,
		"plan":         req.Plan,
		"personality":  req.Personality,
		"initialZone":  req.InitialZone,
	}
	h.submit(w, r, worldID, townsim.InputCreateAgentFromAIArena, townsim.PlayerID{}, args)
}

// UpdatePlayerEquipment implements POST /api/worlds/{id}/equipment,
// grounded on spec.md §6's updatePlayerEquipment(playerId, powerBonus,
// defenseBonus) contract.
func (h *Handler) UpdatePlayerEquipment(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	var req struct {
		PlayerID     string `json:"playerId"`
		PowerBonus   int    `json:"powerBonus"`
		DefenseBonus int    `json:"defenseBonus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	playerID, err := ParsePlayerID(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playerId")
		return
	}
	args := map[string]any{
		"powerBonus":   req.PowerBonus,
		"defenseBonus": req.DefenseBonus,
	}
	h.submit(w, r, worldID, townsim.InputUpdatePlayerEquipment, playerID, args)
}

// StartConversation implements POST /api/worlds/{id}/conversations,
// grounded on spec.md §6's startConversation(playerId, targetPlayerId).
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	var req struct {
		PlayerID       string `json:"playerId"`
		TargetPlayerID string `json:"targetPlayerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	playerID, err := ParsePlayerID(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playerId")
		return
	}
	targetID, err := ParsePlayerID(req.TargetPlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid targetPlayerId")
		return
	}
	args := map[string]any{"targetId": targetID}
	h.submit(w, r, worldID, townsim.InputStartConversation, playerID, args)
}

// SendMessage implements POST /api/worlds/{id}/messages, grounded on
// spec.md §6's sendMessage(playerId, text) contract for human-driven
// conversation lines.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	var req struct {
		PlayerID string `json:"playerId"`
		Text     string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	playerID, err := ParsePlayerID(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playerId")
		return
	}
	args := map[string]any{"text": req.Text}
	h.submit(w, r, worldID, townsim.InputSendMessage, playerID, args)
}

// LeaveConversation implements POST /api/worlds/{id}/conversations/leave.
func (h *Handler) LeaveConversation(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	playerID, err := ParsePlayerID(r.URL.Query().Get("playerId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playerId")
		return
	}
	h.submit(w, r, worldID, townsim.InputLeaveConversation, playerID, nil)
}

// StartRobbery implements POST /api/worlds/{id}/robbery, grounded on
// spec.md §6's startRobbery(playerId, targetPlayerId) contract.
func (h *Handler) StartRobbery(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	var req struct {
		PlayerID       string `json:"playerId"`
		TargetPlayerID string `json:"targetPlayerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	playerID, err := ParsePlayerID(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playerId")
		return
	}
	targetID, err := ParsePlayerID(req.TargetPlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid targetPlayerId")
		return
	}
	args := map[string]any{"targetPlayerId": targetID}
	h.submit(w, r, worldID, townsim.InputStartRobbery, playerID, args)
}

// StartCombat implements POST /api/worlds/{id}/combat, grounded on
// spec.md §6's startCombat(playerId, targetPlayerId) contract.
func (h *Handler) StartCombat(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID) {
	var req struct {
		PlayerID       string `json:"playerId"`
		TargetPlayerID string `json:"targetPlayerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	playerID, err := ParsePlayerID(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playerId")
		return
	}
	targetID, err := ParsePlayerID(req.TargetPlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid targetPlayerId")
		return
	}
	args := map[string]any{"opponentId": targetID}
	h.submit(w, r, worldID, townsim.InputStartCombat, playerID, args)
}

// CascadeDeleteBot implements DELETE /api/worlds/{id}/agents/{botId},
// grounded on spec.md §4.9's external-triggered cascade delete by
// aiArenaBotId.
func (h *Handler) CascadeDeleteBot(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID, botID string) {
	if err := h.app.Supervisor.CascadeDeleteBot(r.Context(), worldID, botID, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// GetInputResult implements GET /api/worlds/{id}/inputs/{number}, the
// polling endpoint spec.md §6 describes as the sole way external callers
// observe an already-submitted input's completion.
func (h *Handler) GetInputResult(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID, numberStr string) {
	number, err := strconv.ParseInt(numberStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid input number")
		return
	}
	handle, ok := h.app.GetWorld(worldID)
	if !ok {
		writeError(w, http.StatusNotFound, "world not found")
		return
	}
	res, ok := handle.Engine.ReturnValue(number)
	if !ok {
		writeJSON(w, http.StatusAccepted, map[string]bool{"pending": true})
		return
	}
	writeResult(w, res)
}

// submit appends the input and blocks (bounded) for its return value,
// matching spec.md §6's synchronous-looking external caller contract even
// though the kernel itself never blocks a tick on it.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, worldID townsim.WorldID, name townsim.InputName, playerID townsim.PlayerID, args map[string]any) {
	res, err := h.app.SubmitAndAwait(r.Context(), worldID, name, playerID, args)
	if err != nil {
		if err == errNotFound {
			writeError(w, http.StatusNotFound, "world not found")
			return
		}
		if err == errTimedOut {
			writeError(w, http.StatusGatewayTimeout, "timed out waiting for input to process")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeResult(w, res)
}
