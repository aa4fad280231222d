package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/arden/townsim/internal/townsim"
	"github.com/arden/townsim/internal/townsim/handlers"
	"github.com/arden/townsim/internal/ws"
)

// App is the process-wide seam between the HTTP ingress and the kernel,
// grounded on the teacher's game.Manager being the thing api.Handler held
// a pointer to (internal/api/handlers.go) — here it wraps townsim's own
// Supervisor instead of duplicating its registry.
//
// This package, and main.go, make up the HTTP/CLI surface spec.md §6
// calls out as explicitly external to the kernel ("this spec only
// requires that the kernel expose the input journal and the operation
// callback"); it exists so the repo runs standalone, the way the
// teacher's own api+cmd/server layer runs its game package standalone.
type App struct {
	Supervisor *townsim.Supervisor
	registry   *townsim.HandlerRegistry
	reasoning  townsim.ReasoningClient
	store      townsim.Store
	logger     *slog.Logger
}

func NewApp(store townsim.Store, reasoning townsim.ReasoningClient, logger *slog.Logger) *App {
	registry := townsim.NewHandlerRegistry()
	handlers.RegisterAll(registry)
	return &App{
		Supervisor: townsim.NewSupervisor(store, logger),
		registry:   registry,
		reasoning:  reasoning,
		store:      store,
		logger:     logger,
	}
}

// WireHub registers the Supervisor's step hook to push a TickUpdateMessage
// to every viewer of a world whenever that world commits a step, grounded
// on the teacher's Engine pushing tick diffs straight into its Hub
// (game/engine.go) — here the kernel only announces the tick, and this
// package (not townsim) decides what a viewer sees.
func (a *App) WireHub(hub *ws.Hub) {
	a.Supervisor.OnStep(func(worldID townsim.WorldID, tick int64) {
		h, ok := a.GetWorld(worldID)
		if !ok {
			return
		}
		players := h.World.AllPlayers()
		snapshots := make([]townsim.PlayerSnapshot, 0, len(players))
		for _, p := range players {
			snapshots = append(snapshots, p.Snapshot())
		}
		playersJSON, err := json.Marshal(snapshots)
		if err != nil {
			a.logger.Warn("failed to marshal tick snapshot", "world", worldID.String(), "err", err)
			return
		}
		hub.BroadcastToWorld(uuid.UUID(worldID), ws.TickUpdateMessage{
			Type:    "tick",
			Tick:    tick,
			WorldID: uuid.UUID(worldID),
			Changes: ws.TickChangesMessage{Players: playersJSON},
		})
	})
}

// CreateWorld builds a fresh WorldMap/World/Engine triple, registers it
// with the Supervisor, and returns its id, grounded on the teacher's
// Manager.CreateGame (game/manager.go).
func (a *App) CreateWorld(width, height int, seed int64) townsim.WorldID {
	now := time.Now()
	worldID := townsim.NewWorldID()
	wm := townsim.NewWorldMap(width, height)
	world := townsim.NewWorld(worldID, wm, seed)

	pf := townsim.NewPathfinder()
	engine := townsim.NewEngine(townsim.NewEngineID(), world, a.registry, pf, a.store, nil, a.logger, now)
	runner := townsim.NewOperationRunner(a.reasoning, a.store, engine.AppendInputFollowUp, a.logger)
	engine.Runner = runner

	a.Supervisor.Register(&townsim.WorldHandle{World: world, Engine: engine})
	return worldID
}

func (a *App) GetWorld(id townsim.WorldID) (*townsim.WorldHandle, bool) {
	return a.Supervisor.Get(id)
}

// SubmitAndAwait appends an input and waits (kicking the engine so the
// step runs inline rather than waiting for the next scheduler tick) for
// its return value, grounded on spec.md §6's "HTTP wrappers poll input
// return values" external-caller contract.
func (a *App) SubmitAndAwait(ctx context.Context, worldID townsim.WorldID, name townsim.InputName, playerID townsim.PlayerID, args map[string]any) (townsim.Result, error) {
	h, ok := a.GetWorld(worldID)
	if !ok {
		return townsim.Result{}, errNotFound
	}
	number, err := h.Engine.AppendInput(name, playerID, args)
	if err != nil {
		return townsim.Result{}, err
	}

	a.Supervisor.Kick(worldID, time.Now())

	deadline := time.Now().Add(3 * time.Second)
	for {
		if res, ok := h.Engine.ReturnValue(number); ok {
			return res, nil
		}
		if time.Now().After(deadline) {
			return townsim.Result{}, errTimedOut
		}
		select {
		case <-ctx.Done():
			return townsim.Result{}, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

type appError string

func (e appError) Error() string { return string(e) }

const (
	errNotFound appError = "world not found"
	errTimedOut appError = "timed out waiting for input to process"
)

// ParseWorldID parses a string into a townsim.WorldID.
func ParseWorldID(s string) (townsim.WorldID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return townsim.WorldID{}, err
	}
	return townsim.WorldID(id), nil
}

// ParsePlayerID parses a string into a townsim.PlayerID.
func ParsePlayerID(s string) (townsim.PlayerID, error) {
	if s == "" {
		return townsim.PlayerID{}, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return townsim.PlayerID{}, err
	}
	return townsim.PlayerID(id), nil
}
