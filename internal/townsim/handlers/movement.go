// Package handlers holds the concrete input handlers the kernel registers
// into a townsim.HandlerRegistry, grounded on the split the teacher draws
// between core types (game package) and concrete handlers (game/actions
// package) to avoid import cycles — the core Handler/HandlerContext/
// HandlerRegistry types live in townsim, concrete handlers live here.
package handlers

import (
	"fmt"

	"github.com/arden/townsim/internal/townsim"
)

// CharacterRoster is the static set of valid sprite names a join may
// claim, grounded on the teacher's fixed roster check in
// game/manager.go's CreateGame spawn validation.
var CharacterRoster = map[string]bool{
	"f1": true, "f2": true, "f3": true,
	"m1": true, "m2": true, "m3": true,
}

type JoinHandler struct{}

func (JoinHandler) Name() townsim.InputName { return townsim.InputJoin }

func (JoinHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	name, _ := input.Args["name"].(string)
	character, _ := input.Args["character"].(string)
	description, _ := input.Args["description"].(string)
	isHuman, _ := input.Args["isHuman"].(bool)
	if name == "" {
		return townsim.Err(townsim.ErrInvalidInput, "join requires a name")
	}
	if character != "" && !CharacterRoster[character] {
		return townsim.Err(townsim.ErrInvalidInput, "unknown character")
	}
	if isHuman && ctx.World.HumanPlayerCount() >= townsim.MaxHumanPlayers {
		return townsim.Err(townsim.ErrConflict, "world at MAX_HUMAN_PLAYERS")
	}

	spawn, ok := findSpawnPosition(ctx)
	if !ok {
		return townsim.Err(townsim.ErrInternal, "no spawn position available")
	}

	id := townsim.NewPlayerID()
	p := townsim.NewPlayer(id, name, isHuman, spawn, ctx.Now)
	ctx.World.AddPlayer(p)
	ctx.World.SetPlayerDescription(townsim.PlayerDescription{
		PlayerID:     id,
		Name:         name,
		Character:    character,
		IdentityText: description,
	})

	if !isHuman {
		personality, _ := input.Args["personality"].(string)
		if personality == "" {
			personality = string(townsim.PersonalityWorker)
		}
		agent := townsim.NewAgent(townsim.NewAgentID(), id, townsim.Personality(personality))
		ctx.World.AddAgent(agent)
	}

	return townsim.Ok(map[string]any{"playerId": id})
}

func findSpawnPosition(ctx *townsim.HandlerContext) (townsim.Position, bool) {
	wm := ctx.World.Map
	for y := 0; y < wm.Height; y++ {
		for x := 0; x < wm.Width; x++ {
			pos := townsim.Position{X: x, Y: y}
			if wm.IsPassable(pos) && !ctx.World.Occupied(pos) {
				return pos, true
			}
		}
	}
	return townsim.Position{}, false
}

type LeaveHandler struct{}

func (LeaveHandler) Name() townsim.InputName { return townsim.InputLeave }

func (LeaveHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	if _, ok := ctx.World.GetPlayer(input.PlayerID); !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	ctx.World.RemovePlayer(input.PlayerID, ctx.Now)
	ctx.Scheduler.Schedule(townsim.Operation{
		ID:       townsim.NewOperationID(),
		Name:     townsim.OpCleanupPlayerData,
		PlayerID: input.PlayerID,
		Started:  ctx.Now,
	})
	return townsim.Ok(nil)
}

type MoveToHandler struct{}

func (MoveToHandler) Name() townsim.InputName { return townsim.InputMoveTo }

func (MoveToHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	player, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	if player.Hospitalized {
		return townsim.Err(townsim.ErrConflict, "player is hospitalized")
	}

	// destination | null: a missing/nil destination clears pathfinding,
	// matching spec.md §6's moveTo contract and the law
	// "moveTo(p, d) then moveTo(p, null) is a no-op w.r.t. position".
	rawDest, hasDest := input.Args["destination"]
	if !hasDest || rawDest == nil {
		player.ClearPath()
		return townsim.Ok(nil)
	}

	x, xok := input.Args["x"].(int)
	y, yok := input.Args["y"].(int)
	if !xok || !yok {
		return townsim.Err(townsim.ErrInvalidInput, "moveTo requires x and y")
	}
	dest := townsim.Position{X: x, Y: y}
	if !ctx.World.Map.IsValidPosition(dest) {
		return townsim.Err(townsim.ErrInvalidInput, "destination out of bounds")
	}

	path, found := ctx.Pathfinder.FindPath(ctx.World.Map, player.GetPosition(), dest)
	if !found {
		return townsim.Err(townsim.ErrConflict, fmt.Sprintf("no path to (%d,%d)", x, y))
	}
	// drop the current position, only remaining steps are stored
	if len(path) > 0 {
		path = path[1:]
	}
	player.SetPath(path, dest, ctx.Now)
	return townsim.Ok(nil)
}

type EnterZoneHandler struct{}

func (EnterZoneHandler) Name() townsim.InputName { return townsim.InputEnterZone }

func (EnterZoneHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	player, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	zone := player.Zone
	if zone == townsim.ZoneNone {
		return townsim.Err(townsim.ErrConflict, "player not standing in any zone")
	}
	return townsim.Ok(zone)
}
