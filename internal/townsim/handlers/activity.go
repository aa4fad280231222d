package handlers

import "github.com/arden/townsim/internal/townsim"

// DoSomethingHandler commits a player to a zone-scoped activity and
// schedules the asynchronous resolution operation, grounded on
// generalizing the teacher's synchronous per-tick LLM action call
// (game/tick.go) into a dispatched operation that re-enters only through
// finishDoSomething (spec §9's task/input-journal redesign note).
type DoSomethingHandler struct{}

func (DoSomethingHandler) Name() townsim.InputName { return townsim.InputDoSomething }

func (DoSomethingHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	player, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	if player.Activity.Kind != townsim.ActivityNone {
		return townsim.Err(townsim.ErrConflict, "already engaged in an activity")
	}
	zone := player.Zone
	if zone == townsim.ZoneNone {
		return townsim.Err(townsim.ErrConflict, "not standing in a zone")
	}

	kind, _ := input.Args["kind"].(string)
	if kind == "" {
		kind = defaultActivityForZone(zone)
	}

	player.SetActivity(townsim.Activity{
		Kind:      townsim.ActivityKind(kind),
		Zone:      zone,
		StartTick: ctx.World.Tick,
	})

	reward, xp := townsim.ResolveActivityPayout(kind, ctx.World.RNG())

	opID := townsim.NewOperationID()
	if agent, ok := ctx.World.GetAgentForPlayer(player.ID); ok {
		agent.BeginOperation(opID, ctx.Now)
	}
	ctx.Scheduler.Schedule(townsim.Operation{
		ID:       opID,
		Name:     townsim.OpResolveActivity,
		PlayerID: player.ID,
		Args: map[string]any{
			"kind":           kind,
			"zone":           string(zone),
			"inventoryDelta": reward,
			"experience":     xp,
		},
		Started: ctx.Now,
	})

	return townsim.Ok(nil)
}

func defaultActivityForZone(zone townsim.ZoneKind) string {
	switch zone {
	case townsim.ZoneCasino:
		return string(townsim.ActivityGamble)
	case townsim.ZoneSuburb:
		return string(townsim.ActivityWork)
	default:
		return string(townsim.ActivityLoiter)
	}
}

// FinishDoSomethingHandler is the follow-up input an OpResolveActivity
// operation appends once it computes the activity's payout/effect.
type FinishDoSomethingHandler struct{}

func (FinishDoSomethingHandler) Name() townsim.InputName { return townsim.InputFinishDoSomething }

func (FinishDoSomethingHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	player, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	reward, _ := input.Args["inventoryDelta"].(int)
	xp, _ := input.Args["experience"].(int64)

	player.InventoryValue += reward
	player.GrantExperience(xp)
	player.ClearActivity()

	if agent, ok := ctx.World.GetAgentForPlayer(player.ID); ok {
		agent.CompleteOperation(townsim.AgentIdle, ctx.Now)
		agent.AddMemory("finished an activity")
		agent.MarkActivityEnded(ctx.Now)
	}
	return townsim.Ok(nil)
}

// FinishGrantMovementXPHandler is the follow-up input an OpGrantMovementXP
// operation appends, grounded on spec.md §4.3's idle-step-accounting rule.
type FinishGrantMovementXPHandler struct{}

func (FinishGrantMovementXPHandler) Name() townsim.InputName {
	return townsim.InputFinishGrantMovementXP
}

func (FinishGrantMovementXPHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	player, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	xp, _ := input.Args["experience"].(int64)
	player.GrantExperience(xp)
	return townsim.Ok(nil)
}

// FinishGenerateLootDropHandler is the follow-up input an
// OpGenerateLootDrop operation appends, grounded on spec.md §4.3's
// per-zone-weighted idle loot roll.
type FinishGenerateLootDropHandler struct{}

func (FinishGenerateLootDropHandler) Name() townsim.InputName {
	return townsim.InputFinishGenerateLootDrop
}

func (FinishGenerateLootDropHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	player, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	reward, _ := input.Args["inventoryDelta"].(int)
	player.InventoryValue += reward
	return townsim.Ok(nil)
}
