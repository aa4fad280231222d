package handlers

import "github.com/arden/townsim/internal/townsim"

// StartRobberyHandler validates and resolves a robbery attempt, grounded
// on generalizing the teacher's validate-then-process idiom
// (game/actions/fight_handler.go) to spec.md §4.6: the probability draw
// happens here, synchronously, under the tick's single-writer lock, using
// the world's seeded rng so replay stays deterministic (invariant 1); the
// dispatched operation only forwards the already-computed outcome to
// finishRobbery next tick.
type StartRobberyHandler struct{}

func (StartRobberyHandler) Name() townsim.InputName { return townsim.InputStartRobbery }

func (StartRobberyHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	robber, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	targetID, ok := input.Args["targetPlayerId"].(townsim.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrInvalidInput, "startRobbery requires targetPlayerId")
	}
	target, ok := ctx.World.GetPlayer(targetID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "target not found")
	}
	if !adjacent(robber.GetPosition(), target.GetPosition()) {
		return townsim.Err(townsim.ErrConflict, "target not adjacent")
	}
	if target.Hospitalized {
		return townsim.Err(townsim.ErrConflict, "target is hospitalized")
	}

	agent, ok := ctx.World.GetAgentForPlayer(robber.ID)
	if !ok {
		return townsim.Err(townsim.ErrConflict, "robber has no agent")
	}

	outcome := townsim.ResolveRobbery(ctx.World.RNG(), robber, agent.Personality, target, robber.Zone)

	opID := townsim.NewOperationID()
	agent.BeginOperation(opID, ctx.Now)
	ctx.Scheduler.Schedule(townsim.Operation{
		ID:       opID,
		Name:     townsim.OpResolveRobbery,
		PlayerID: robber.ID,
		Args:     map[string]any{"outcome": outcome},
		Started:  ctx.Now,
	})
	return townsim.Ok(nil)
}

// FinishRobberyHandler is the deterministic follow-up finishRobbery
// applies: transfer loot (if any) and release the agent's cooldown.
type FinishRobberyHandler struct{}

func (FinishRobberyHandler) Name() townsim.InputName { return townsim.InputFinishRobbery }

func (FinishRobberyHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	robber, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		// the robber may have left while the operation was in flight;
		// treat as a no-op per spec.md §5's "handlers must treat it as a
		// no-op if the world has moved on".
		return townsim.Ok(nil)
	}
	outcome, _ := input.Args["outcome"].(townsim.CombatOutcome)
	target, ok := ctx.World.GetPlayer(outcome.DefenderID)
	if ok {
		townsim.ApplyRobbery(outcome, robber, target)
	}
	if agent, ok := ctx.World.GetAgentForPlayer(robber.ID); ok {
		agent.CompleteOperation(townsim.AgentIdle, ctx.Now.Add(townsim.RobberyCooldown))
		agent.AddMemory(outcome.Message)
	}
	return townsim.Ok(outcome)
}

// StartCombatHandler mirrors StartRobberyHandler for spec.md §4.6's combat
// resolution.
type StartCombatHandler struct{}

func (StartCombatHandler) Name() townsim.InputName { return townsim.InputStartCombat }

func (StartCombatHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	attacker, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	opponentID, ok := input.Args["opponentId"].(townsim.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrInvalidInput, "startCombat requires opponentId")
	}
	defender, ok := ctx.World.GetPlayer(opponentID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "opponent not found")
	}
	if !adjacent(attacker.GetPosition(), defender.GetPosition()) {
		return townsim.Err(townsim.ErrConflict, "opponent not adjacent")
	}
	if defender.Hospitalized {
		return townsim.Err(townsim.ErrConflict, "opponent is hospitalized")
	}

	attackerAgent, ok := ctx.World.GetAgentForPlayer(attacker.ID)
	if !ok {
		return townsim.Err(townsim.ErrConflict, "attacker has no agent")
	}
	defenderPersonality := townsim.Personality("")
	if defenderAgent, ok := ctx.World.GetAgentForPlayer(defender.ID); ok {
		defenderPersonality = defenderAgent.Personality
	}

	outcome := townsim.ResolveCombat(ctx.World.RNG(), attacker, attackerAgent.Personality, defender, defenderPersonality)

	opID := townsim.NewOperationID()
	attackerAgent.BeginOperation(opID, ctx.Now)
	ctx.Scheduler.Schedule(townsim.Operation{
		ID:       opID,
		Name:     townsim.OpResolveCombat,
		PlayerID: attacker.ID,
		Args:     map[string]any{"outcome": outcome},
		Started:  ctx.Now,
	})
	return townsim.Ok(nil)
}

// FinishCombatHandler applies a resolved combat outcome: hospitalize the
// loser and release the attacker's cooldown, whoever won.
type FinishCombatHandler struct{}

func (FinishCombatHandler) Name() townsim.InputName { return townsim.InputFinishCombat }

func (FinishCombatHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	attacker, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Ok(nil)
	}
	outcome, _ := input.Args["outcome"].(townsim.CombatOutcome)
	defender, ok := ctx.World.GetPlayer(outcome.DefenderID)
	if ok {
		townsim.ApplyCombat(outcome, ctx.Now, attacker, defender)
		loser := defender
		if !outcome.AttackerWon {
			loser = attacker
		}
		if loserAgent, ok := ctx.World.GetAgentForPlayer(loser.ID); ok {
			loserAgent.SetKnockedOutUntil(ctx.Now.Add(townsim.HospitalRecovery))
		}
	}
	if agent, ok := ctx.World.GetAgentForPlayer(attacker.ID); ok {
		agent.CompleteOperation(townsim.AgentIdle, ctx.Now.Add(townsim.CombatCooldown))
		agent.AddMemory(outcome.Message)
	}
	return townsim.Ok(outcome)
}

func adjacent(a, b townsim.Position) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx <= 1 && dy <= 1 && !(dx == 0 && dy == 0)
}
