package handlers

import "github.com/arden/townsim/internal/townsim"

// CreateAgentFromAIArenaHandler creates a Player+Agent pair registered
// under an external aiArenaBotId, grounded on generalizing JoinHandler's
// spawn logic (movement.go) to spec.md §6's createAgentFromAIArena input,
// which additionally carries the identity/plan text an externally
// registered bot brings with it.
type CreateAgentFromAIArenaHandler struct{}

func (CreateAgentFromAIArenaHandler) Name() townsim.InputName {
	return townsim.InputCreateAgentFromAIArena
}

func (CreateAgentFromAIArenaHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	name, _ := input.Args["name"].(string)
	character, _ := input.Args["character"].(string)
	identity, _ := input.Args["identity"].(string)
	plan, _ := input.Args["plan"].(string)
	botID, _ := input.Args["aiArenaBotId"].(string)
	if name == "" || botID == "" {
		return townsim.Err(townsim.ErrInvalidInput, "createAgentFromAIArena requires name and aiArenaBotId")
	}
	if character != "" && !CharacterRoster[character] {
		return townsim.Err(townsim.ErrInvalidInput, "unknown character")
	}
	if _, exists := ctx.World.AgentByBotID(botID); exists {
		return townsim.Err(townsim.ErrConflict, "aiArenaBotId already registered")
	}

	spawn, ok := spawnInZone(ctx, input.Args["initialZone"])
	if !ok {
		return townsim.Err(townsim.ErrInternal, "no spawn position available")
	}

	playerID := townsim.NewPlayerID()
	p := townsim.NewPlayer(playerID, name, false, spawn, ctx.Now)
	ctx.World.AddPlayer(p)

	personality, _ := input.Args["personality"].(string)
	if personality == "" {
		personality = string(townsim.PersonalityWorker)
	}
	agentID := townsim.NewAgentID()
	agent := townsim.NewAgent(agentID, playerID, townsim.Personality(personality))
	ctx.World.AddAgent(agent)

	ctx.World.SetPlayerDescription(townsim.PlayerDescription{
		PlayerID:     playerID,
		Name:         name,
		Character:    character,
		IdentityText: identity,
		PlanText:     plan,
	})
	ctx.World.SetAgentDescription(townsim.AgentDescription{
		AgentID:      agentID,
		Name:         name,
		Character:    character,
		IdentityText: identity,
		PlanText:     plan,
		AIArenaBotID: botID,
	})

	return townsim.Ok(map[string]any{"agentId": agentID, "playerId": playerID})
}

func spawnInZone(ctx *townsim.HandlerContext, zoneArg any) (townsim.Position, bool) {
	zone, _ := zoneArg.(string)
	if zone == "" {
		return findSpawnPosition(ctx)
	}
	wm := ctx.World.Map
	for _, z := range wm.Zones() {
		if string(z.Kind) != zone {
			continue
		}
		for y := z.MinY; y <= z.MaxY; y++ {
			for x := z.MinX; x <= z.MaxX; x++ {
				pos := townsim.Position{X: x, Y: y}
				if wm.IsPassable(pos) && !ctx.World.Occupied(pos) {
					return pos, true
				}
			}
		}
	}
	return findSpawnPosition(ctx)
}

// UpdatePlayerEquipmentHandler sets the power/defense bonuses spec.md §4.6's
// combat formulas consume.
type UpdatePlayerEquipmentHandler struct{}

func (UpdatePlayerEquipmentHandler) Name() townsim.InputName {
	return townsim.InputUpdatePlayerEquipment
}

func (UpdatePlayerEquipmentHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	player, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	power, _ := input.Args["powerBonus"].(int)
	defense, _ := input.Args["defenseBonus"].(int)
	player.SetEquipment(townsim.Equipment{PowerBonus: power, DefenseBonus: defense})
	return townsim.Ok(nil)
}
