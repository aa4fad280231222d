package handlers

import "github.com/arden/townsim/internal/townsim"

// RegisterAll wires every concrete handler into registry, grounded on the
// teacher's RegisterAllHandlers call site in cmd/server/main.go.
func RegisterAll(registry *townsim.HandlerRegistry) {
	registry.Register(JoinHandler{})
	registry.Register(LeaveHandler{})
	registry.Register(MoveToHandler{})
	registry.Register(EnterZoneHandler{})
	registry.Register(StartConversationHandler{})
	registry.Register(SendMessageHandler{})
	registry.Register(LeaveConversationHandler{})
	registry.Register(FinishConversationLineHandler{})
	registry.Register(FinishRememberConversationHandler{})
	registry.Register(StartRobberyHandler{})
	registry.Register(FinishRobberyHandler{})
	registry.Register(StartCombatHandler{})
	registry.Register(FinishCombatHandler{})
	registry.Register(DoSomethingHandler{})
	registry.Register(FinishDoSomethingHandler{})
	registry.Register(FinishGrantMovementXPHandler{})
	registry.Register(FinishGenerateLootDropHandler{})
	registry.Register(CreateAgentFromAIArenaHandler{})
	registry.Register(UpdatePlayerEquipmentHandler{})
}
