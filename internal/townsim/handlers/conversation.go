package handlers

import (
	"github.com/arden/townsim/internal/townsim"
)

type StartConversationHandler struct{}

func (StartConversationHandler) Name() townsim.InputName { return townsim.InputStartConversation }

func (StartConversationHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	initiator, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	if initiator.InConversation {
		return townsim.Err(townsim.ErrConflict, "already in a conversation")
	}

	rawTarget, ok := input.Args["targetId"].(townsim.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrInvalidInput, "startConversation requires targetId")
	}
	invitee, ok := ctx.World.GetPlayer(rawTarget)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "target not found")
	}
	if invitee.InConversation {
		return townsim.Err(townsim.ErrConflict, "target already in a conversation")
	}

	convID := townsim.NewConversationID()
	conv := townsim.NewConversation(convID, initiator.ID, invitee.ID, ctx.Now)
	ctx.World.AddConversation(conv)
	initiator.EnterConversation(convID)
	invitee.EnterConversation(convID)

	// Conversation starts in the invited state; the invitee's next agent
	// tick rolls accept/reject (spec §4.4) and only an accepted invite
	// advances to walkingOver, at which point both participants' ticks
	// path toward each other.
	return townsim.Ok(convID)
}

type SendMessageHandler struct{}

func (SendMessageHandler) Name() townsim.InputName { return townsim.InputSendMessage }

func (SendMessageHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	player, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	conv, ok := ctx.World.ConversationForPlayer(player.ID)
	if !ok {
		return townsim.Err(townsim.ErrConflict, "not in a conversation")
	}
	text, _ := input.Args["text"].(string)
	if text == "" {
		return townsim.Err(townsim.ErrInvalidInput, "sendMessage requires text")
	}
	if !conv.AddLine(player.ID, text, ctx.World.Tick, ctx.Now) {
		return townsim.Err(townsim.ErrConflict, "conversation not accepting messages")
	}
	return townsim.Ok(nil)
}

type LeaveConversationHandler struct{}

func (LeaveConversationHandler) Name() townsim.InputName { return townsim.InputLeaveConversation }

func (LeaveConversationHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	player, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	conv, ok := ctx.World.ConversationForPlayer(player.ID)
	if !ok {
		return townsim.Err(townsim.ErrConflict, "not in a conversation")
	}
	conv.End(ctx.Now)
	for _, pid := range conv.Participants() {
		if p, ok := ctx.World.GetPlayer(pid); ok {
			p.LeaveConversation(ctx.Now)
		}
		if a, ok := ctx.World.GetAgentForPlayer(pid); ok {
			a.MarkToRemember(conv.ID)
		}
	}
	ctx.World.RemoveConversation(conv.ID)
	return townsim.Ok(nil)
}

// FinishRememberConversationHandler files a conversation's archival memory
// entry on the agent, the follow-up input an agentRememberConversation
// operation appends once it completes.
type FinishRememberConversationHandler struct{}

func (FinishRememberConversationHandler) Name() townsim.InputName {
	return townsim.InputFinishRememberConversation
}

func (FinishRememberConversationHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	agent, ok := ctx.World.GetAgentForPlayer(input.PlayerID)
	if !ok {
		return townsim.Ok(nil)
	}
	summary, _ := input.Args["summary"].(string)
	agent.AddMemory(summary)
	agent.CompleteOperation(townsim.AgentIdle, ctx.Now)
	return townsim.Ok(nil)
}

// FinishConversationLineHandler is the follow-up input an
// OpGenerateConversationLine operation appends once the reasoning
// service returns a line, grounded on spec §9's "operations communicate
// only via the input journal" redesign note.
type FinishConversationLineHandler struct{}

func (FinishConversationLineHandler) Name() townsim.InputName {
	return townsim.InputFinishConversationLine
}

func (FinishConversationLineHandler) Handle(ctx *townsim.HandlerContext, input townsim.Input) townsim.Result {
	player, ok := ctx.World.GetPlayer(input.PlayerID)
	if !ok {
		return townsim.Err(townsim.ErrNotFound, "player not found")
	}
	conv, ok := ctx.World.ConversationForPlayer(player.ID)
	if !ok {
		return townsim.Err(townsim.ErrConflict, "conversation no longer active")
	}
	text, _ := input.Args["text"].(string)
	if text == "" {
		return townsim.Err(townsim.ErrInvalidInput, "finishConversationLine requires text")
	}
	if !conv.AddLine(player.ID, text, ctx.World.Tick, ctx.Now) {
		return townsim.Err(townsim.ErrConflict, "conversation no longer accepting messages")
	}
	if agent, ok := ctx.World.GetAgentForPlayer(player.ID); ok {
		agent.CompleteOperation(townsim.AgentConversing, ctx.Now)
	}
	return townsim.Ok(nil)
}
