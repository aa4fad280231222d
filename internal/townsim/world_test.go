package townsim

import (
	"testing"
	"time"
)

func newTestWorld() *World {
	return NewWorld(NewWorldID(), NewWorldMap(10, 10), 1)
}

func TestRemovePlayerDropsAgentAndConversations(t *testing.T) {
	w := newTestWorld()
	now := time.Now()

	bot := NewPlayer(NewPlayerID(), "bot", false, Position{}, now)
	other := NewPlayer(NewPlayerID(), "other", false, Position{}, now)
	w.AddPlayer(bot)
	w.AddPlayer(other)

	agent := NewAgent(NewAgentID(), bot.ID, PersonalityWorker)
	w.AddAgent(agent)

	conv := NewConversation(NewConversationID(), bot.ID, other.ID, now)
	w.AddConversation(conv)

	w.RemovePlayer(bot.ID, now)

	if _, ok := w.GetPlayer(bot.ID); ok {
		t.Fatal("expected the player to be gone")
	}
	if _, ok := w.GetAgent(agent.ID); ok {
		t.Fatal("expected the bound agent to be removed with its player")
	}
	if _, ok := w.GetAgentForPlayer(bot.ID); ok {
		t.Fatal("expected the agentByPlayer index to be cleared")
	}
	if _, ok := w.GetConversation(conv.ID); ok {
		t.Fatal("expected a conversation referencing the removed player to be dropped (invariant 6: no ghost references)")
	}
	if _, ok := w.GetPlayer(other.ID); !ok {
		t.Fatal("the other participant's player should be unaffected")
	}
}

// TestRemovePlayerNotifiesRemainingConversationParticipant covers spec.md
// §4.4's "mark toRemember on each remaining agent" rule firing on a
// leave, not just on a normal agent-tick-driven conversation end.
func TestRemovePlayerNotifiesRemainingConversationParticipant(t *testing.T) {
	w := newTestWorld()
	now := time.Now()

	leaver := NewPlayer(NewPlayerID(), "leaver", true, Position{}, now)
	stayer := NewPlayer(NewPlayerID(), "stayer", false, Position{}, now)
	w.AddPlayer(leaver)
	w.AddPlayer(stayer)
	stayerAgent := NewAgent(NewAgentID(), stayer.ID, PersonalityWorker)
	w.AddAgent(stayerAgent)

	conv := NewConversation(NewConversationID(), leaver.ID, stayer.ID, now)
	conv.BeginWalkingOver()
	conv.BeginParticipating(now)
	leaver.EnterConversation(conv.ID)
	stayer.EnterConversation(conv.ID)
	w.AddConversation(conv)

	w.RemovePlayer(leaver.ID, now)

	if _, ok := w.GetConversation(conv.ID); ok {
		t.Fatal("expected the conversation to be archived once a participant leaves")
	}
	if stayer.InConversation {
		t.Fatal("expected the remaining participant to be marked out of the conversation")
	}
	if convID, ok := stayerAgent.TakeToRemember(); !ok || convID != conv.ID {
		t.Fatal("expected the remaining participant's agent to owe agentRememberConversation")
	}
}

func TestSweepGhostAgentsRemovesOrphans(t *testing.T) {
	w := newTestWorld()
	now := time.Now()

	bot := NewPlayer(NewPlayerID(), "bot", false, Position{}, now)
	w.AddPlayer(bot)
	agent := NewAgent(NewAgentID(), bot.ID, PersonalityCriminal)
	w.AddAgent(agent)

	// Simulate the player having been deleted out from under its agent
	// without going through RemovePlayer/RemoveAgentAndPlayer.
	w.mu.Lock()
	delete(w.players, bot.ID)
	w.mu.Unlock()

	removed := w.SweepGhostAgents()
	if len(removed) != 1 || removed[0] != agent.ID {
		t.Fatalf("expected the orphaned agent to be swept, got %v", removed)
	}
	if _, ok := w.GetAgent(agent.ID); ok {
		t.Fatal("expected the ghost agent to be gone after sweeping")
	}

	if again := w.SweepGhostAgents(); len(again) != 0 {
		t.Fatal("a second sweep over a clean world should find nothing")
	}
}

func TestRemoveAgentAndPlayerIsIdempotent(t *testing.T) {
	w := newTestWorld()
	now := time.Now()

	bot := NewPlayer(NewPlayerID(), "bot", false, Position{}, now)
	w.AddPlayer(bot)
	agent := NewAgent(NewAgentID(), bot.ID, PersonalityGambler)
	w.AddAgent(agent)

	pid, removed := w.RemoveAgentAndPlayer(agent.ID, now)
	if !removed || pid != bot.ID {
		t.Fatal("expected the first removal to succeed and report the bound player id")
	}
	if _, ok := w.GetPlayer(bot.ID); ok {
		t.Fatal("expected the player to be cascade-deleted")
	}

	if _, removedAgain := w.RemoveAgentAndPlayer(agent.ID, now); removedAgain {
		t.Fatal("removing an already-absent agent must be a no-op, not a second deletion")
	}
}

func TestActiveConversationsExcludesEnded(t *testing.T) {
	w := newTestWorld()
	now := time.Now()

	live := NewConversation(NewConversationID(), NewPlayerID(), NewPlayerID(), now)
	ended := NewConversation(NewConversationID(), NewPlayerID(), NewPlayerID(), now)
	ended.End(now)
	w.AddConversation(live)
	w.AddConversation(ended)

	active := w.ActiveConversations()
	if len(active) != 1 || active[0].ID != live.ID {
		t.Fatalf("expected only the live conversation, got %d entries", len(active))
	}
}

func TestHumanPlayerCountCountsOnlyHumans(t *testing.T) {
	w := newTestWorld()
	now := time.Now()
	w.AddPlayer(NewPlayer(NewPlayerID(), "human", true, Position{}, now))
	w.AddPlayer(NewPlayer(NewPlayerID(), "bot", false, Position{}, now))
	w.AddPlayer(NewPlayer(NewPlayerID(), "bot2", false, Position{}, now))

	if w.HumanPlayerCount() != 1 {
		t.Fatalf("expected exactly one human player, got %d", w.HumanPlayerCount())
	}
	if w.PlayerCount() != 3 {
		t.Fatalf("expected 3 total players, got %d", w.PlayerCount())
	}
}

func TestPlayerWithinCollisionRespectsThresholdAndExclusion(t *testing.T) {
	w := newTestWorld()
	now := time.Now()

	mover := NewPlayer(NewPlayerID(), "mover", false, Position{X: 0, Y: 0}, now)
	other := NewPlayer(NewPlayerID(), "other", false, Position{X: 5, Y: 5}, now)
	w.AddPlayer(mover)
	w.AddPlayer(other)

	if w.PlayerWithinCollision(Position{X: 1, Y: 0}, CollisionThreshold, mover.ID) {
		t.Fatal("expected no collision when the only other player is far away")
	}

	other.Position = Position{X: 1, Y: 0}
	if !w.PlayerWithinCollision(Position{X: 1, Y: 0}, CollisionThreshold, mover.ID) {
		t.Fatal("expected a collision against a living player occupying the target tile")
	}
	if w.PlayerWithinCollision(Position{X: 1, Y: 0}, CollisionThreshold, other.ID) {
		t.Fatal("excluding a player's own id must not report a collision against itself")
	}

	other.TakeDamage(other.MaxHP)
	if w.PlayerWithinCollision(Position{X: 1, Y: 0}, CollisionThreshold, mover.ID) {
		t.Fatal("a dead player must not count toward a collision")
	}
}

func TestOccupiedIgnoresDeadPlayers(t *testing.T) {
	w := newTestWorld()
	now := time.Now()
	pos := Position{X: 1, Y: 1}
	p := NewPlayer(NewPlayerID(), "p", false, pos, now)
	w.AddPlayer(p)

	if !w.Occupied(pos) {
		t.Fatal("expected the tile to be occupied by the living player")
	}
	p.TakeDamage(p.MaxHP)
	if w.Occupied(pos) {
		t.Fatal("a dead (HP 0) player should not count as occupying its tile")
	}
}
