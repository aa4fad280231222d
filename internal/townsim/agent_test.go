package townsim

import (
	"testing"
	"time"
)

func TestAgentKnockoutGatesEligibility(t *testing.T) {
	now := time.Now()
	agent := NewAgent(NewAgentID(), NewPlayerID(), PersonalityCriminal)
	agent.SetKnockedOutUntil(now.Add(time.Minute))

	if !agent.IsKnockedOut(now) {
		t.Fatal("expected the agent to be knocked out before KnockedOutUntil")
	}
	if agent.IsKnockedOut(now.Add(2 * time.Minute)) {
		t.Fatal("expected the agent to no longer be knocked out after KnockedOutUntil")
	}
}

func TestAgentIsEligibleRespectsStateAndCooldown(t *testing.T) {
	now := time.Now()
	agent := NewAgent(NewAgentID(), NewPlayerID(), PersonalityWorker)

	if !agent.IsEligible(now) {
		t.Fatal("a freshly created idle agent with a zero cooldown should be eligible")
	}

	opID := NewOperationID()
	agent.BeginOperation(opID, now)
	if agent.IsEligible(now) {
		t.Fatal("an agent awaiting an operation must not be eligible")
	}

	agent.CompleteOperation(AgentIdle, now.Add(time.Minute))
	if agent.IsEligible(now) {
		t.Fatal("an agent should not be eligible before its NextEligibleAt cooldown elapses")
	}
	if !agent.IsEligible(now.Add(2 * time.Minute)) {
		t.Fatal("an agent should be eligible once NextEligibleAt has passed")
	}
}

func TestAgentActionTimedOutClearsStaleOperation(t *testing.T) {
	now := time.Now()
	agent := NewAgent(NewAgentID(), NewPlayerID(), PersonalityGambler)
	agent.BeginOperation(NewOperationID(), now)

	if agent.ActionTimedOut(now) {
		t.Fatal("an operation begun just now should not be timed out")
	}
	later := now.Add(ActionTimeout + time.Second)
	if !agent.ActionTimedOut(later) {
		t.Fatal("an operation older than ActionTimeout should be considered timed out")
	}

	agent.ClearStaleOperation()
	if agent.GetState() != AgentIdle {
		t.Fatal("clearing a stale operation should return the agent to idle")
	}
	if agent.ActionTimedOut(later) {
		t.Fatal("a cleared operation should no longer report as timed out")
	}
}

func TestAgentCooldownHelpers(t *testing.T) {
	now := time.Now()
	agent := NewAgent(NewAgentID(), NewPlayerID(), PersonalityCriminal)

	if !robberyCooldownReady(agent, now) || !combatCooldownReady(agent, now) || !conversationCooldownReady(agent, now) {
		t.Fatal("a fresh agent with zero-value last-attempt timestamps should be ready for all cooldowns")
	}

	agent.LastRobberyAttempt = now
	if robberyCooldownReady(agent, now.Add(time.Second)) {
		t.Fatal("robbery cooldown should not be ready immediately after an attempt")
	}
	if !robberyCooldownReady(agent, now.Add(RobberyCooldown+time.Second)) {
		t.Fatal("robbery cooldown should be ready after RobberyCooldown elapses")
	}

	agent.LastCombatAttempt = now
	if combatCooldownReady(agent, now.Add(time.Second)) {
		t.Fatal("combat cooldown should not be ready immediately after an attempt")
	}
	if !combatCooldownReady(agent, now.Add(CombatCooldown+time.Second)) {
		t.Fatal("combat cooldown should be ready after CombatCooldown elapses")
	}
}

func TestAgentMemoryRingBuffer(t *testing.T) {
	agent := NewAgent(NewAgentID(), NewPlayerID(), PersonalityWorker)
	for i := 0; i < maxAgentMemory+5; i++ {
		agent.AddMemory("entry")
	}
	if len(agent.RecentMemory()) != maxAgentMemory {
		t.Fatalf("expected memory to cap at %d entries, got %d", maxAgentMemory, len(agent.RecentMemory()))
	}
}

func TestAgentRecentlyFinishedActivity(t *testing.T) {
	now := time.Now()
	agent := NewAgent(NewAgentID(), NewPlayerID(), PersonalityWorker)

	if agent.RecentlyFinishedActivity(now) {
		t.Fatal("a fresh agent with no recorded activity end should not be in cooldown")
	}

	agent.MarkActivityEnded(now)
	if !agent.RecentlyFinishedActivity(now.Add(time.Second)) {
		t.Fatal("expected the agent to still be in its activity cooldown shortly after finishing")
	}
	if agent.RecentlyFinishedActivity(now.Add(ActivityCooldown + time.Second)) {
		t.Fatal("expected the activity cooldown to have elapsed")
	}
}

func TestAgentToRememberRoundTrip(t *testing.T) {
	agent := NewAgent(NewAgentID(), NewPlayerID(), PersonalityWorker)
	if _, ok := agent.TakeToRemember(); ok {
		t.Fatal("a fresh agent should have nothing to remember")
	}
	convID := NewConversationID()
	agent.MarkToRemember(convID)
	got, ok := agent.TakeToRemember()
	if !ok || got != convID {
		t.Fatal("expected TakeToRemember to return the marked conversation exactly once")
	}
	if _, ok := agent.TakeToRemember(); ok {
		t.Fatal("TakeToRemember should clear the pending mark after one read")
	}
}
