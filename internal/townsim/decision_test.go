package townsim

import (
	"testing"
	"time"
)

type noopScheduler struct{}

func (noopScheduler) Schedule(Operation) {}

func TestRunAgentDecisionInvitesWhilePathfinding(t *testing.T) {
	w := newTestWorld()
	pf := NewPathfinder()
	budget := NewPathfindBudget(10)
	now := time.Now()

	self := NewPlayer(NewPlayerID(), "self", false, Position{X: 0, Y: 0}, now)
	other := NewPlayer(NewPlayerID(), "other", false, Position{X: 1, Y: 0}, now)
	w.AddPlayer(self)
	w.AddPlayer(other)
	self.SetPath([]Position{{X: 1, Y: 1}}, Position{X: 1, Y: 1}, now)

	agent := NewAgent(NewAgentID(), self.ID, PersonalityWorker)
	w.AddAgent(agent)

	var appended []Input
	appendInput := func(in Input) { appended = append(appended, in) }

	RunAgentDecision(w, pf, budget, noopScheduler{}, appendInput, agent, now)

	if agent.GetState() != AgentTraveling {
		t.Fatalf("expected a pathfinding agent to be in the traveling state, got %v", agent.GetState())
	}
	if len(appended) != 1 || appended[0].Name != InputStartConversation {
		t.Fatalf("expected a pathfinding agent to still look for a conversation invitee, got %v", appended)
	}
}

func TestRunAgentDecisionSkipsZoneBehaviorWhilePathfinding(t *testing.T) {
	w := newTestWorld()
	pf := NewPathfinder()
	budget := NewPathfindBudget(10)
	now := time.Now()

	self := NewPlayer(NewPlayerID(), "self", false, Position{X: 0, Y: 0}, now)
	self.Zone = ZoneDarkAlley
	w.AddPlayer(self)

	agent := NewAgent(NewAgentID(), self.ID, PersonalityCriminal)
	w.AddAgent(agent)
	self.SetPath([]Position{{X: 1, Y: 0}}, Position{X: 1, Y: 0}, now)

	var appended []Input
	appendInput := func(in Input) { appended = append(appended, in) }

	RunAgentDecision(w, pf, budget, noopScheduler{}, appendInput, agent, now)

	for _, in := range appended {
		if in.Name == InputStartRobbery || in.Name == InputDoSomething {
			t.Fatalf("a pathfinding agent must not attempt zone-conditioned behavior, got %v", in.Name)
		}
	}
}
