package townsim

import (
	"sort"
	"time"
)

// AppendInputFunc lets the agent decision procedure inject a follow-up
// input directly into the engine's journal (e.g. startRobbery,
// startCombat) without importing the engine package, grounded on the same
// import-cycle-avoidance seam as OperationScheduler (handler.go).
type AppendInputFunc func(Input)

// PathfindBudget bounds the number of fresh A* computations a single step
// may perform across every agent's decision, grounded on spec.md §8
// invariant 5 ("bounded pathfinding: per step, the number of fresh path
// computations is <= MAX_PATHFINDS_PER_STEP"). Shared by pointer across
// every tick of one RunStep; an agent that can't get a slot this step
// simply tries again next step.
type PathfindBudget struct {
	remaining int
}

func NewPathfindBudget(max int) *PathfindBudget { return &PathfindBudget{remaining: max} }

// take reports whether a caller may perform one more FindPath call this
// step, consuming a slot if so.
func (b *PathfindBudget) take() bool {
	if b == nil {
		return true
	}
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// RunAgentDecision executes one agent's per-tick decision procedure
// (spec §4.5), grounded on generalizing the teacher's per-agent LLM
// action fan-out loop in game/tick.go (processTick) into an algorithmic
// decision tree — the LLM boundary here is reserved for conversation-line
// generation only (OpGenerateConversationLine), not action selection.
func RunAgentDecision(w *World, pf *Pathfinder, budget *PathfindBudget, scheduler OperationScheduler, appendInput AppendInputFunc, agent *Agent, now time.Time) {
	if !agent.IsEligible(now) {
		if agent.ActionTimedOut(now) {
			agent.ClearStaleOperation()
		}
		return
	}
	player, ok := w.GetPlayer(agent.PlayerID)
	if !ok || !player.IsAlive() {
		return
	}

	// 1. Knocked out: idle until recovery, no decision to make.
	if agent.IsKnockedOut(now) {
		player.SetActivity(Activity{Kind: "recovering"})
		return
	}
	if player.Hospitalized {
		return
	}

	// 2. A just-archived conversation owes a memory write.
	if convID, ok := agent.TakeToRemember(); ok {
		opID := NewOperationID()
		agent.BeginOperation(opID, now)
		scheduler.Schedule(Operation{
			ID:       opID,
			Name:     OpAgentRememberConversation,
			PlayerID: player.ID,
			Args:     map[string]any{"summary": "conversation " + convID.String() + " ended"},
			Started:  now,
		})
		return
	}

	// Just-left-conversation / just-finished-activity precedence: an agent
	// that recently exited a conversation or completed an activity keeps
	// wandering rather than immediately picking a fresh one (Open Question
	// decision, SPEC_FULL.md §9, backed by ACTIVITY_COOLDOWN).
	if player.JustLeftConversation(now, JustLeftConversationWindow) || agent.RecentlyFinishedActivity(now) {
		agent.SetState(AgentWandering)
		if !player.HasDestination && budget.take() {
			dest := Position{X: w.RNG().Intn(w.Map.Width), Y: w.RNG().Intn(w.Map.Height)}
			if path, found := pf.FindPath(w.Map, player.GetPosition(), dest); found && len(path) > 1 {
				player.SetPath(path[1:], dest, now)
			}
		}
		return
	}

	// 3. In a conversation: run §4.4 state-machine logic.
	if player.InConversation {
		agent.SetState(AgentConversing)
		runConversationTick(w, pf, budget, scheduler, agent, player, now)
		return
	}

	if player.Activity.Kind != ActivityNone {
		agent.SetState(AgentActing)
		return
	}

	// 6. Pathfinding active: look for a conversation invitee via spec §4.4's
	// CandidateScore query while mid-path, rather than waiting to arrive.
	if player.HasDestination {
		agent.SetState(AgentTraveling)
		if conversationCooldownReady(agent, now) {
			if target, ok := pickConversationCandidate(w, player, now); ok {
				agent.LastInviteAttempt = now
				appendInput(Input{
					Name:     InputStartConversation,
					PlayerID: player.ID,
					Args:     map[string]any{"targetId": target},
				})
			}
		}
		return
	}

	// 4. Zone-conditioned autonomous behavior: robbery/combat attempts.
	profile := agent.Profile()
	if agent.Personality == PersonalityCriminal && player.Zone == ZoneDarkAlley && robberyCooldownReady(agent, now) {
		if target, ok := pickRobberyTarget(w, player); ok && w.RNG().Float64() < 0.3 {
			agent.LastRobberyAttempt = now
			appendInput(Input{
				Name:     InputStartRobbery,
				PlayerID: player.ID,
				Args:     map[string]any{"targetPlayerId": target},
			})
			return
		}
	}
	if (agent.Personality == PersonalityCriminal || agent.Personality == PersonalityGambler) &&
		player.Zone == ZoneUnderground && combatCooldownReady(agent, now) {
		if opponent, ok := pickCombatOpponent(w, player); ok && w.RNG().Float64() < 0.4 {
			agent.LastCombatAttempt = now
			appendInput(Input{
				Name:     InputStartCombat,
				PlayerID: player.ID,
				Args:     map[string]any{"opponentId": opponent},
			})
			return
		}
	}

	// 5. Not pathfinding: select a zone activity, else wander.
	if player.Zone == profile.PreferredZone && player.Zone != ZoneNone {
		agent.SetState(AgentActing)
		appendInput(Input{
			Name:     InputDoSomething,
			PlayerID: player.ID,
			Args:     map[string]any{},
		})
		return
	}

	wander(w, pf, budget, player, agent, now)
}

func conversationCooldownReady(agent *Agent, now time.Time) bool {
	return agent.LastInviteAttempt.IsZero() || now.Sub(agent.LastInviteAttempt) >= ConversationCooldown
}

// conversationCandidateRadius bounds the invite search to nearby players;
// spec.md names no explicit value so this follows ConversationDistance's
// order of magnitude scaled up for a "nearby" visibility check.
const conversationCandidateRadius = 6.0

// pickConversationCandidate implements spec §4.4's invite-candidate query:
// score every eligible nearby player with CandidateScore and invite the
// highest scorer. Relationship inputs (trust/revenge/loyalty/fear) default
// to neutral until a per-pair relationship ledger is wired in (see
// DESIGN.md); the distance falloff and eligibility gating still apply.
func pickConversationCandidate(w *World, self *Player, now time.Time) (PlayerID, bool) {
	var best PlayerID
	bestScore := 0.0
	found := false
	for _, other := range w.AllPlayers() {
		if other.ID == self.ID || !other.IsAlive() || other.Hospitalized || other.InConversation {
			continue
		}
		if !other.LastConversationEnd.IsZero() && now.Sub(other.LastConversationEnd) < PlayerConversationCooldown {
			continue
		}
		dist := PositionDistance(self.GetPosition(), other.GetPosition())
		if dist > conversationCandidateRadius {
			continue
		}
		score, eligible := CandidateScore(0, 0, 0, 0, dist)
		if !eligible || score <= 0 {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = other.ID, score, true
		}
	}
	return best, found
}

func robberyCooldownReady(agent *Agent, now time.Time) bool {
	return agent.LastRobberyAttempt.IsZero() || now.Sub(agent.LastRobberyAttempt) >= RobberyCooldown
}

func combatCooldownReady(agent *Agent, now time.Time) bool {
	return agent.LastCombatAttempt.IsZero() || now.Sub(agent.LastCombatAttempt) >= CombatCooldown
}

func wander(w *World, pf *Pathfinder, budget *PathfindBudget, player *Player, agent *Agent, now time.Time) {
	agent.SetState(AgentWandering)
	if player.HasDestination {
		return
	}
	profile := agent.Profile()
	for _, zone := range w.Map.Zones() {
		if zone.Kind != profile.PreferredZone {
			continue
		}
		if !budget.take() {
			return
		}
		dest := Position{X: (zone.MinX + zone.MaxX) / 2, Y: (zone.MinY + zone.MaxY) / 2}
		if path, found := pf.FindPath(w.Map, player.GetPosition(), dest); found && len(path) > 1 {
			player.SetPath(path[1:], dest, now)
		}
		return
	}
}

// runConversationTick implements spec §4.4's per-tick transitions from the
// perspective of one participant's agent.
func runConversationTick(w *World, pf *Pathfinder, budget *PathfindBudget, scheduler OperationScheduler, agent *Agent, player *Player, now time.Time) {
	conv, ok := w.GetConversation(player.ConversationID)
	if !ok {
		player.LeaveConversation(now)
		return
	}

	switch conv.State {
	case ConversationInvited:
		if conv.InviteExpired(now) {
			endConversation(w, conv, now)
			return
		}
		if player.ID != conv.Invitee {
			return // initiator waits for the invitee's accept/reject
		}
		accept := true
		if initiatorAgent, ok := w.GetAgentForPlayer(conv.Initiator); ok && initiatorAgent != nil {
			accept = w.RNG().Float64() < InviteAcceptProbability
		}
		if !accept {
			endConversation(w, conv, now)
			return
		}
		conv.BeginWalkingOver()

	case ConversationWalkingOver:
		if conv.InviteExpired(now) {
			endConversation(w, conv, now)
			return
		}
		other := otherParticipant(conv, player.ID)
		otherPlayer, ok := w.GetPlayer(other)
		if !ok {
			endConversation(w, conv, now)
			return
		}
		if PositionDistance(player.GetPosition(), otherPlayer.GetPosition()) <= ConversationDistance {
			conv.BeginParticipating(now)
			return
		}
		moveTowardConversationPartner(w, pf, budget, player, otherPlayer, now)

	case ConversationParticipating:
		if conv.ShouldEnd(now) {
			leaveConversationWithMessage(scheduler, agent, conv, player, now)
			return
		}
		if conv.EligibleToSpeak(player.ID, now) {
			if _, ok := conv.AcquireTypingLock(player.ID, now); ok {
				opID := NewOperationID()
				agent.BeginOperation(opID, now)
				speechType := "continue"
				if _, has := conv.LastMessage(); !has {
					speechType = "start"
				}
				scheduler.Schedule(Operation{
					ID:       opID,
					Name:     OpGenerateConversationLine,
					PlayerID: player.ID,
					Args:     map[string]any{"conversationId": conv.ID, "type": speechType},
					Started:  now,
				})
			}
		}
	}
}

func leaveConversationWithMessage(scheduler OperationScheduler, agent *Agent, conv *Conversation, player *Player, now time.Time) {
	if _, ok := conv.AcquireTypingLock(player.ID, now); !ok {
		return
	}
	opID := NewOperationID()
	agent.BeginOperation(opID, now)
	scheduler.Schedule(Operation{
		ID:       opID,
		Name:     OpGenerateConversationLine,
		PlayerID: player.ID,
		Args:     map[string]any{"conversationId": conv.ID, "type": "leave"},
		Started:  now,
	})
}

func endConversation(w *World, conv *Conversation, now time.Time) {
	conv.End(now)
	for _, pid := range conv.Participants() {
		if p, ok := w.GetPlayer(pid); ok {
			p.LeaveConversation(now)
		}
		if a, ok := w.GetAgentForPlayer(pid); ok {
			a.MarkToRemember(conv.ID)
		}
	}
	w.RemoveConversation(conv.ID)
}

func otherParticipant(conv *Conversation, self PlayerID) PlayerID {
	if conv.Initiator == self {
		return conv.Invitee
	}
	return conv.Initiator
}

// moveTowardConversationPartner implements spec §4.4's walking-over rule:
// aim at the midpoint while far apart, otherwise head straight at the
// partner.
func moveTowardConversationPartner(w *World, pf *Pathfinder, budget *PathfindBudget, self, other *Player, now time.Time) {
	if !budget.take() {
		return
	}
	a, b := self.GetPosition(), other.GetPosition()
	var dest Position
	if PositionDistance(a, b) > MidpointThreshold {
		dest = Position{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	} else {
		dest = b
	}
	if path, found := pf.FindPath(w.Map, a, dest); found && len(path) > 1 {
		self.SetPath(path[1:], dest, now)
	}
}

// pickRobberyTarget looks for an adjacent, non-hospitalized player to rob,
// scored per spec §4.5 by visible equipment power plus a fraction of
// inventory value minus defense, picking at random among the top 3
// positive-scoring candidates.
func pickRobberyTarget(w *World, self *Player) (PlayerID, bool) {
	type scored struct {
		id    PlayerID
		score float64
	}
	var candidates []scored
	for _, other := range w.AllPlayers() {
		if other.ID == self.ID || !other.IsAlive() || other.Hospitalized {
			continue
		}
		if !adjacent(self.GetPosition(), other.GetPosition()) {
			continue
		}
		eq := other.GetEquipment()
		score := float64(eq.PowerBonus) + 0.1*float64(other.InventoryValue) - 2*float64(eq.DefenseBonus)
		if score > 0 {
			candidates = append(candidates, scored{other.ID, score})
		}
	}
	if len(candidates) == 0 {
		return PlayerID{}, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}
	pick := candidates[w.RNG().Intn(len(candidates))]
	return pick.id, true
}

// pickCombatOpponent picks a random adjacent, non-hospitalized opponent.
func pickCombatOpponent(w *World, self *Player) (PlayerID, bool) {
	var candidates []PlayerID
	for _, other := range w.AllPlayers() {
		if other.ID == self.ID || !other.IsAlive() || other.Hospitalized {
			continue
		}
		if adjacent(self.GetPosition(), other.GetPosition()) {
			candidates = append(candidates, other.ID)
		}
	}
	if len(candidates) == 0 {
		return PlayerID{}, false
	}
	return candidates[w.RNG().Intn(len(candidates))], true
}

func adjacent(a, b Position) bool {
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
