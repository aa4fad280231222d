package townsim

import (
	"sync"
	"time"
)

// Personality biases an Agent's decision procedure, grounded on the
// teacher's named archetype map in game/adversaries.go (six LLM-prompted
// archetypes), collapsed to the spec's three personalities since this
// kernel's decision tree is deterministic/algorithmic (spec §4.5) and the
// LLM boundary is reserved for conversation-line generation only.
type Personality string

const (
	PersonalityCriminal Personality = "CRIMINAL"
	PersonalityGambler  Personality = "GAMBLER"
	PersonalityWorker   Personality = "WORKER"
)

// PersonalityProfile holds the behavioral bias constants a Personality
// contributes to decisions (robbery/combat propensity, preferred zone).
type PersonalityProfile struct {
	RobberyBias  float64
	CombatBias   float64
	PreferredZone ZoneKind
}

// Personalities mirrors the teacher's Adversaries map shape (a registry of
// named behavior profiles) but keyed to the three spec personalities with
// numeric bias fields instead of prompt strings.
var Personalities = map[Personality]PersonalityProfile{
	PersonalityCriminal: {RobberyBias: 0.6, CombatBias: 0.35, PreferredZone: ZoneDarkAlley},
	PersonalityGambler:  {RobberyBias: 0.1, CombatBias: 0.1, PreferredZone: ZoneCasino},
	PersonalityWorker:   {RobberyBias: 0.02, CombatBias: 0.02, PreferredZone: ZoneSuburb},
}

// AgentState is where an Agent's decision procedure currently sits,
// grounded on the teacher's cooldown/timeout state fields in
// game/agent.go generalized into an explicit small state machine.
type AgentState string

const (
	AgentIdle        AgentState = "idle"
	AgentWandering   AgentState = "wandering"
	AgentTraveling   AgentState = "traveling"
	AgentConversing  AgentState = "conversing"
	AgentActing      AgentState = "acting"
	AgentAwaitingOp  AgentState = "awaitingOperation"
)

// Agent is the autonomy layer bound to a bot-controlled Player. Split out
// of the teacher's merged Agent struct (game/agent.go) per spec.md's
// explicit separation of kinematic state (Player) from decision-making
// state (Agent) — a human-controlled Player never has an Agent record.
type Agent struct {
	mu sync.RWMutex

	ID          AgentID
	PlayerID    PlayerID
	Personality Personality

	State          AgentState
	PendingOpID    OperationID
	LastDecisionAt time.Time
	NextEligibleAt time.Time

	// ToRemember holds a just-ended conversation id the agent owes a
	// agentRememberConversation operation for, grounded on spec.md §4.4's
	// "mark toRemember on each remaining agent" rule.
	ToRemember   ConversationID
	HasToRemember bool

	// KnockedOutUntil mirrors spec.md §3's cooldowns.knockedOutUntil.
	KnockedOutUntil time.Time

	// LastInviteAttempt and LastRobbery/CombatAttempt back the per-kind
	// cooldowns spec.md §3 names alongside NextEligibleAt's generic one.
	LastInviteAttempt  time.Time
	LastRobberyAttempt time.Time
	LastCombatAttempt  time.Time

	// LastActivityEnd backs the ACTIVITY_COOLDOWN half of spec.md §4.5's
	// wander-precedence rule: an agent that just finished an activity
	// wanders for a window before it's eligible to pick a new one.
	LastActivityEnd time.Time

	Memory []string
}

func NewAgent(id AgentID, playerID PlayerID, personality Personality) *Agent {
	return &Agent{
		ID:          id,
		PlayerID:    playerID,
		Personality: personality,
		State:       AgentIdle,
	}
}

func (a *Agent) Profile() PersonalityProfile {
	return Personalities[a.Personality]
}

func (a *Agent) SetState(s AgentState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.State = s
}

func (a *Agent) GetState() AgentState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.State
}

func (a *Agent) IsEligible(now time.Time) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.State != AgentAwaitingOp && !now.Before(a.NextEligibleAt)
}

// IsKnockedOut implements spec.md §4.5 step 1.
func (a *Agent) IsKnockedOut(now time.Time) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return now.Before(a.KnockedOutUntil)
}

func (a *Agent) SetKnockedOutUntil(until time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.KnockedOutUntil = until
}

// MarkActivityEnded records when the agent last finished an activity, for
// RecentlyFinishedActivity's ACTIVITY_COOLDOWN window.
func (a *Agent) MarkActivityEnded(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.LastActivityEnd = now
}

// RecentlyFinishedActivity implements spec.md §4.5's wander-precedence
// rule: an agent within ActivityCooldown of its last activity wanders
// rather than immediately re-selecting one.
func (a *Agent) RecentlyFinishedActivity(now time.Time) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.LastActivityEnd.IsZero() {
		return false
	}
	return now.Sub(a.LastActivityEnd) < ActivityCooldown
}

// MarkToRemember records a conversation the agent must schedule
// agentRememberConversation for, per spec.md §4.4's archival rule.
func (a *Agent) MarkToRemember(id ConversationID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ToRemember = id
	a.HasToRemember = true
}

func (a *Agent) TakeToRemember() (ConversationID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.HasToRemember {
		return ConversationID{}, false
	}
	id := a.ToRemember
	a.ToRemember = ConversationID{}
	a.HasToRemember = false
	return id, true
}

// ActionTimedOut reports whether the awaited inProgressOperation is older
// than ActionTimeout; ClearStaleOperation is what clears it, grounded on
// spec.md §4.8's "a stale inProgressOperation ... cleared during the agent tick".
func (a *Agent) ActionTimedOut(now time.Time) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.State == AgentAwaitingOp && now.Sub(a.LastDecisionAt) > ActionTimeout
}

func (a *Agent) ClearStaleOperation() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.State = AgentIdle
	a.PendingOpID = OperationID{}
}

func (a *Agent) BeginOperation(opID OperationID, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.State = AgentAwaitingOp
	a.PendingOpID = opID
	a.LastDecisionAt = now
}

func (a *Agent) CompleteOperation(next AgentState, cooldownUntil time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.State = next
	a.PendingOpID = OperationID{}
	a.NextEligibleAt = cooldownUntil
}

const maxAgentMemory = 10

func (a *Agent) AddMemory(entry string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Memory = append(a.Memory, entry)
	if len(a.Memory) > maxAgentMemory {
		a.Memory = a.Memory[len(a.Memory)-maxAgentMemory:]
	}
}

func (a *Agent) RecentMemory() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.Memory))
	copy(out, a.Memory)
	return out
}
