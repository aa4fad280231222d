package townsim

import (
	"math/rand"
	"sync"
	"time"
)

// ActivityKind names the zone-scoped activity a Player is currently
// engaged in, or none.
type ActivityKind string

const (
	ActivityNone    ActivityKind = ""
	ActivityGamble  ActivityKind = "gamble"
	ActivityWork    ActivityKind = "work"
	ActivityLoiter  ActivityKind = "loiter"
)

// Activity is the zone-scoped task a Player has committed to, with the
// tick it started and the tick it is expected to resolve.
type Activity struct {
	Kind      ActivityKind
	Zone      ZoneKind
	StartTick int64
	EndTick   int64
}

// Player is the kinematic/activity half of an entity, grounded on the
// thread-safe-accessor shape of the teacher's game/agent.go Agent struct,
// but split in two: Player holds position/path/activity/hp/energy and can
// be driven by a human or a bot; Agent (agent.go) is the separate
// autonomy layer bound to a bot-controlled Player. The teacher merges both
// into one struct; spec.md requires them distinct so a human player can
// exist without an Agent record.
type Player struct {
	mu sync.RWMutex

	ID       PlayerID
	Name     string
	IsHuman  bool

	Position Position
	Path     []Position // remaining steps toward Destination, front = next step
	Destination Position
	HasDestination bool
	PathStartedAt  time.Time

	Zone     ZoneKind
	Activity Activity

	HP        int
	MaxHP     int
	Energy    int
	MaxEnergy int

	InventoryValue    int
	HouseDefenseLevel int
	Experience        int64
	Equipment         Equipment

	StepsTaken     int
	LastStepGrant  time.Time
	LastLootRollAt time.Time
	LastEnergyTick time.Time

	ConversationID      ConversationID
	InConversation      bool
	LastConversationEnd time.Time

	Hospitalized   bool
	HospitalUntil  time.Time

	// WaitingUntil backs spec.md §4.2's collision-backoff mechanic: a
	// player blocked by another player within COLLISION_THRESHOLD tiles
	// waits out a random PATHFINDING_BACKOFF window before trying to step
	// again, instead of retrying every tick.
	WaitingUntil time.Time

	JoinedAt time.Time
}

const (
	DefaultHP        = 10
	DefaultMaxHP     = 10
	DefaultEnergy    = 100
	DefaultMaxEnergy = 100
)

func NewPlayer(id PlayerID, name string, isHuman bool, pos Position, now time.Time) *Player {
	return &Player{
		ID:             id,
		Name:           name,
		IsHuman:        isHuman,
		Position:       pos,
		HP:             DefaultHP,
		MaxHP:          DefaultMaxHP,
		Energy:         DefaultEnergy,
		MaxEnergy:      DefaultMaxEnergy,
		JoinedAt:       now,
		LastEnergyTick: now,
	}
}

// EnergyDecayInterval is the per-unit energy decay period spec.md §4.3
// names ("1 unit per 5 minutes of simulation elapsed").
const EnergyDecayInterval = 5 * time.Minute

// DecayEnergy implements spec.md §4.3's bot-only energy housekeeping:
// decrement 1 unit per EnergyDecayInterval elapsed since the last regen,
// stopping pathfinding once energy reaches 0. Energy is refilled only by
// external effects (lootboxes, activity-end hooks), never by this method.
func (p *Player) DecayEnergy(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := now.Sub(p.LastEnergyTick)
	units := int(elapsed / EnergyDecayInterval)
	if units <= 0 {
		return
	}
	p.LastEnergyTick = p.LastEnergyTick.Add(time.Duration(units) * EnergyDecayInterval)
	p.Energy -= units
	if p.Energy < 0 {
		p.Energy = 0
	}
	if p.Energy == 0 {
		p.Path = nil
		p.HasDestination = false
	}
}

// RecordStep implements spec.md §4.3's idle-step-accounting rule: a step
// only counts toward stepsTaken once every 5s at minimum (the "0.5 tiles"
// distance threshold collapses to "every step" since StepAlongPath always
// advances a full tile). Reports whether this step is the 10th since the
// last movement-XP grant.
func (p *Player) RecordStep(now time.Time) (grantXP bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.LastStepGrant.IsZero() && now.Sub(p.LastStepGrant) < 5*time.Second {
		return false
	}
	p.LastStepGrant = now
	p.StepsTaken++
	return p.StepsTaken%10 == 0
}

// RollLootEligible implements spec.md §4.3's "at most once per second"
// gate on the per-zone loot roll; the actual probability draw happens in
// the caller against the world's seeded rng.
func (p *Player) RollLootEligible(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.LastLootRollAt.IsZero() && now.Sub(p.LastLootRollAt) < 1*time.Second {
		return false
	}
	p.LastLootRollAt = now
	return true
}

func (p *Player) Snapshot() PlayerSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PlayerSnapshot{
		ID:             p.ID,
		Name:           p.Name,
		IsHuman:        p.IsHuman,
		Position:       p.Position,
		Zone:           p.Zone,
		Activity:       p.Activity,
		HP:             p.HP,
		MaxHP:          p.MaxHP,
		Energy:         p.Energy,
		MaxEnergy:      p.MaxEnergy,
		InConversation: p.InConversation,
		Hospitalized:   p.Hospitalized,
	}
}

// PlayerSnapshot is the read-only external view of a Player, grounded
// on the teacher's AgentSnapshot (game/agent.go). Not to be confused with
// PlayerDescription (description.go), which is spec.md §3's distinct
// name/sprite/identity/plan entity.
type PlayerSnapshot struct {
	ID             PlayerID
	Name           string
	IsHuman        bool
	Position       Position
	Zone           ZoneKind
	Activity       Activity
	HP, MaxHP      int
	Energy, MaxEnergy int
	InConversation bool
	Hospitalized   bool
}

// Equipment carries the power/defense bonuses spec.md §3 names, driving the
// combat/robbery formulas in §4.6.
type Equipment struct {
	PowerBonus   int
	DefenseBonus int
}

func (p *Player) SetEquipment(eq Equipment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Equipment = eq
}

func (p *Player) GetEquipment() Equipment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Equipment
}

// SetPath commits player to a new path toward dest, stamped with now (the
// engine's own currentTime, never the wall clock, so replay stays
// deterministic per spec.md §8 invariant 1).
func (p *Player) SetPath(path []Position, dest Position, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Path = path
	p.Destination = dest
	p.HasDestination = true
	p.PathStartedAt = now
}

func (p *Player) ClearPath() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Path = nil
	p.HasDestination = false
}

// TickPathfinding implements spec.md §4.7 step 3's pathfinding half: a
// player pathfinding for longer than PATHFINDING_TIMEOUT has its
// destination cleared and stops in place.
func (p *Player) TickPathfinding(now time.Time) (timedOut bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.HasDestination {
		return false
	}
	if now.Sub(p.PathStartedAt) <= PathfindingTimeout {
		return false
	}
	p.Path = nil
	p.HasDestination = false
	return true
}

// TickPosition implements spec.md §4.7 step 3's movement half: advance one
// tile along the stored path if the next tile is currently passable and
// free of the §4.2 collision rule. Reports whether the player moved and
// whether its zone changed as a result (spec.md §4.3's zone-transition
// rule).
func (p *Player) TickPosition(wm *WorldMap, collision func(Position) bool, rng *rand.Rand, now time.Time) (moved, zoneChanged bool) {
	return p.StepAlongPath(wm, collision, rng, now)
}

// StepAlongPath advances the player one tile along its stored path if the
// next tile is currently passable and not within COLLISION_THRESHOLD tiles
// of another player, grounded on the teacher's GetNewPosition + occupancy
// check in game/tick.go, generalized from single-step directional movement
// into path-following. A collision puts the player into a waiting(until)
// backoff per spec.md §4.2 rather than retrying every tick.
func (p *Player) StepAlongPath(wm *WorldMap, collision func(Position) bool, rng *rand.Rand, now time.Time) (moved, zoneChanged bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if now.Before(p.WaitingUntil) {
		return false, false
	}
	if len(p.Path) == 0 {
		p.HasDestination = false
		return false, false
	}
	next := p.Path[0]
	if !wm.IsPassable(next) {
		return false, false
	}
	if collision(next) {
		p.WaitingUntil = now.Add(time.Duration(rng.Int63n(int64(PathfindingBackoffMax))))
		return false, false
	}
	p.Position = next
	p.Path = p.Path[1:]
	newZone := wm.ZoneAt(next)
	zoneChanged = newZone != p.Zone
	p.Zone = newZone
	if len(p.Path) == 0 {
		p.HasDestination = false
	}
	return true, zoneChanged
}

func (p *Player) TakeDamage(amount int) (killed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.HP -= amount
	if p.HP <= 0 {
		p.HP = 0
		killed = true
	}
	return killed
}

func (p *Player) Heal(amount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.HP += amount
	if p.HP > p.MaxHP {
		p.HP = p.MaxHP
	}
}

func (p *Player) Hospitalize(until time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Hospitalized = true
	p.HospitalUntil = until
}

func (p *Player) ShouldDischarge(now time.Time) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Hospitalized && !now.Before(p.HospitalUntil)
}

func (p *Player) Discharge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Hospitalized = false
	p.HP = p.MaxHP
}

// RegenEnergy applies passive energy regeneration by an amount the caller
// supplies (spec.md names no in-kernel source for it); no kernel code
// calls it. Grounded on the teacher's per-tick passive income pattern in
// game/tick.go.
func (p *Player) RegenEnergy(amount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Energy += amount
	if p.Energy > p.MaxEnergy {
		p.Energy = p.MaxEnergy
	}
}

func (p *Player) SpendEnergy(amount int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Energy < amount {
		return false
	}
	p.Energy -= amount
	return true
}

func (p *Player) GetPosition() Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Position
}

func (p *Player) IsAlive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.HP > 0
}

func (p *Player) EnterConversation(id ConversationID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConversationID = id
	p.InConversation = true
}

func (p *Player) LeaveConversation(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.InConversation = false
	p.ConversationID = ConversationID{}
	p.LastConversationEnd = now
}

// JustLeftConversation reports whether the player exited a conversation
// within window of now. Per the wander-vs-just-left-conversation Open
// Question decision (SPEC_FULL.md §9), this takes precedence over plain
// wander eligibility.
func (p *Player) JustLeftConversation(now time.Time, window time.Duration) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.LastConversationEnd.IsZero() {
		return false
	}
	return now.Sub(p.LastConversationEnd) < window
}

func (p *Player) SetActivity(a Activity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Activity = a
}

func (p *Player) ClearActivity() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Activity = Activity{}
}

func (p *Player) GrantExperience(amount int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Experience += amount
}
