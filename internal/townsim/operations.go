package townsim

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// ReasoningClient is the external LLM/reasoning service boundary,
// generalized from the teacher's LLMClient interface (game/engine.go,
// GetAction) from "pick the next game action" to "write the next
// conversation line" — the kernel's own decision procedure (decision.go)
// replaces the teacher's LLM-driven action selection per spec §4.5.
type ReasoningClient interface {
	GenerateConversationLine(ctx context.Context, req ConversationLineRequest) (string, error)
}

type ConversationLineRequest struct {
	SpeakerName    string
	Personality    Personality
	RecentMemory   []string
	TranscriptSoFar []ConversationLine
}

// OperationRunner executes dispatched operations off the tick goroutine
// and appends their result as a follow-up Input, grounded on generalizing
// the teacher's synchronous `llmClient.GetAction` call inside processTick
// (game/tick.go) into a genuinely asynchronous dispatch: the runner never
// touches *World directly, only through the AppendInput callback, per
// spec §9's "tasks communicate only via the input journal" redesign note.
type OperationRunner struct {
	Reasoning   ReasoningClient
	Store       Store
	Timeout     time.Duration
	AppendInput func(Input)
	Logger      *slog.Logger
}

func NewOperationRunner(reasoning ReasoningClient, store Store, appendInput func(Input), logger *slog.Logger) *OperationRunner {
	if store == nil {
		store = NoopStore{}
	}
	return &OperationRunner{
		Reasoning:   reasoning,
		Store:       store,
		Timeout:     5 * time.Second,
		AppendInput: appendInput,
		Logger:      logger,
	}
}

// Run dispatches op on its own goroutine. World is read through a small
// read-only snapshot captured before the goroutine starts, never through
// a live pointer, so the operation cannot race the next tick's mutation.
func (r *OperationRunner) Run(op Operation, snap OperationSnapshot) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
		defer cancel()

		switch op.Name {
		case OpGenerateConversationLine:
			r.runGenerateLine(ctx, op, snap)
		case OpResolveActivity:
			r.runResolveActivity(op)
		case OpResolveRobbery:
			r.runResolveRobbery(op)
		case OpResolveCombat:
			r.runResolveCombat(op)
		case OpAgentRememberConversation:
			r.runAgentRememberConversation(op)
		case OpLogZoneChange:
			r.runLogActivityEvent(ctx, op, "zoneChange")
		case OpLogActivityEnd:
			r.runLogActivityEvent(ctx, op, "activityEnd")
		case OpGrantMovementXP:
			r.runGrantMovementXP(op)
		case OpGenerateLootDrop:
			r.runGenerateLootDrop(op)
		case OpLogHospitalRecovery:
			r.runLogActivityEvent(ctx, op, "hospital_recovery")
		case OpCleanupPlayerData:
			r.runCleanupPlayerData(ctx, op)
		case OpRequestAgentDecision:
			// reserved: the current decision procedure is synchronous and
			// algorithmic (decision.go); this case exists so the operation
			// enum stays closed over every async boundary the kernel might
			// someday route through the reasoning service.
		default:
			r.Logger.Warn("unknown operation", "name", op.Name)
		}
	}()
}

func (r *OperationRunner) runGenerateLine(ctx context.Context, op Operation, snap OperationSnapshot) {
	line, err := r.Reasoning.GenerateConversationLine(ctx, ConversationLineRequest{
		SpeakerName:      snap.PlayerName,
		Personality:      snap.Personality,
		RecentMemory:     snap.RecentMemory,
		TranscriptSoFar:  snap.Transcript,
	})
	if err != nil {
		r.Logger.Error("reasoning service call failed", "operation", op.Name, "player", op.PlayerID.String(), "err", err)
		line = "..."
	}
	r.AppendInput(Input{
		Name:     InputFinishConversationLine,
		PlayerID: op.PlayerID,
		Args:     map[string]any{"text": line},
	})
}

// runResolveActivity forwards the reward/xp DoSomethingHandler already
// computed synchronously (under the tick lock, via ResolveActivityPayout
// and the world's seeded rng). The goroutine itself draws no randomness,
// preserving spec.md §8 invariant 1.
func (r *OperationRunner) runResolveActivity(op Operation) {
	reward, _ := op.Args["inventoryDelta"].(int)
	xp, _ := op.Args["experience"].(int64)
	r.AppendInput(Input{
		Name:     InputFinishDoSomething,
		PlayerID: op.PlayerID,
		Args:     map[string]any{"inventoryDelta": reward, "experience": xp},
	})
}

// runCleanupPlayerData implements spec.md §6's leave{playerId} contract,
// removing the durable records a departing player leaves behind.
func (r *OperationRunner) runCleanupPlayerData(ctx context.Context, op Operation) {
	if err := r.Store.CleanupPlayerData(ctx, op.WorldID, op.PlayerID); err != nil {
		r.Logger.Error("cleanup player data failed", "player", op.PlayerID.String(), "err", err)
	}
}

// runResolveRobbery and runResolveCombat forward a CombatOutcome already
// computed synchronously (under the tick lock, by StartRobberyHandler /
// StartCombatHandler using the world's seeded rng) to its finish* input.
// The goroutine itself draws no randomness, preserving spec.md §8
// invariant 1 (journal determinism) even though the outcome is carried
// through the async operation-dispatch machinery.
func (r *OperationRunner) runResolveRobbery(op Operation) {
	outcome, _ := op.Args["outcome"].(CombatOutcome)
	r.AppendInput(Input{
		Name:     InputFinishRobbery,
		PlayerID: op.PlayerID,
		Args:     map[string]any{"outcome": outcome},
	})
}

func (r *OperationRunner) runResolveCombat(op Operation) {
	outcome, _ := op.Args["outcome"].(CombatOutcome)
	r.AppendInput(Input{
		Name:     InputFinishCombat,
		PlayerID: op.PlayerID,
		Args:     map[string]any{"outcome": outcome},
	})
}

// runAgentRememberConversation appends the archival memory entry for a
// conversation an agent just left, grounded on spec.md §4.4's
// "mark toRemember ... schedule agentRememberConversation" rule.
func (r *OperationRunner) runAgentRememberConversation(op Operation) {
	summary, _ := op.Args["summary"].(string)
	r.AppendInput(Input{
		Name:     InputFinishRememberConversation,
		PlayerID: op.PlayerID,
		Args:     map[string]any{"summary": summary},
	})
}

// runLogActivityEvent implements spec.md §4.3's log-write-only player-tick
// housekeeping (zone transitions, activity expiry): a durable row, no
// follow-up input, since nothing about world state changes as a result.
func (r *OperationRunner) runLogActivityEvent(ctx context.Context, op Operation, kind string) {
	if err := r.Store.LogActivityEvent(ctx, op.WorldID, op.PlayerID, kind, op.Started); err != nil {
		r.Logger.Error("activity log write failed", "kind", kind, "player", op.PlayerID.String(), "err", err)
	}
}

// runGrantMovementXP implements spec.md §4.3's "every 10 steps schedule a
// grantMovementXP operation" rule with a small fixed payout.
func (r *OperationRunner) runGrantMovementXP(op Operation) {
	r.AppendInput(Input{
		Name:     InputFinishGrantMovementXP,
		PlayerID: op.PlayerID,
		Args:     map[string]any{"experience": int64(1)},
	})
}

// runGenerateLootDrop forwards the reward engine.go already rolled
// synchronously via LootDropReward and the world's seeded rng, for the
// same determinism reason as runResolveActivity.
func (r *OperationRunner) runGenerateLootDrop(op Operation) {
	reward, _ := op.Args["inventoryDelta"].(int)
	r.AppendInput(Input{
		Name:     InputFinishGenerateLootDrop,
		PlayerID: op.PlayerID,
		Args:     map[string]any{"inventoryDelta": reward},
	})
}

// LootDropReward rolls spec.md §4.3's per-zone-weighted idle loot value,
// grounded on the teacher's passive resource-spawn loop (game/tick.go)
// generalized from tile resources to inventory value. Drawn synchronously
// on the tick thread from the world's seeded rng per spec.md §8 invariant 1.
func LootDropReward(zone ZoneKind, rng *rand.Rand) int {
	reward := 1 + rng.Intn(5)
	switch zone {
	case ZoneCasino:
		reward = 1 + rng.Intn(10)
	case ZoneDarkAlley:
		reward = 1 + rng.Intn(8)
	}
	return reward
}

// ResolveActivityPayout computes a zone activity's payout. Gambling has a
// wide variance payout, work has a steady small payout, loitering has
// none, grounded on the teacher's passive-income/resource-spawn tick
// mechanics (game/tick.go) generalized from tile income to activity payout.
// Drawn synchronously on the tick thread per spec.md §8 invariant 1.
func ResolveActivityPayout(kind string, rng *rand.Rand) (reward int, xp int64) {
	switch ActivityKind(kind) {
	case ActivityGamble:
		if rng.Float64() < 0.45 {
			return 10 + rng.Intn(40), 1
		}
		return -(5 + rng.Intn(15)), 1
	case ActivityWork:
		return 5 + rng.Intn(5), 2
	default:
		return 0, 0
	}
}

// OperationSnapshot is the read-only data an operation needs, captured on
// the tick thread by Engine.Schedule before the operation's goroutine starts.
type OperationSnapshot struct {
	PlayerName   string
	Personality  Personality
	RecentMemory []string
	Transcript   []ConversationLine
}
