// Package townsim_test exercises the kernel end to end through its public
// Engine/handler-registry surface, kept in a separate package (as the
// teacher's own integration-style tests do for game/handlers) so it can
// import both townsim and handlers without creating an import cycle.
package townsim_test

import (
	"context"
	"log/slog"
	"io"
	"testing"
	"time"

	"github.com/arden/townsim/internal/townsim"
	"github.com/arden/townsim/internal/townsim/handlers"
)

type noopReasoning struct{}

func (noopReasoning) GenerateConversationLine(ctx context.Context, req townsim.ConversationLineRequest) (string, error) {
	return "hello there", nil
}

func newTestEngine(t *testing.T) *townsim.Engine {
	t.Helper()
	registry := townsim.NewHandlerRegistry()
	handlers.RegisterAll(registry)

	wm := townsim.NewWorldMap(20, 20)
	world := townsim.NewWorld(townsim.NewWorldID(), wm, 42)
	pf := townsim.NewPathfinder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := townsim.NewEngine(townsim.NewEngineID(), world, registry, pf, nil, nil, logger, time.Now())
	runner := townsim.NewOperationRunner(noopReasoning{}, nil, engine.AppendInputFollowUp, logger)
	engine.Runner = runner
	return engine
}

func joinInput(t *testing.T, e *townsim.Engine, name string, isHuman bool) townsim.PlayerID {
	t.Helper()
	num, err := e.AppendInput(townsim.InputJoin, townsim.PlayerID{}, map[string]any{
		"name": name, "character": "f1", "isHuman": isHuman,
	})
	if err != nil {
		t.Fatalf("join append failed: %v", err)
	}
	e.RunStep(context.Background())
	res, ok := e.ReturnValue(num)
	if !ok || !res.IsOK() {
		t.Fatalf("expected join to succeed, got %+v (ok=%v)", res, ok)
	}
	m, ok := res.Value().(map[string]any)
	if !ok {
		t.Fatalf("expected join's ok value to be a map, got %T", res.Value())
	}
	return m["playerId"].(townsim.PlayerID)
}

// TestJoinAndWanderProducesMovement reproduces scenario S1: a bot player
// joins a fresh world and, left to its own agent decisions, eventually
// moves away from where it stands after its first step.
func TestJoinAndWanderProducesMovement(t *testing.T) {
	e := newTestEngine(t)
	e.Start(time.Now())

	playerID := joinInput(t, e, "wanderer", false)
	player, ok := e.World.GetPlayer(playerID)
	if !ok {
		t.Fatal("expected the joined player to be retrievable")
	}
	start := player.GetPosition()

	moved := false
	for i := 0; i < 200; i++ {
		e.RunStep(context.Background())
		if player.GetPosition() != start {
			moved = true
			break
		}
	}
	if !moved {
		t.Fatal("expected the bot's agent to eventually wander away from its spawn position")
	}
}

// TestAppendInputRateLimiting reproduces scenario S5: once
// MAX_INPUTS_PER_ENGINE inputs are outstanding, further appends are
// rejected rather than silently queued.
func TestAppendInputRateLimiting(t *testing.T) {
	e := newTestEngine(t)
	e.Start(time.Now())
	playerID := joinInput(t, e, "limited", true)

	var lastErr error
	for i := 0; i < townsim.MaxInputsPerEngine+5; i++ {
		_, err := e.AppendInput(townsim.InputEnterZone, playerID, nil)
		if err != nil {
			lastErr = err
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected AppendInput to eventually reject once MAX_INPUTS_PER_ENGINE is outstanding")
	}
}

// TestEngineInputNumbersAreDenseAndMonotone covers invariant 7: every
// appended input within a world gets a strictly increasing, gap-free
// Number.
func TestEngineInputNumbersAreDenseAndMonotone(t *testing.T) {
	e := newTestEngine(t)
	e.Start(time.Now())
	playerID := joinInput(t, e, "counter", true)

	prev := int64(1) // joinInput's own join input took number 1
	for i := 0; i < 10; i++ {
		num, err := e.AppendInput(townsim.InputEnterZone, playerID, nil)
		if err != nil {
			t.Fatalf("unexpected rate limit at iteration %d: %v", i, err)
		}
		if num != prev+1 {
			t.Fatalf("expected input numbers to be dense and monotone, got %d after %d", num, prev)
		}
		prev = num
		e.RunStep(context.Background())
	}
}

// TestEngineCurrentTimeIsMonotone covers invariant 2: currentTime never
// goes backwards across ticks.
func TestEngineCurrentTimeIsMonotone(t *testing.T) {
	e := newTestEngine(t)
	e.Start(time.Now())
	joinInput(t, e, "clockwatcher", true)

	last := e.CurrentTime()
	for i := 0; i < 50; i++ {
		e.RunStep(context.Background())
		cur := e.CurrentTime()
		if cur.Before(last) {
			t.Fatalf("currentTime went backwards: %v then %v", last, cur)
		}
		last = cur
	}
}

// TestStalledEngineCanBeKicked reproduces scenario S6: an engine whose
// currentTime has not advanced in staleAge is reported stalled, and Kick
// advances its clock without bumping the generation number.
func TestStalledEngineCanBeKicked(t *testing.T) {
	e := newTestEngine(t)
	now := time.Now()
	e.Start(now)

	if e.Stalled(now, townsim.DeadEngineStallAge) {
		t.Fatal("a freshly started engine should not be reported stalled")
	}

	future := now.Add(townsim.DeadEngineStallAge + time.Second)
	if !e.Stalled(future, townsim.DeadEngineStallAge) {
		t.Fatal("expected the engine to be reported stalled once its clock falls far enough behind")
	}

	genBefore := e.Generation()
	e.Kick(future)
	if e.Generation() != genBefore {
		t.Fatal("Kick must not bump the generation number (not a full restart)")
	}
	if e.CurrentTime() != future {
		t.Fatal("expected Kick to advance currentTime to the given instant")
	}
	if e.Stalled(future, townsim.DeadEngineStallAge) {
		t.Fatal("a freshly kicked engine should no longer be reported stalled")
	}
}

// TestEmergencyFlushTimesOutStaleInputs covers spec.md §4.8's emergency
// flush: an input old enough gets a timedOut error without ever being
// executed by a handler.
func TestEmergencyFlushTimesOutStaleInputs(t *testing.T) {
	e := newTestEngine(t)
	start := time.Now()
	e.Start(start)
	playerID := joinInput(t, e, "stale", true)

	num, err := e.AppendInput(townsim.InputEnterZone, playerID, nil)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	flushed := e.EmergencyFlush(start.Add(time.Hour), time.Minute)
	if flushed == 0 {
		t.Fatal("expected at least one stale input to be flushed")
	}
	res, ok := e.ReturnValue(num)
	if !ok || res.IsOK() || res.ErrorKind() != townsim.ErrTimedOut {
		t.Fatalf("expected the flushed input's return value to be a timedOut error, got %+v (ok=%v)", res, ok)
	}
}

// TestEmergencyFlushGapDoesNotStallLaterInputs covers the case where the
// stale input sitting in the middle of the journal is older than its
// still-pending neighbors (e.g. appended long before a quiet period, then
// flushed while a fresher input already sits right after it). Flushing it
// out of contiguous order must not prevent later input numbers from ever
// being drained.
func TestEmergencyFlushGapDoesNotStallLaterInputs(t *testing.T) {
	e := newTestEngine(t)
	start := time.Now()
	e.Start(start)
	playerID := joinInput(t, e, "gapvictim", true)

	staleNum, err := e.AppendInput(townsim.InputEnterZone, playerID, nil)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	// Simulate a long quiet period with no steps, then append a fresh
	// input at the advanced time.
	e.Kick(start.Add(2 * time.Hour))
	freshNum, err := e.AppendInput(townsim.InputEnterZone, playerID, nil)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	flushed := e.EmergencyFlush(start.Add(2*time.Hour), time.Minute)
	if flushed != 1 {
		t.Fatalf("expected exactly the stale input to be flushed, got %d", flushed)
	}

	e.RunStep(context.Background())

	freshRes, ok := e.ReturnValue(freshNum)
	if !ok {
		t.Fatalf("input %d after the flushed gap was never drained", freshNum)
	}
	if !freshRes.IsOK() {
		t.Fatalf("expected the post-gap input to be applied normally, got %+v", freshRes)
	}
	staleRes, ok := e.ReturnValue(staleNum)
	if !ok || staleRes.ErrorKind() != townsim.ErrTimedOut {
		t.Fatalf("expected the flushed input's return value to remain a timedOut error, got %+v (ok=%v)", staleRes, ok)
	}
}
