package townsim

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WorldHandle bundles the per-world objects the Supervisor drives,
// grounded on the teacher's per-game bundle inside Manager (game/manager.go)
// but generalized to the kernel's split World/Engine/Pathfinder/Runner.
type WorldHandle struct {
	World  *World
	Engine *Engine
}

// Supervisor is the process-wide registry of running worlds, grounded on
// the teacher's Manager (game/manager.go), renamed per spec.md §9's
// redesign note ("Global mutable state ... as an explicit process-wide
// Supervisor with a typed map worldId -> Engine, lifecycle hooks
// start/stop/kick/heartbeat, and a background scheduler for
// vacuum/restart sweeps"). It owns no entity state itself — every mutation
// still goes through a World's own single-writer discipline.
type Supervisor struct {
	mu     sync.RWMutex
	worlds map[WorldID]*WorldHandle
	store  Store
	logger *slog.Logger

	stepPeriod time.Duration

	// onStep, if set, fires after every committed step with the world's
	// new tick number, grounded on spec.md §6's realtime transport being
	// outside the kernel: the Supervisor only announces that a step
	// landed, leaving internal/ws to decide what to broadcast and to whom.
	onStep func(WorldID, int64)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OnStep registers a callback invoked after each committed step,
// grounded on internal/ws.Hub's broadcast-to-room model: the api package
// wires this to push a TickUpdateMessage to every viewer of the world.
func (s *Supervisor) OnStep(fn func(WorldID, int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStep = fn
}

func (s *Supervisor) fireOnStep(h *WorldHandle) {
	s.mu.RLock()
	fn := s.onStep
	s.mu.RUnlock()
	if fn != nil {
		fn(h.World.ID, h.World.Tick)
	}
}

func NewSupervisor(store Store, logger *slog.Logger) *Supervisor {
	if store == nil {
		store = NoopStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		worlds:     make(map[WorldID]*WorldHandle),
		store:      store,
		logger:     logger,
		stepPeriod: StepInterval,
	}
}

// Register adds a world/engine pair to the registry without starting its
// step loop, grounded on the teacher's Manager.games map assignment inside
// CreateGame (game/manager.go).
func (s *Supervisor) Register(h *WorldHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worlds[h.World.ID] = h
}

func (s *Supervisor) Get(id WorldID) (*WorldHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.worlds[id]
	return h, ok
}

func (s *Supervisor) All() []*WorldHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*WorldHandle, 0, len(s.worlds))
	for _, h := range s.worlds {
		out = append(out, h)
	}
	return out
}

// Start implements spec.md §4.8's start(worldId): marks the engine running
// and (re)launches its own step-loop goroutine tagged with the fresh
// generation number so a previous loop exits cleanly on its next check.
func (s *Supervisor) Start(ctx context.Context, id WorldID, now time.Time) bool {
	h, ok := s.Get(id)
	if !ok {
		return false
	}
	h.Engine.Start(now)
	h.World.SetStatus(WorldRunning)
	generation := h.Engine.Generation()
	s.wg.Add(1)
	go s.runStepLoop(ctx, h, generation)
	return true
}

// Stop implements spec.md §4.8's stop(worldId).
func (s *Supervisor) Stop(id WorldID) bool {
	h, ok := s.Get(id)
	if !ok {
		return false
	}
	h.Engine.Stop()
	h.World.SetStatus(WorldStopped)
	return true
}

// Kick implements spec.md §4.8's kick(worldId): forces the next step
// immediately by running one inline, without waiting for stepPeriod.
func (s *Supervisor) Kick(id WorldID, now time.Time) bool {
	h, ok := s.Get(id)
	if !ok {
		return false
	}
	h.Engine.Kick(now)
	h.Engine.RunStep(context.Background())
	s.fireOnStep(h)
	return true
}

func (s *Supervisor) runStepLoop(ctx context.Context, h *WorldHandle, generation int64) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.stepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.Engine.Generation() != generation || !h.Engine.IsRunning() {
				return
			}
			h.Engine.RunStep(ctx)
			s.fireOnStep(h)
		}
	}
}

// RunBackgroundSweeps starts the heartbeat/vacuum/ghost-sweep goroutines,
// grounded on the teacher's Manager background loop plus spec.md §4.8's
// "periodic check restarts worlds" and §4.9's age-based vacuum / daily
// ghost-agent sweep.
func (s *Supervisor) RunBackgroundSweeps(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(3)
	go s.heartbeatLoop(ctx, 30*time.Second)
	go s.vacuumLoop(ctx, 1*time.Hour)
	go s.ghostSweepLoop(ctx, 24*time.Hour)
}

func (s *Supervisor) StopBackgroundSweeps() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// heartbeatLoop implements spec.md §4.8's idle-world timeout and
// dead-engine restart: worlds untouched for IDLE_WORLD_TIMEOUT with no
// pending work stop; engines marked running whose currentTime has
// stalled for DeadEngineStallAge get kicked back to life.
func (s *Supervisor) heartbeatLoop(ctx context.Context, period time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, h := range s.All() {
				s.heartbeatOne(ctx, h, now)
			}
		}
	}
}

func (s *Supervisor) heartbeatOne(ctx context.Context, h *WorldHandle, now time.Time) {
	if h.Engine.IsRunning() {
		if h.Engine.Stalled(now, DeadEngineStallAge) {
			s.logger.Warn("kicking stalled engine", "world", h.World.ID.String())
			h.Engine.Kick(now)
		}
		if h.World.IdleSince(now) > IdleWorldTimeout && h.Engine.PendingCount() == 0 {
			s.logger.Info("stopping idle world", "world", h.World.ID.String())
			h.Engine.Stop()
			h.World.SetStatus(WorldInactive)
		}
		return
	}
	if h.World.GetStatus() == WorldInactive && h.Engine.PendingCount() > 0 {
		s.logger.Info("restarting world with pending work", "world", h.World.ID.String())
		s.Start(ctx, h.World.ID, now)
	}
}

// vacuumLoop implements spec.md §4.9's age-based input vacuum, deleting
// durable input rows older than VACUUM_MAX_AGE in DELETE_BATCH_SIZE
// batches via the Store seam (internal/db implements the actual queries).
func (s *Supervisor) vacuumLoop(ctx context.Context, period time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, h := range s.All() {
				n, err := s.store.VacuumInputs(ctx, h.World.ID, now.Add(-VacuumMaxAge), DeleteBatchSize)
				if err != nil {
					s.logger.Error("vacuum failed", "world", h.World.ID.String(), "err", err)
					continue
				}
				if n > 0 {
					s.logger.Info("vacuumed inputs", "world", h.World.ID.String(), "count", n)
				}
			}
		}
	}
}

// ghostSweepLoop implements spec.md §4.9's daily ghost-agent sweep.
func (s *Supervisor) ghostSweepLoop(ctx context.Context, period time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, h := range s.All() {
				removed := h.World.SweepGhostAgents()
				if len(removed) > 0 {
					s.logger.Info("swept ghost agents", "world", h.World.ID.String(), "count", len(removed))
				}
			}
		}
	}
}

// CascadeDeleteBot implements spec.md §4.9's cascade deletion of a bot by
// aiArenaBotId: remove the in-memory Agent/Player pair, then ask the Store
// to remove the durable records naming the bot or its player. The
// internal/db Store removes activity log rows and input rows only; no
// messages, relationships, inventory or lootbox rows are deleted.
// Idempotent: a bot already removed in-memory still runs the durable
// cascade so a crash between the two steps can be retried safely.
func (s *Supervisor) CascadeDeleteBot(ctx context.Context, worldID WorldID, aiArenaBotID string, now time.Time) error {
	h, ok := s.Get(worldID)
	if !ok {
		return ErrWorldNotFound
	}
	var playerID PlayerID
	if agentID, found := h.World.AgentByBotID(aiArenaBotID); found {
		playerID, _ = h.World.RemoveAgentAndPlayer(agentID, now)
	}
	return s.store.CascadeDeleteBot(ctx, worldID, aiArenaBotID, playerID)
}

type supervisorError string

func (e supervisorError) Error() string { return string(e) }

const ErrWorldNotFound supervisorError = "world not found"
