package townsim

import (
	"context"
	"time"
)

// Store is the storage-neutral seam the kernel depends on for durable
// persistence, grounded on the gap the teacher leaves between its game
// package (which never imports internal/db) and its internal/db package
// (called only from cmd/server/main.go and the api layer) — this kernel
// makes that seam an explicit interface so internal/db's pgx/redis
// clients can implement it without the kernel importing either driver.
type Store interface {
	AppendInput(ctx context.Context, worldID WorldID, in Input) error
	SaveSnapshot(ctx context.Context, worldID WorldID, tick int64, players []PlayerSnapshot) error
	RecordCombat(ctx context.Context, worldID WorldID, outcome CombatOutcome) error

	// VacuumInputs deletes durable input rows older than olderThan, in
	// batches of at most batchSize, grounded on spec.md §4.9's age-based
	// vacuum. Returns the number of rows removed.
	VacuumInputs(ctx context.Context, worldID WorldID, olderThan time.Time, batchSize int) (int, error)

	// CascadeDeleteBot removes every durable record naming aiArenaBotID or
	// its player, grounded on spec.md §4.9's cascade deletion. Must be
	// idempotent. playerID is the zero value if the in-memory player was
	// already removed by an earlier call.
	CascadeDeleteBot(ctx context.Context, worldID WorldID, aiArenaBotID string, playerID PlayerID) error

	// LogActivityEvent appends a row to the activityLogs table spec.md §7
	// names, grounded on the player-tick housekeeping rules in spec.md §4.3
	// (activity expiry, zone transitions) that schedule a named log write
	// rather than mutating the world directly.
	LogActivityEvent(ctx context.Context, worldID WorldID, playerID PlayerID, kind string, at time.Time) error

	// CleanupPlayerData removes the durable records a departing player
	// leaves behind, grounded on spec.md §6's leave{playerId} contract
	// ("schedules cleanupPlayerData"). Must be idempotent.
	CleanupPlayerData(ctx context.Context, worldID WorldID, playerID PlayerID) error
}

// NoopStore discards everything, used when no database is configured,
// grounded on the teacher's nil-receiver-safe, connString-empty no-op
// mode in internal/db/postgres.go and internal/db/redis.go.
type NoopStore struct{}

func (NoopStore) AppendInput(context.Context, WorldID, Input) error                   { return nil }
func (NoopStore) SaveSnapshot(context.Context, WorldID, int64, []PlayerSnapshot) error { return nil }
func (NoopStore) RecordCombat(context.Context, WorldID, CombatOutcome) error           { return nil }
func (NoopStore) VacuumInputs(context.Context, WorldID, time.Time, int) (int, error)   { return 0, nil }
func (NoopStore) CascadeDeleteBot(context.Context, WorldID, string, PlayerID) error     { return nil }
func (NoopStore) LogActivityEvent(context.Context, WorldID, PlayerID, string, time.Time) error {
	return nil
}
func (NoopStore) CleanupPlayerData(context.Context, WorldID, PlayerID) error { return nil }
