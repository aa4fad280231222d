package db

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/arden/townsim/internal/townsim"
)

// Store implements townsim.Store against Postgres (durable) and Redis
// (fast-path cache), grounded on the seam townsim/store.go defines: the
// kernel never imports pgx or go-redis directly, only this package does.
type Store struct {
	pg     *Postgres
	rdb    *Redis
	logger *slog.Logger
}

func NewStore(pg *Postgres, rdb *Redis, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pg: pg, rdb: rdb, logger: logger}
}

var _ townsim.Store = (*Store)(nil)

func (s *Store) AppendInput(ctx context.Context, worldID townsim.WorldID, in townsim.Input) error {
	if !s.pg.IsConnected() {
		return nil
	}
	args, err := json.Marshal(in.Args)
	if err != nil {
		return err
	}
	_, err = s.pg.Pool().Exec(ctx, `
INSERT INTO inputs (world_id, number, name, player_id, args, tick, queued_at)
VALUES ($1, $2, $3, NULLIF($4, '00000000-0000-0000-0000-000000000000'), $5, $6, $7)
ON CONFLICT (world_id, number) DO NOTHING
`, worldID.String(), in.Number, string(in.Name), in.PlayerID.String(), args, in.Tick, in.QueuedAt)
	return err
}

func (s *Store) SaveSnapshot(ctx context.Context, worldID townsim.WorldID, tick int64, players []townsim.PlayerSnapshot) error {
	payload, err := json.Marshal(players)
	if err != nil {
		return err
	}

	if s.rdb.IsConnected() {
		if err := s.rdb.SetSnapshot(ctx, worldID.String(), tick, json.RawMessage(payload)); err != nil {
			s.logger.Warn("snapshot cache write failed", "world", worldID.String(), "err", err)
		}
	}

	if !s.pg.IsConnected() {
		return nil
	}
	_, err = s.pg.Pool().Exec(ctx, `
INSERT INTO world_snapshots (world_id, tick, players)
VALUES ($1, $2, $3)
ON CONFLICT (world_id, tick) DO UPDATE SET players = EXCLUDED.players
`, worldID.String(), tick, payload)
	return err
}

func (s *Store) RecordCombat(ctx context.Context, worldID townsim.WorldID, outcome townsim.CombatOutcome) error {
	if !s.pg.IsConnected() {
		return nil
	}
	_, err := s.pg.Pool().Exec(ctx, `
INSERT INTO combat_outcomes (world_id, attacker_id, defender_id, attacker_won, loot_taken, defender_down, message)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, worldID.String(), outcome.AttackerID.String(), outcome.DefenderID.String(), outcome.AttackerWon, outcome.LootTaken, outcome.DefenderDown, outcome.Message)
	return err
}

func (s *Store) VacuumInputs(ctx context.Context, worldID townsim.WorldID, olderThan time.Time, batchSize int) (int, error) {
	if !s.pg.IsConnected() {
		return 0, nil
	}
	tag, err := s.pg.Pool().Exec(ctx, `
DELETE FROM inputs
WHERE ctid IN (
	SELECT ctid FROM inputs
	WHERE world_id = $1 AND queued_at < $2
	LIMIT $3
)
`, worldID.String(), olderThan, batchSize)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// CascadeDeleteBot removes every durable record this kernel writes that
// names aiArenaBotID's player, grounded on spec.md §4.9's cascade
// deletion. Tables spec.md §6 names that this kernel never populates
// (messages, relationships, items, inventories, lootboxQueue,
// pendingBotRegistrations, participatedTogether, botExperience,
// archivedPlayers/Agents/Conversations) are out of scope per spec.md §1's
// "auxiliary domain tables beyond the interface they expose to the
// kernel" — nothing here assumes they exist.
func (s *Store) CascadeDeleteBot(ctx context.Context, worldID townsim.WorldID, aiArenaBotID string, playerID townsim.PlayerID) error {
	if !s.pg.IsConnected() {
		return nil
	}

	tx, err := s.pg.Pool().Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	playerIDStr := playerID.String()

	if err := cascadeDeleteBatched(ctx, tx, `
DELETE FROM activity_logs
WHERE ctid IN (
	SELECT ctid FROM activity_logs
	WHERE world_id = $1 AND player_id = $2
	LIMIT 2000
)`, worldID.String(), playerIDStr); err != nil {
		return err
	}

	if err := cascadeDeleteBatched(ctx, tx, `
DELETE FROM inputs
WHERE ctid IN (
	SELECT ctid FROM inputs
	WHERE world_id = $1 AND (player_id = $2 OR args->>'aiArenaBotId' = $3)
	LIMIT 1000
)`, worldID.String(), playerIDStr, aiArenaBotID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CleanupPlayerData removes the durable records a regular leave{playerId}
// departure leaves behind, grounded on spec.md §6's leave contract
// ("schedules cleanupPlayerData"). Unlike CascadeDeleteBot, there is no
// aiArenaBotId to match against — this cleans up a player's own rows only.
func (s *Store) CleanupPlayerData(ctx context.Context, worldID townsim.WorldID, playerID townsim.PlayerID) error {
	if !s.pg.IsConnected() {
		return nil
	}

	tx, err := s.pg.Pool().Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	playerIDStr := playerID.String()

	if err := cascadeDeleteBatched(ctx, tx, `
DELETE FROM activity_logs
WHERE ctid IN (
	SELECT ctid FROM activity_logs
	WHERE world_id = $1 AND player_id = $2
	LIMIT 2000
)`, worldID.String(), playerIDStr); err != nil {
		return err
	}

	if err := cascadeDeleteBatched(ctx, tx, `
DELETE FROM inputs
WHERE ctid IN (
	SELECT ctid FROM inputs
	WHERE world_id = $1 AND player_id = $2
	LIMIT 1000
)`, worldID.String(), playerIDStr); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// cascadeDeleteBatched repeats a capped DELETE until it removes nothing
// more, grounded on spec.md §4.9's "batched with per-run caps... repeat
// until idempotent" rule.
func cascadeDeleteBatched(ctx context.Context, tx pgx.Tx, query string, args ...interface{}) error {
	for {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
	}
}

func (s *Store) LogActivityEvent(ctx context.Context, worldID townsim.WorldID, playerID townsim.PlayerID, kind string, at time.Time) error {
	if !s.pg.IsConnected() {
		return nil
	}
	_, err := s.pg.Pool().Exec(ctx, `
INSERT INTO activity_logs (world_id, player_id, kind, at)
VALUES ($1, $2, $3, $4)
`, worldID.String(), playerID.String(), kind, at)
	return err
}
