package db

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres manages the durable side of the storage seam townsim.Store
// describes: the inputs journal, activity logs, and combat history,
// grounded on the teacher's Postgres wrapper (internal/db/postgres.go)
// but with the TODO'd persistence methods actually implemented in
// store.go against spec.md §6's durable schema.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(connString string) (*Postgres, error) {
	if connString == "" {
		return &Postgres{}, nil
	}

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	slog.Info("connected to postgres")
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}

func (p *Postgres) Pool() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.pool
}

func (p *Postgres) IsConnected() bool {
	return p != nil && p.pool != nil
}

// EnsureSchema creates the durable tables this kernel's Store implementation
// depends on if they don't already exist, grounded on spec.md §6's durable
// schema table list. Only the rows the kernel itself writes are created
// here — `messages`, `relationships`, `items`, `inventories`, and the other
// auxiliary domain tables spec.md §6 names are explicitly out of this
// kernel's scope (spec.md §1: "auxiliary domain tables ... beyond the
// interface they expose to the kernel"), so they are never created or
// queried by this package.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if !p.IsConnected() {
		return nil
	}
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS inputs (
	world_id    uuid NOT NULL,
	number      bigint NOT NULL,
	name        text NOT NULL,
	player_id   uuid,
	args        jsonb,
	tick        bigint NOT NULL,
	queued_at   timestamptz NOT NULL,
	PRIMARY KEY (world_id, number)
);
CREATE TABLE IF NOT EXISTS activity_logs (
	world_id    uuid NOT NULL,
	player_id   uuid NOT NULL,
	kind        text NOT NULL,
	at          timestamptz NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS activity_logs_world_player_idx ON activity_logs (world_id, player_id);
CREATE TABLE IF NOT EXISTS combat_outcomes (
	world_id      uuid NOT NULL,
	attacker_id   uuid NOT NULL,
	defender_id   uuid NOT NULL,
	attacker_won  boolean NOT NULL,
	loot_taken    integer NOT NULL,
	defender_down boolean NOT NULL,
	message       text,
	created_at    timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS world_snapshots (
	world_id   uuid NOT NULL,
	tick       bigint NOT NULL,
	players    jsonb NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (world_id, tick)
);
`)
	return err
}
