package creators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ent0n29/matchwork/internal/storage"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initCreatorSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initCreatorSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS creators (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			skills TEXT[] NOT NULL DEFAULT '{}',
			tier TEXT NOT NULL DEFAULT '',
			day_rate INTEGER NOT NULL DEFAULT 0,
			availability TEXT NOT NULL DEFAULT 'available',
			active_assignments INTEGER NOT NULL DEFAULT 0,
			max_concurrent INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_creators_availability ON creators (availability);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init creator schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// SaveCreator upserts by ID so retried writes stay idempotent.
func (s *PostgresStore) SaveCreator(ctx context.Context, c Creator) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO creators (
			id, name, skills, tier, day_rate, availability, active_assignments, max_concurrent, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			skills=EXCLUDED.skills,
			tier=EXCLUDED.tier,
			day_rate=EXCLUDED.day_rate,
			availability=EXCLUDED.availability,
			max_concurrent=EXCLUDED.max_concurrent,
			updated_at=EXCLUDED.updated_at`,
		c.ID, c.Name, c.Skills, c.Tier, c.DayRate, c.Availability,
		c.ActiveAssignments, c.MaxConcurrent, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return storage.TranslateErr("creators.save", err)
	}
	return nil
}

func (s *PostgresStore) GetCreator(ctx context.Context, id string) (Creator, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, skills, tier, day_rate, availability, active_assignments, max_concurrent, created_at, updated_at
		   FROM creators WHERE id=$1`, id)
	c, err := scanCreator(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Creator{}, ErrNotFound
		}
		return Creator{}, storage.TranslateErr("creators.get", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCreators(ctx context.Context, limit int) ([]Creator, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, skills, tier, day_rate, availability, active_assignments, max_concurrent, created_at, updated_at
		   FROM creators ORDER BY created_at, id LIMIT $1`, limit)
	if err != nil {
		return nil, storage.TranslateErr("creators.list", err)
	}
	defer rows.Close()

	var out []Creator
	for rows.Next() {
		c, err := scanCreator(rows)
		if err != nil {
			return nil, storage.TranslateErr("creators.list", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.TranslateErr("creators.list", err)
	}
	return out, nil
}

// AdjustAssignments shifts a creator's active workload. The floor at zero
// keeps a duplicate decrement from going negative.
func (s *PostgresStore) AdjustAssignments(ctx context.Context, id string, delta int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE creators
		    SET active_assignments = GREATEST(active_assignments + $2, 0), updated_at = now()
		  WHERE id=$1`, id, delta)
	if err != nil {
		return storage.TranslateErr("creators.adjust", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanCreator(row pgx.Row) (Creator, error) {
	var c Creator
	err := row.Scan(&c.ID, &c.Name, &c.Skills, &c.Tier, &c.DayRate, &c.Availability,
		&c.ActiveAssignments, &c.MaxConcurrent, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Creator{}, err
	}
	return c, nil
}
