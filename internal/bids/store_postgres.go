package bids

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
	if err := initBidSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initBidSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bids (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			creator_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (project_id, creator_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bids_project_created ON bids (project_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init bid schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// SaveBid upserts on the (project_id, creator_id) natural key so a
// retried placement cannot create a second bid.
func (s *PostgresStore) SaveBid(ctx context.Context, b Bid) (Bid, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO bids (id, project_id, creator_id, amount, note, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (project_id, creator_id) DO UPDATE SET
			amount=EXCLUDED.amount,
			note=EXCLUDED.note,
			status=EXCLUDED.status,
			updated_at=EXCLUDED.updated_at
		 RETURNING id, project_id, creator_id, amount, note, status, created_at, updated_at`,
		b.ID, b.ProjectID, b.CreatorID, b.Amount, b.Note, string(b.Status), b.CreatedAt, b.UpdatedAt,
	)
	saved, err := scanBid(row)
	if err != nil {
		return Bid{}, storage.TranslateErr("bids.save", err)
	}
	return saved, nil
}

func (s *PostgresStore) GetBid(ctx context.Context, id string) (Bid, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, project_id, creator_id, amount, note, status, created_at, updated_at
		   FROM bids WHERE id=$1`, id)
	b, err := scanBid(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bid{}, ErrNotFound
		}
		return Bid{}, storage.TranslateErr("bids.get", err)
	}
	return b, nil
}

func (s *PostgresStore) ListBidsByProject(ctx context.Context, projectID string) ([]Bid, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, creator_id, amount, note, status, created_at, updated_at
		   FROM bids WHERE project_id=$1 ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, storage.TranslateErr("bids.list", err)
	}
	defer rows.Close()

	var out []Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, storage.TranslateErr("bids.list", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.TranslateErr("bids.list", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanBid(row pgx.Row) (Bid, error) {
	var b Bid
	var status string
	err := row.Scan(&b.ID, &b.ProjectID, &b.CreatorID, &b.Amount, &b.Note, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Bid{}, err
	}
	b.Status = Status(status)
	return b, nil
}
