package projects

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
	if err := initProjectSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initProjectSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			brief TEXT NOT NULL DEFAULT '',
			skills TEXT[] NOT NULL DEFAULT '{}',
			budget_tier TEXT NOT NULL DEFAULT '',
			max_day_rate INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_status_created ON projects (status, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects (owner_id);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init project schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// SaveProject upserts by ID, so a retried write whose first acknowledgment
// timed out cannot create a duplicate.
func (s *PostgresStore) SaveProject(ctx context.Context, p Project) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO projects (
			id, owner_id, title, brief, skills, budget_tier, max_day_rate, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			owner_id=EXCLUDED.owner_id,
			title=EXCLUDED.title,
			brief=EXCLUDED.brief,
			skills=EXCLUDED.skills,
			budget_tier=EXCLUDED.budget_tier,
			max_day_rate=EXCLUDED.max_day_rate,
			status=EXCLUDED.status,
			updated_at=EXCLUDED.updated_at`,
		p.ID, p.OwnerID, p.Title, p.Brief, p.Skills, p.BudgetTier, p.MaxDayRate,
		string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return storage.TranslateErr("projects.save", err)
	}
	return nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, brief, skills, budget_tier, max_day_rate, status, created_at, updated_at
		   FROM projects WHERE id=$1`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, storage.TranslateErr("projects.get", err)
	}
	return p, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, status Status, limit int) ([]Project, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = s.pool.Query(ctx,
			`SELECT id, owner_id, title, brief, skills, budget_tier, max_day_rate, status, created_at, updated_at
			   FROM projects ORDER BY created_at DESC LIMIT $1`, limit)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT id, owner_id, title, brief, skills, budget_tier, max_day_rate, status, created_at, updated_at
			   FROM projects WHERE status=$1 ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	}
	if err != nil {
		return nil, storage.TranslateErr("projects.list", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, storage.TranslateErr("projects.list", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.TranslateErr("projects.list", err)
	}
	return out, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM projects GROUP BY status`)
	if err != nil {
		return nil, storage.TranslateErr("projects.count", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, storage.TranslateErr("projects.count", err)
		}
		counts[Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storage.TranslateErr("projects.count", err)
	}
	return counts, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	var status string
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Brief, &p.Skills, &p.BudgetTier,
		&p.MaxDayRate, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, err
	}
	p.Status = Status(status)
	return p, nil
}
