package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS archived_auctions (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL UNIQUE,
	date       TIMESTAMPTZ NOT NULL,
	teams      JSONB NOT NULL
)`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, pool *pgxpool.Pool) (*PostgresRepository, error) {
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("create archived_auctions: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (p *PostgresRepository) Append(ctx context.Context, r Record) (bool, error) {
	teams, err := json.Marshal(r.Teams)
	if err != nil {
		return false, fmt.Errorf("encode teams: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO archived_auctions (id, run_id, date, teams) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id) DO NOTHING`,
		r.ID, r.RunID, r.Date, teams,
	)
	if err != nil {
		return false, fmt.Errorf("insert archived auction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, run_id, date, teams FROM archived_auctions ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("select archived auctions: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("scan archived auctions: %w", err)
	}
	return out, nil
}

func (p *PostgresRepository) Get(ctx context.Context, id string) (Record, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, run_id, date, teams FROM archived_auctions WHERE id = $1`, id)
	if err != nil {
		return Record{}, fmt.Errorf("select archived auction: %w", err)
	}
	r, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan archived auction: %w", err)
	}
	return r, nil
}

func scanRecord(row pgx.CollectableRow) (Record, error) {
	var (
		r     Record
		date  time.Time
		teams []byte
	)
	if err := row.Scan(&r.ID, &r.RunID, &date, &teams); err != nil {
		return Record{}, err
	}
	r.Date = date.UTC()
	if err := json.Unmarshal(teams, &r.Teams); err != nil {
		return Record{}, fmt.Errorf("decode teams for %s: %w", r.ID, err)
	}
	return r, nil
}
