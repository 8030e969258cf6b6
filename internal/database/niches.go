package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetAllNiches lists niches in creation order
func (db *DB) GetAllNiches(ctx context.Context) ([]*Niche, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name, slug FROM niches ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query niches: %w", err)
	}
	niches, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Niche])
	if err != nil {
		return nil, fmt.Errorf("failed to scan niches: %w", err)
	}
	return niches, nil
}

// GetNicheByID retrieves a niche, or nil
func (db *DB) GetNicheByID(ctx context.Context, id int64) (*Niche, error) {
	return db.queryNiche(ctx, `SELECT id, name, slug FROM niches WHERE id = $1`, id)
}

// GetNicheBySlug retrieves a niche, or nil
func (db *DB) GetNicheBySlug(ctx context.Context, slug string) (*Niche, error) {
	return db.queryNiche(ctx, `SELECT id, name, slug FROM niches WHERE slug = $1`, slug)
}

func (db *DB) queryNiche(ctx context.Context, query string, arg any) (*Niche, error) {
	rows, err := db.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get niche: %w", err)
	}
	niche, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Niche])
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan niche: %w", err)
	}
	return niche, nil
}
