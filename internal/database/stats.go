package database

import (
	"context"
	"fmt"
)

// DashboardStats counts articles, users, categories and total article views
func (db *DB) DashboardStats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM articles),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM categories),
			(SELECT COALESCE(SUM(views), 0) FROM articles)
	`

	var stats Stats
	err := db.pool.QueryRow(ctx, query).Scan(&stats.Articles, &stats.Users, &stats.Categories, &stats.PageViews)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	return &stats, nil
}
