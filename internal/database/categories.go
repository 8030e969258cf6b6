package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateCategory inserts a category and returns its ID
func (db *DB) CreateCategory(ctx context.Context, name, slug string) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id`,
		name, slug,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create category: %w", err)
	}
	return id, nil
}

// GetAllCategories lists categories alphabetically
func (db *DB) GetAllCategories(ctx context.Context) ([]*Category, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name, slug FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[Category])
	if err != nil {
		return nil, fmt.Errorf("failed to scan categories: %w", err)
	}
	return categories, nil
}

// GetCategoryBySlug retrieves a category, or nil if none has that slug
func (db *DB) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name, slug FROM categories WHERE slug = $1`, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	category, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByNameLax[Category])
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	return category, nil
}

// GetCategoriesWithArticles lists every category with its articles attached
func (db *DB) GetCategoriesWithArticles(ctx context.Context) ([]*Category, error) {
	categories, err := db.GetAllCategories(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		JOIN article_categories ac ON ac.article_id = a.id
		WHERE ac.category_id = $1
		ORDER BY a.created_at DESC
	`
	for _, category := range categories {
		articles, err := db.queryArticles(ctx, query, category.ID)
		if err != nil {
			return nil, err
		}
		category.Articles = articles
	}
	return categories, nil
}
