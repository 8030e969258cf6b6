package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const articleColumns = `a.id, a.title, a.slug, a.description, a.markdown, a.image, a.niche_id,
	a.author, a.author_title, a.author_avatar, a.article_date, a.badge, a.opengraph_image,
	a.views, a.created_at, a.updated_at`

const articleWithNicheColumns = articleColumns + `, n.name AS niche_name, n.slug AS niche_slug`

// CreateArticle inserts a new article and its category links in one
// transaction, filling in the generated fields. Nothing is kept if any
// statement fails.
func (db *DB) CreateArticle(ctx context.Context, article *Article, categoryIDs []int64) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertArticle(ctx, tx, article); err != nil {
			return err
		}
		return replaceCategories(ctx, tx, article.ID, categoryIDs)
	})
}

// UpdateArticle overwrites every mutable field of the article with the given
// ID. When replaceCategoryLinks is set the category links are replaced with
// categoryIDs in the same transaction.
func (db *DB) UpdateArticle(ctx context.Context, article *Article, categoryIDs []int64, replaceCategoryLinks bool) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		if err := updateArticle(ctx, tx, article); err != nil {
			return err
		}
		if !replaceCategoryLinks {
			return nil
		}
		return replaceCategories(ctx, tx, article.ID, categoryIDs)
	})
}

func insertArticle(ctx context.Context, q querier, article *Article) error {
	query := `
		INSERT INTO articles (title, slug, description, markdown, image, niche_id, author,
			author_title, author_avatar, article_date, badge, opengraph_image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, views, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		article.Title,
		article.Slug,
		article.Description,
		article.Markdown,
		article.Image,
		article.NicheID,
		article.Author,
		article.AuthorTitle,
		article.AuthorAvatar,
		article.ArticleDate,
		article.Badge,
		article.OpenGraphImage,
	).Scan(&article.ID, &article.Views, &article.CreatedAt, &article.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}

	return nil
}

func updateArticle(ctx context.Context, q querier, article *Article) error {
	query := `
		UPDATE articles
		SET title = $1, slug = $2, description = $3, markdown = $4, image = $5, niche_id = $6,
			author = $7, author_title = $8, author_avatar = $9, article_date = $10, badge = $11,
			opengraph_image = $12, updated_at = NOW()
		WHERE id = $13
		RETURNING updated_at
	`

	err := q.QueryRow(ctx, query,
		article.Title,
		article.Slug,
		article.Description,
		article.Markdown,
		article.Image,
		article.NicheID,
		article.Author,
		article.AuthorTitle,
		article.AuthorAvatar,
		article.ArticleDate,
		article.Badge,
		article.OpenGraphImage,
		article.ID,
	).Scan(&article.UpdatedAt)

	if isNoRows(err) {
		return fmt.Errorf("article %d: %w", article.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}

	return nil
}

// DeleteArticle removes an article together with its category associations
func (db *DB) DeleteArticle(ctx context.Context, id int64) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM article_categories WHERE article_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete article categories: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete article: %w", err)
		}
		return nil
	})
}

// GetArticleByID retrieves an article by its ID, or nil if it does not exist
func (db *DB) GetArticleByID(ctx context.Context, id int64) (*Article, error) {
	query := `
		SELECT ` + articleWithNicheColumns + `
		FROM articles a
		JOIN niches n ON a.niche_id = n.id
		WHERE a.id = $1
	`

	article, err := db.queryArticle(ctx, query, id)
	if err != nil || article == nil {
		return article, err
	}

	article.Categories, err = db.GetCategoriesForArticle(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	return article, nil
}

// GetArticleBySlug retrieves an article with its niche and categories, or nil
func (db *DB) GetArticleBySlug(ctx context.Context, slug string) (*Article, error) {
	query := `
		SELECT ` + articleWithNicheColumns + `
		FROM articles a
		JOIN niches n ON a.niche_id = n.id
		WHERE a.slug = $1
		LIMIT 1
	`

	article, err := db.queryArticle(ctx, query, slug)
	if err != nil || article == nil {
		return article, err
	}

	article.Categories, err = db.GetCategoriesForArticle(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	return article, nil
}

// GetArticleByTitle retrieves the first article with an exact title match, or nil
func (db *DB) GetArticleByTitle(ctx context.Context, title string) (*Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		WHERE a.title = $1
		ORDER BY a.id
		LIMIT 1
	`
	return db.queryArticle(ctx, query, title)
}

// GetAllArticles retrieves all articles, ordered by most recent first
func (db *DB) GetAllArticles(ctx context.Context) ([]*Article, error) {
	query := `
		SELECT ` + articleWithNicheColumns + `
		FROM articles a
		JOIN niches n ON a.niche_id = n.id
		ORDER BY a.created_at DESC
	`

	articles, err := db.queryArticles(ctx, query)
	if err != nil {
		return nil, err
	}
	return articles, db.attachCategories(ctx, articles)
}

// SearchArticles matches the query against title, description, body and author
func (db *DB) SearchArticles(ctx context.Context, q string) ([]*Article, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []*Article{}, nil
	}

	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		WHERE a.title ILIKE $1 OR a.description ILIKE $1 OR a.markdown ILIKE $1 OR a.author ILIKE $1
		ORDER BY a.created_at DESC
		LIMIT 20
	`

	articles, err := db.queryArticles(ctx, query, "%"+escapeLike(q)+"%")
	if err != nil {
		return nil, err
	}
	return articles, db.attachCategories(ctx, articles)
}

// GetArticlesByNiche retrieves the articles of one niche, newest first
func (db *DB) GetArticlesByNiche(ctx context.Context, nicheID int64) ([]*Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		WHERE a.niche_id = $1
		ORDER BY a.created_at DESC
	`

	articles, err := db.queryArticles(ctx, query, nicheID)
	if err != nil {
		return nil, err
	}
	return articles, db.attachCategories(ctx, articles)
}

// GetArticlesByCategorySlug retrieves the articles tagged with a category
func (db *DB) GetArticlesByCategorySlug(ctx context.Context, categorySlug string) ([]*Article, error) {
	query := `
		SELECT ` + articleWithNicheColumns + `
		FROM articles a
		JOIN niches n ON a.niche_id = n.id
		JOIN article_categories ac ON ac.article_id = a.id
		JOIN categories c ON c.id = ac.category_id
		WHERE c.slug = $1
		ORDER BY a.created_at DESC
	`

	articles, err := db.queryArticles(ctx, query, categorySlug)
	if err != nil {
		return nil, err
	}
	return articles, db.attachCategories(ctx, articles)
}

// GetRecentArticles retrieves articles created at or after since
func (db *DB) GetRecentArticles(ctx context.Context, since time.Time) ([]*Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		WHERE a.created_at >= $1
		ORDER BY a.created_at DESC
	`
	return db.queryArticles(ctx, query, since)
}

// IncrementViews bumps the best-effort view counter of the article with slug
func (db *DB) IncrementViews(ctx context.Context, slug string) error {
	_, err := db.pool.Exec(ctx, `UPDATE articles SET views = COALESCE(views, 0) + 1 WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

// SlugTaken reports whether another article (not excludeID) already uses slug
func (db *DB) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM articles WHERE slug = $1 AND id <> $2)`

	var exists bool
	if err := db.pool.QueryRow(ctx, query, slug, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

// ReplaceArticleCategories swaps the full association set of an article
func (db *DB) ReplaceArticleCategories(ctx context.Context, articleID int64, categoryIDs []int64) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		return replaceCategories(ctx, tx, articleID, categoryIDs)
	})
}

func replaceCategories(ctx context.Context, q querier, articleID int64, categoryIDs []int64) error {
	if _, err := q.Exec(ctx, `DELETE FROM article_categories WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("failed to clear article categories: %w", err)
	}

	batch := &pgx.Batch{}
	for _, categoryID := range categoryIDs {
		batch.Queue(`
			INSERT INTO article_categories (article_id, category_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, articleID, categoryID)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert article categories: %w", err)
	}
	return nil
}

// GetCategoriesForArticle lists the categories associated with an article
func (db *DB) GetCategoriesForArticle(ctx context.Context, articleID int64) ([]*Category, error) {
	query := `
		SELECT c.id, c.name, c.slug
		FROM categories c
		JOIN article_categories ac ON ac.category_id = c.id
		WHERE ac.article_id = $1
		ORDER BY c.name ASC
	`

	rows, err := db.pool.Query(ctx, query, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query article categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[Category])
	if err != nil {
		return nil, fmt.Errorf("failed to scan article categories: %w", err)
	}
	return categories, nil
}

func (db *DB) attachCategories(ctx context.Context, articles []*Article) error {
	for _, article := range articles {
		categories, err := db.GetCategoriesForArticle(ctx, article.ID)
		if err != nil {
			return err
		}
		article.Categories = categories
	}
	return nil
}

func (db *DB) queryArticle(ctx context.Context, query string, args ...any) (*Article, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	article, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByNameLax[Article])
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}
	return article, nil
}

func (db *DB) queryArticles(ctx context.Context, query string, args ...any) ([]*Article, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	articles, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[Article])
	if err != nil {
		return nil, fmt.Errorf("failed to scan articles: %w", err)
	}
	return articles, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
