package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// memTables holds the rows of articles and article_categories. The link set
// is keyed by (article_id, category_id), the table's primary key.
type memTables struct {
	nextID   int64
	articles map[int64]string
	links    map[[2]int64]bool
}

func newMemTables() *memTables {
	return &memTables{articles: map[int64]string{}, links: map[[2]int64]bool{}}
}

func (m *memTables) clone() *memTables {
	c := &memTables{nextID: m.nextID, articles: map[int64]string{}, links: map[[2]int64]bool{}}
	for id, slug := range m.articles {
		c.articles[id] = slug
	}
	for k := range m.links {
		c.links[k] = true
	}
	return c
}

func (m *memTables) categoriesOf(articleID int64) []int64 {
	ids := []int64{}
	for k := range m.links {
		if k[0] == articleID {
			ids = append(ids, k[1])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// memPool runs the article statements against memTables. Each transaction
// works on a copy that only Commit publishes.
type memPool struct {
	pool

	tables *memTables
	// badCategory is a category id that does not exist; linking it violates
	// the foreign key
	badCategory int64
	commits     int
}

func (p *memPool) Begin(context.Context) (pgx.Tx, error) {
	return &memTx{pool: p, work: p.tables.clone()}, nil
}

type memTx struct {
	pgx.Tx

	pool   *memPool
	work   *memTables
	closed bool
}

func (tx *memTx) Commit(context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.pool.tables = tx.work
	tx.pool.commits++
	return nil
}

func (tx *memTx) Rollback(context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	return nil
}

func (tx *memTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if !strings.HasPrefix(strings.TrimSpace(sql), "DELETE FROM article_categories") {
		return pgconn.CommandTag{}, fmt.Errorf("unexpected statement: %s", sql)
	}
	articleID := args[0].(int64)
	for k := range tx.work.links {
		if k[0] == articleID {
			delete(tx.work.links, k)
		}
	}
	return pgconn.CommandTag{}, nil
}

func (tx *memTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	switch stmt := strings.TrimSpace(sql); {
	case strings.HasPrefix(stmt, "INSERT INTO articles"):
		tx.work.nextID++
		id := tx.work.nextID
		tx.work.articles[id] = args[1].(string)
		return memRow(func(dest ...any) error {
			*dest[0].(*int64) = id
			*dest[1].(*int64) = 0
			*dest[2].(*time.Time) = time.Now()
			*dest[3].(*time.Time) = time.Now()
			return nil
		})
	case strings.HasPrefix(stmt, "UPDATE articles"):
		id := args[12].(int64)
		if _, ok := tx.work.articles[id]; !ok {
			return memRow(func(...any) error { return pgx.ErrNoRows })
		}
		tx.work.articles[id] = args[1].(string)
		return memRow(func(dest ...any) error {
			*dest[0].(*time.Time) = time.Now()
			return nil
		})
	}
	return memRow(func(...any) error { return fmt.Errorf("unexpected statement: %s", sql) })
}

func (tx *memTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	for _, q := range b.QueuedQueries {
		if !strings.Contains(q.SQL, "INSERT INTO article_categories") {
			return memBatch{err: fmt.Errorf("unexpected statement: %s", q.SQL)}
		}
		key := [2]int64{q.Arguments[0].(int64), q.Arguments[1].(int64)}
		if key[1] == tx.pool.badCategory {
			return memBatch{err: &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}}
		}
		if tx.work.links[key] {
			if strings.Contains(q.SQL, "ON CONFLICT DO NOTHING") {
				continue
			}
			return memBatch{err: &pgconn.PgError{Code: "23505", Message: "duplicate key value"}}
		}
		tx.work.links[key] = true
	}
	return memBatch{}
}

type memRow func(dest ...any) error

func (r memRow) Scan(dest ...any) error { return r(dest...) }

type memBatch struct {
	pgx.BatchResults
	err error
}

func (b memBatch) Close() error { return b.err }

func newMemDB() (*DB, *memPool) {
	p := &memPool{tables: newMemTables()}
	return &DB{pool: p}, p
}

func TestReplaceArticleCategories_Idempotent(t *testing.T) {
	db, p := newMemDB()
	p.tables.links[[2]int64{7, 9}] = true
	p.tables.links[[2]int64{8, 4}] = true
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := db.ReplaceArticleCategories(ctx, 7, []int64{4, 5, 5}); err != nil {
			t.Fatalf("replace #%d: %v", i+1, err)
		}
	}

	if diff := cmp.Diff([]int64{4, 5}, p.tables.categoriesOf(7)); diff != "" {
		t.Errorf("article 7 categories (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{4}, p.tables.categoriesOf(8)); diff != "" {
		t.Errorf("other articles must be untouched (-want +got):\n%s", diff)
	}
	if p.commits != 2 {
		t.Errorf("commits = %d, want 2", p.commits)
	}
}

func TestReplaceArticleCategories_EmptyClears(t *testing.T) {
	db, p := newMemDB()
	p.tables.links[[2]int64{7, 9}] = true

	if err := db.ReplaceArticleCategories(context.Background(), 7, nil); err != nil {
		t.Fatal(err)
	}
	if got := p.tables.categoriesOf(7); len(got) != 0 {
		t.Errorf("categories = %v, want none", got)
	}
}

func TestCreateArticle_RollsBackOnCategoryFailure(t *testing.T) {
	db, p := newMemDB()
	p.badCategory = 99
	ctx := context.Background()

	err := db.CreateArticle(ctx, &Article{Title: "Visa Guide 2025", Slug: "visa-guide-2025"}, []int64{1, 99})

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23503" {
		t.Fatalf("CreateArticle = %v, want foreign key violation", err)
	}
	if len(p.tables.articles) != 0 || len(p.tables.links) != 0 {
		t.Fatalf("failed create left rows behind: articles=%v links=%v", p.tables.articles, p.tables.links)
	}

	a := &Article{Title: "Visa Guide 2025", Slug: "visa-guide-2025"}
	if err := db.CreateArticle(ctx, a, []int64{1}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[int64]string{a.ID: "visa-guide-2025"}, p.tables.articles); diff != "" {
		t.Errorf("articles (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1}, p.tables.categoriesOf(a.ID)); diff != "" {
		t.Errorf("categories (-want +got):\n%s", diff)
	}
}

func TestUpdateArticle_CategoryLinks(t *testing.T) {
	db, p := newMemDB()
	p.tables.nextID = 1
	p.tables.articles[1] = "visa-guide"
	p.tables.links[[2]int64{1, 2}] = true
	ctx := context.Background()

	if err := db.UpdateArticle(ctx, &Article{ID: 1, Slug: "visa-guide-2026"}, nil, false); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{2}, p.tables.categoriesOf(1)); diff != "" {
		t.Errorf("links must be kept when not replacing (-want +got):\n%s", diff)
	}
	if got := p.tables.articles[1]; got != "visa-guide-2026" {
		t.Errorf("slug = %q", got)
	}

	if err := db.UpdateArticle(ctx, &Article{ID: 1, Slug: "visa-guide-2026"}, []int64{3}, true); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{3}, p.tables.categoriesOf(1)); diff != "" {
		t.Errorf("links (-want +got):\n%s", diff)
	}
}

func TestUpdateArticle_Missing(t *testing.T) {
	db, p := newMemDB()

	err := db.UpdateArticle(context.Background(), &Article{ID: 42}, []int64{1}, true)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateArticle = %v, want ErrNotFound", err)
	}
	if len(p.tables.links) != 0 {
		t.Errorf("links written for a missing article: %v", p.tables.links)
	}
}
