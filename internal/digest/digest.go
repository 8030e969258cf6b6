// Package digest assembles the weekly summary of recently created articles.
// It only shapes data; delivery is left to whoever consumes the result.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/nomadhub1/nomadhub/internal/database"
)

// Window is the trailing period the digest covers
const Window = 7 * 24 * time.Hour

// Store provides the articles created since a point in time
type Store interface {
	GetRecentArticles(ctx context.Context, since time.Time) ([]*database.Article, error)
}

// PreviewItem is one line of the digest preview
type PreviewItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Digest is the assembled payload
type Digest struct {
	Subject  string              `json:"subject"`
	Since    time.Time           `json:"since"`
	Articles []*database.Article `json:"articles"`
	Preview  []PreviewItem       `json:"preview"`
}

// Assembler prepares digests
type Assembler struct {
	store   Store
	subject string
	now     func() time.Time
}

// New creates an assembler using the given subject line
func New(store Store, subject string) *Assembler {
	return &Assembler{store: store, subject: subject, now: time.Now}
}

// Prepare collects every article created within Window of now, inclusive
func (a *Assembler) Prepare(ctx context.Context) (*Digest, error) {
	since := a.now().Add(-Window)

	articles, err := a.store.GetRecentArticles(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent articles: %w", err)
	}

	d := &Digest{
		Subject:  a.subject,
		Since:    since,
		Articles: make([]*database.Article, 0, len(articles)),
		Preview:  make([]PreviewItem, 0, len(articles)),
	}
	for _, article := range articles {
		if article.CreatedAt.Before(since) {
			continue
		}
		d.Articles = append(d.Articles, article)
		d.Preview = append(d.Preview, PreviewItem{
			Title: article.Title,
			Link:  "/articles/" + article.Slug,
		})
	}
	return d, nil
}
