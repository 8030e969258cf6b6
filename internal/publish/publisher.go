// Package publish assembles article records from submitted forms: it validates
// the input, stores uploads, resolves image links, fetches OpenGraph metadata,
// derives a unique slug and persists the result with its categories.
package publish

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/nomadhub1/nomadhub/internal/database"
	"github.com/nomadhub1/nomadhub/internal/scraper"
	"github.com/nomadhub1/nomadhub/internal/slug"
	"github.com/nomadhub1/nomadhub/internal/upload"
)

const maxSlugAttempts = 1000

// Store is the subset of the article store the publisher writes through.
// Create and update persist the record and its category links atomically.
type Store interface {
	CreateArticle(ctx context.Context, article *database.Article, categoryIDs []int64) error
	UpdateArticle(ctx context.Context, article *database.Article, categoryIDs []int64, replaceCategoryLinks bool) error
	GetArticleByID(ctx context.Context, id int64) (*database.Article, error)
	SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error)
}

// ImageResolver unwraps gallery page links into direct image URLs
type ImageResolver interface {
	ResolveImage(ctx context.Context, candidate string) string
}

// MetadataFetcher reads OpenGraph metadata from a page
type MetadataFetcher interface {
	FetchPageMetadata(ctx context.Context, rawURL string) scraper.PageMetadata
}

// Uploader persists an uploaded file and returns its public path. Remove
// deletes a path Store returned.
type Uploader interface {
	Store(ctx context.Context, f *upload.File) (string, error)
	Remove(ctx context.Context, publicPath string) error
}

// Publisher creates and updates articles
type Publisher struct {
	store    Store
	resolver ImageResolver
	fetcher  MetadataFetcher
	uploads  Uploader
	log      *zap.Logger
}

// New creates a publisher
func New(store Store, resolver ImageResolver, fetcher MetadataFetcher, uploads Uploader, log *zap.Logger) *Publisher {
	return &Publisher{
		store:    store,
		resolver: resolver,
		fetcher:  fetcher,
		uploads:  uploads,
		log:      log.Named("publish"),
	}
}

// Create validates and persists a new article, returning its id.
// Validation failures are a *ValidationError and nothing is written. On any
// later failure no row is kept and files stored for this call are removed.
func (p *Publisher) Create(ctx context.Context, in Input) (id int64, err error) {
	v, err := in.validate()
	if err != nil {
		return 0, err
	}

	article := &database.Article{}
	v.apply(article)

	stored, err := p.applyImages(ctx, article, in)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			p.discardUploads(ctx, stored)
		}
	}()

	article.Slug, err = p.uniqueSlug(ctx, v.baseSlug, 0)
	if err != nil {
		return 0, err
	}

	if err := p.store.CreateArticle(ctx, article, v.categoryIDs); err != nil {
		return 0, p.persistenceFailure("create article", err, zap.String("slug", article.Slug))
	}

	p.log.Info("article created", zap.Int64("id", article.ID), zap.String("slug", article.Slug))
	return article.ID, nil
}

// Update overwrites the article's mutable fields. Empty image and avatar
// sources keep the stored values; categories are replaced only when the
// form carried them.
func (p *Publisher) Update(ctx context.Context, id int64, in Input) (err error) {
	v, err := in.validate()
	if err != nil {
		return err
	}

	article, err := p.store.GetArticleByID(ctx, id)
	if err != nil {
		return p.persistenceFailure("load article", err, zap.Int64("id", id))
	}
	if article == nil {
		return ErrNotFound
	}
	v.apply(article)

	stored, err := p.applyImages(ctx, article, in)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			p.discardUploads(ctx, stored)
		}
	}()

	article.Slug, err = p.uniqueSlug(ctx, v.baseSlug, id)
	if err != nil {
		return err
	}

	if err := p.store.UpdateArticle(ctx, article, v.categoryIDs, in.CategoriesSet); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return p.persistenceFailure("update article", err, zap.Int64("id", id))
	}

	p.log.Info("article updated", zap.Int64("id", id), zap.String("slug", article.Slug))
	return nil
}

func (v *checkedInput) apply(a *database.Article) {
	a.Title = v.title
	a.Description = v.description
	a.Markdown = v.markdown
	a.NicheID = v.nicheID
	a.Author = v.author
	a.AuthorTitle = v.authorTitle
	a.ArticleDate = v.articleDate
	a.Badge = v.badge
}

// applyImages fills image, opengraph_image and author_avatar from the
// submitted sources and returns the upload paths it wrote. A nil source
// leaves the current value alone.
func (p *Publisher) applyImages(ctx context.Context, a *database.Article, in Input) ([]string, error) {
	var stored []string
	if in.Image != nil {
		image, err := p.imageValue(ctx, in.Image, true)
		if err != nil {
			return nil, err
		}
		if _, ok := in.Image.(UploadSource); ok && image != nil {
			stored = append(stored, *image)
		}
		a.Image = image
		a.OpenGraphImage = nil
		if image != nil {
			meta := p.fetcher.FetchPageMetadata(ctx, *image)
			a.OpenGraphImage = database.NullString(meta.Image)
		}
	}

	if in.Avatar != nil {
		avatar, err := p.imageValue(ctx, in.Avatar, false)
		if err != nil {
			p.discardUploads(ctx, stored)
			return nil, err
		}
		if _, ok := in.Avatar.(UploadSource); ok && avatar != nil {
			stored = append(stored, *avatar)
		}
		a.AuthorAvatar = avatar
	}
	return stored, nil
}

// discardUploads removes files written for a save that did not complete
func (p *Publisher) discardUploads(ctx context.Context, paths []string) {
	ctx = context.WithoutCancel(ctx)
	for _, path := range paths {
		if err := p.uploads.Remove(ctx, path); err != nil {
			p.log.Warn("failed to remove orphaned upload", zap.String("path", path), zap.Error(err))
		}
	}
}

func (p *Publisher) imageValue(ctx context.Context, src ImageSource, resolve bool) (*string, error) {
	switch s := src.(type) {
	case UploadSource:
		path, err := p.uploads.Store(ctx, s.File)
		if err != nil {
			return nil, p.persistenceFailure("store upload", err, zap.String("file", s.File.Filename))
		}
		return &path, nil
	case LinkSource:
		link := s.URL
		if resolve {
			link = p.resolver.ResolveImage(ctx, link)
		}
		return optional(link), nil
	}
	return nil, nil
}

// uniqueSlug returns base, or base-2, base-3, ... for the first slug no
// other article uses
func (p *Publisher) uniqueSlug(ctx context.Context, base string, excludeID int64) (string, error) {
	candidate := base
	for n := 2; n < maxSlugAttempts; n++ {
		taken, err := p.store.SlugTaken(ctx, candidate, excludeID)
		if err != nil {
			return "", p.persistenceFailure("check slug", err, zap.String("slug", candidate))
		}
		if !taken {
			return candidate, nil
		}
		candidate = slug.WithSuffix(base, n)
	}
	return "", p.persistenceFailure("check slug", errors.New("no free slug"), zap.String("slug", base))
}

func (p *Publisher) persistenceFailure(op string, err error, fields ...zap.Field) error {
	p.log.Error("failed to "+op, append(fields, zap.Error(err))...)
	return &PersistenceError{Op: op, Err: err}
}
