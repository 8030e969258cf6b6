package server

import (
	"context"
	"time"

	"github.com/nomadhub1/nomadhub/internal/database"
)

// Store is the persistence the handlers read and write through.
// *database.DB implements it.
type Store interface {
	Ping(ctx context.Context) error

	GetAllArticles(ctx context.Context) ([]*database.Article, error)
	SearchArticles(ctx context.Context, q string) ([]*database.Article, error)
	GetArticleByID(ctx context.Context, id int64) (*database.Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (*database.Article, error)
	GetArticleByTitle(ctx context.Context, title string) (*database.Article, error)
	GetArticlesByNiche(ctx context.Context, nicheID int64) ([]*database.Article, error)
	GetArticlesByCategorySlug(ctx context.Context, categorySlug string) ([]*database.Article, error)
	GetRecentArticles(ctx context.Context, since time.Time) ([]*database.Article, error)
	IncrementViews(ctx context.Context, slug string) error
	DeleteArticle(ctx context.Context, id int64) error

	CreateCategory(ctx context.Context, name, slug string) (int64, error)
	GetAllCategories(ctx context.Context) ([]*database.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*database.Category, error)
	GetCategoriesWithArticles(ctx context.Context) ([]*database.Category, error)

	GetAllNiches(ctx context.Context) ([]*database.Niche, error)
	GetNicheBySlug(ctx context.Context, slug string) (*database.Niche, error)

	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
	GetUserByID(ctx context.Context, id int64) (*database.User, error)
	GetAllUsers(ctx context.Context) ([]*database.User, error)
	UpdateUser(ctx context.Context, u *database.User) error
	DeleteUser(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, newPassword string) error

	ListJobs(ctx context.Context) ([]*database.Job, error)
	GetJob(ctx context.Context, id int64) (*database.Job, error)
	CreateJob(ctx context.Context, job *database.Job) error
	UpdateJob(ctx context.Context, job *database.Job) error
	DeleteJob(ctx context.Context, id int64) error

	DashboardStats(ctx context.Context) (*database.Stats, error)
}

var _ Store = (*database.DB)(nil)
