package database

import "time"

// Article is a published guide belonging to exactly one niche
type Article struct {
	ID             int64      `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Slug           string     `db:"slug" json:"slug"`
	Description    *string    `db:"description" json:"description"`
	Markdown       string     `db:"markdown" json:"markdown"`
	Image          *string    `db:"image" json:"image"`
	NicheID        int64      `db:"niche_id" json:"niche_id"`
	Author         *string    `db:"author" json:"author"`
	AuthorTitle    *string    `db:"author_title" json:"author_title"`
	AuthorAvatar   *string    `db:"author_avatar" json:"author_avatar"`
	ArticleDate    *time.Time `db:"article_date" json:"article_date"`
	Badge          *string    `db:"badge" json:"badge"`
	OpenGraphImage *string    `db:"opengraph_image" json:"opengraph_image"`
	Views          int64      `db:"views" json:"views"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	// Populated by joined queries only
	NicheName  *string     `db:"niche_name" json:"niche_name,omitempty"`
	NicheSlug  *string     `db:"niche_slug" json:"niche_slug,omitempty"`
	Categories []*Category `db:"-" json:"categories,omitempty"`
}

// Category is a cross-cutting tag; articles may carry many
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`

	Articles []*Article `db:"-" json:"articles,omitempty"`
}

// Niche is the top-level vertical every article belongs to
type Niche struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

// User is a console account. IsAdmin is the only authorization distinction.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	IsAdmin   bool      `db:"is_admin" json:"is_admin"`
	Name      *string   `db:"name" json:"name"`
	Avatar    *string   `db:"avatar" json:"avatar"`
	Title     *string   `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Job is a sponsored job board listing
type Job struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Company     string    `db:"company" json:"company"`
	Description string    `db:"description" json:"description"`
	Location    string    `db:"location" json:"location"`
	JobURL      string    `db:"job_url" json:"job_url"`
	PostedBy    *int64    `db:"posted_by" json:"posted_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Stats are the dashboard counters
type Stats struct {
	Articles   int64
	Users      int64
	Categories int64
	PageViews  int64
}

// StringValue dereferences a nullable column, returning "" for NULL
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NullString maps "" to NULL
func NullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
