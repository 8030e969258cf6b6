package server

import (
	"github.com/nomadhub1/nomadhub/internal/database"
	"github.com/nomadhub1/nomadhub/internal/session"
)

// pageMeta is the data every page's layout needs
type pageMeta struct {
	Title       string
	SiteName    string
	Description string
	Image       string
	ActiveNiche string
	Niches      []*database.Niche
	User        *session.Data
	Flash       []session.Flash
}

func (m pageMeta) isAdmin() bool {
	return m.User != nil && m.User.IsAdmin
}

// articleForm is the state of the create/edit article form
type articleForm struct {
	Heading string
	Action  string

	Title       string
	Description string
	Markdown    string
	NicheID     string
	Author      string
	AuthorTitle string
	ArticleDate string
	Badge       string
	ImageLink   string
	AvatarLink  string

	CurrentImage  string
	CurrentAvatar string
	Selected      map[string]bool

	Niches     []*database.Niche
	Categories []*database.Category
	Errors     []string
}
