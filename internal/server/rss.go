package server

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/nomadhub1/nomadhub/internal/config"
	"github.com/nomadhub1/nomadhub/internal/database"
	"github.com/nomadhub1/nomadhub/internal/render"
)

const feedItemLimit = 50

// handleRSS generates and serves the RSS feed
func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	// Articles from the last 30 days
	since := time.Now().AddDate(0, 0, -30)
	articles, err := s.store.GetRecentArticles(r.Context(), since)
	if err != nil {
		s.serverError(w, r, "Failed to fetch articles.", err)
		return
	}

	feed, err := GenerateRSSFeed(articles, s.config, s.renderer)
	if err != nil {
		s.serverError(w, r, "Failed to generate feed.", err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(feed))
}

// GenerateRSSFeed creates an RSS feed from articles. Bodies go through the
// same markdown sanitizer as the article page.
func GenerateRSSFeed(articles []*database.Article, cfg *config.Config, renderer *render.Renderer) (string, error) {
	feed := &feeds.Feed{
		Title:       cfg.SiteName,
		Link:        &feeds.Link{Href: cfg.SiteURL},
		Description: cfg.FeedDescription,
		Author:      &feeds.Author{Name: cfg.SiteName},
		Created:     time.Now(),
	}

	if len(articles) > feedItemLimit {
		articles = articles[:feedItemLimit]
	}

	feed.Items = make([]*feeds.Item, 0, len(articles))
	for _, article := range articles {
		link := fmt.Sprintf("%s/articles/%s", cfg.SiteURL, article.Slug)
		item := &feeds.Item{
			Title:       article.Title,
			Link:        &feeds.Link{Href: link},
			Id:          link,
			Description: renderer.Sanitize(database.StringValue(article.Description)),
			Content:     renderer.Markdown(article.Markdown),
			Created:     article.CreatedAt,
			Updated:     article.UpdatedAt,
		}

		if article.Author != nil {
			item.Author = &feeds.Author{Name: *article.Author}
		}
		if article.ArticleDate != nil {
			item.Created = *article.ArticleDate
		}
		if image := database.StringValue(article.Image); image != "" {
			item.Enclosure = &feeds.Enclosure{Url: absoluteURL(cfg.SiteURL, image), Type: imageMIME(image), Length: "0"}
		}

		feed.Items = append(feed.Items, item)
	}

	// Generate RSS 2.0 format
	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to generate RSS: %w", err)
	}

	return rss, nil
}

func absoluteURL(base, ref string) string {
	if len(ref) > 0 && ref[0] == '/' {
		return base + ref
	}
	return ref
}

func imageMIME(ref string) string {
	if u, err := url.Parse(ref); err == nil {
		ref = u.Path
	}
	switch strings.ToLower(strings.TrimPrefix(path.Ext(ref), ".")) {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
