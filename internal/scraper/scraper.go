// Package scraper resolves user-supplied image references into direct image
// URLs and reads OpenGraph metadata from remote pages. Every failure degrades
// to a safe default; callers never see an error.
package scraper

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// GalleryHost describes a photo site whose pages wrap the actual image
type GalleryHost struct {
	Name    string
	Pattern *regexp.Regexp
	// ImageFallback allows the first img[alt][src] when the page has no og:image
	ImageFallback bool
}

// DefaultGalleryHosts are the photo page URLs the resolver knows how to unwrap
var DefaultGalleryHosts = []GalleryHost{
	{Name: "pexels", Pattern: regexp.MustCompile(`pexels\.com/photo/`), ImageFallback: true},
	{Name: "unsplash", Pattern: regexp.MustCompile(`unsplash\.com/photos/`)},
}

var directImagePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)(\?.*)?$`)

var (
	selOGImage       = cascadia.MustCompile(`meta[property="og:image"]`)
	selOGTitle       = cascadia.MustCompile(`meta[property="og:title"]`)
	selOGDescription = cascadia.MustCompile(`meta[property="og:description"]`)
	selAltImage      = cascadia.MustCompile(`img[alt][src]`)
)

// Options configures a Scraper
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	AllowPrivate bool
	Hosts        []GalleryHost
	// Client replaces the default guarded client when set
	Client *http.Client
}

// Scraper performs the outbound page fetches of the publishing pipeline
type Scraper struct {
	client    *http.Client
	userAgent string
	hosts     []GalleryHost
	log       *zap.Logger
}

// PageMetadata is the OpenGraph summary of a page. Missing tags are "".
type PageMetadata struct {
	Image       string `json:"image"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// New creates a new scraper instance
func New(opts Options, log *zap.Logger) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}
	if opts.Hosts == nil {
		opts.Hosts = DefaultGalleryHosts
	}
	client := opts.Client
	if client == nil {
		client = newClient(opts.Timeout, opts.AllowPrivate)
	}
	return &Scraper{
		client:    client,
		userAgent: opts.UserAgent,
		hosts:     opts.Hosts,
		log:       log.Named("scraper"),
	}
}

// Close releases idle connections
func (s *Scraper) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// IsDirectImageURL reports whether the URL path ends in a raster image extension
func IsDirectImageURL(candidate string) bool {
	return directImagePattern.MatchString(candidate)
}

// ResolveImage turns a photo page link into its direct image URL. Links that
// are not gallery pages, and any page that cannot be fetched or parsed, come
// back unchanged.
func (s *Scraper) ResolveImage(ctx context.Context, candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return ""
	}

	if host, ok := s.matchGalleryHost(candidate); ok {
		image, err := s.extractGalleryImage(ctx, candidate, host)
		if err != nil {
			s.log.Warn("image resolution failed",
				zap.String("url", candidate),
				zap.String("host", host.Name),
				zap.Error(err),
			)
			return candidate
		}
		if image != "" {
			s.log.Debug("resolved gallery image", zap.String("url", candidate), zap.String("image", image))
			return image
		}
		return candidate
	}

	if !IsDirectImageURL(candidate) {
		s.log.Debug("using unverified image link", zap.String("url", candidate))
	}
	return candidate
}

// FetchPageMetadata reads og:image, og:title and og:description from a page.
// On any failure the fields are empty and URL echoes the input.
func (s *Scraper) FetchPageMetadata(ctx context.Context, rawURL string) PageMetadata {
	meta := PageMetadata{URL: rawURL}

	doc, pageURL, err := s.fetchDocument(ctx, rawURL)
	if err != nil {
		s.log.Warn("metadata fetch failed", zap.String("url", rawURL), zap.Error(err))
		return meta
	}

	meta.Image = resolveReference(pageURL, metaContent(doc, selOGImage))
	meta.Title = metaContent(doc, selOGTitle)
	meta.Description = metaContent(doc, selOGDescription)
	return meta
}

func (s *Scraper) matchGalleryHost(candidate string) (GalleryHost, bool) {
	for _, host := range s.hosts {
		if host.Pattern.MatchString(candidate) {
			return host, true
		}
	}
	return GalleryHost{}, false
}

// extractGalleryImage prefers og:image, then (if allowed) the first captioned image
func (s *Scraper) extractGalleryImage(ctx context.Context, pageLink string, host GalleryHost) (string, error) {
	doc, pageURL, err := s.fetchDocument(ctx, pageLink)
	if err != nil {
		return "", err
	}

	if og := metaContent(doc, selOGImage); og != "" {
		return resolveReference(pageURL, og), nil
	}
	if host.ImageFallback {
		if img := selAltImage.MatchFirst(doc); img != nil {
			if src := strings.TrimSpace(attr(img, "src")); src != "" {
				return resolveReference(pageURL, src), nil
			}
		}
	}
	return "", nil
}

func metaContent(doc *html.Node, sel cascadia.Selector) string {
	node := sel.MatchFirst(doc)
	if node == nil {
		return ""
	}
	return strings.TrimSpace(attr(node, "content"))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// resolveReference makes ref absolute against the page it was found on
func resolveReference(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
