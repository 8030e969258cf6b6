package scraper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// testHosts treats any /photo/ or /photos/ path as a gallery page
var testHosts = []GalleryHost{
	{Name: "host-a", Pattern: regexp.MustCompile(`/photo/`), ImageFallback: true},
	{Name: "host-b", Pattern: regexp.MustCompile(`/photos/`)},
}

func newTestScraper(t *testing.T) *Scraper {
	t.Helper()
	return New(Options{
		Timeout:      5 * time.Second,
		UserAgent:    "Mozilla/5.0 (test)",
		AllowPrivate: true,
		Hosts:        testHosts,
	}, zaptest.NewLogger(t))
}

func htmlServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveImage_GalleryOpenGraph(t *testing.T) {
	srv := htmlServer(t, `<html><head>
		<meta property="og:image" content="https://images.example.com/full.jpeg">
	</head><body><img alt="thumb" src="/thumb.jpg"></body></html>`)

	s := newTestScraper(t)
	got := s.ResolveImage(context.Background(), srv.URL+"/photo/sunset-123")
	if got != "https://images.example.com/full.jpeg" {
		t.Errorf("ResolveImage = %q, want og:image", got)
	}
}

func TestResolveImage_GalleryAltImageFallback(t *testing.T) {
	srv := htmlServer(t, `<html><body>
		<img src="/logo.png">
		<img alt="A beach" src="/media/beach.jpg">
	</body></html>`)

	s := newTestScraper(t)
	got := s.ResolveImage(context.Background(), srv.URL+"/photo/beach")
	if want := srv.URL + "/media/beach.jpg"; got != want {
		t.Errorf("ResolveImage = %q, want %q", got, want)
	}
}

func TestResolveImage_FallbackOnlyForHostA(t *testing.T) {
	srv := htmlServer(t, `<html><body><img alt="A beach" src="/media/beach.jpg"></body></html>`)

	s := newTestScraper(t)
	candidate := srv.URL + "/photos/beach"
	if got := s.ResolveImage(context.Background(), candidate); got != candidate {
		t.Errorf("ResolveImage = %q, want original %q", got, candidate)
	}
}

func TestResolveImage_DirectImageUnchanged(t *testing.T) {
	var calls int32
	s := New(Options{
		Hosts: DefaultGalleryHosts,
		Client: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errors.New("no network in tests")
		})},
	}, zaptest.NewLogger(t))

	for _, candidate := range []string{
		"https://example.com/a.jpg",
		"https://example.com/photos/b.PNG?w=800&h=600",
		"https://cdn.example.com/c.webp",
		"https://example.com/not-an-image",
	} {
		if got := s.ResolveImage(context.Background(), candidate); got != candidate {
			t.Errorf("ResolveImage(%q) = %q, want unchanged", candidate, got)
		}
	}
	if calls != 0 {
		t.Errorf("expected no network calls for non-gallery links, got %d", calls)
	}
}

func TestResolveImage_UnreachableGalleryReturnsOriginal(t *testing.T) {
	s := New(Options{
		Hosts: DefaultGalleryHosts,
		Client: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		})},
	}, zaptest.NewLogger(t))

	for _, candidate := range []string{
		"https://www.pexels.com/photo/mountain-lake-1234/",
		"https://unsplash.com/photos/abc123",
	} {
		if got := s.ResolveImage(context.Background(), candidate); got != candidate {
			t.Errorf("ResolveImage(%q) = %q, want original", candidate, got)
		}
	}
}

func TestResolveImage_HTTPErrorReturnsOriginal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestScraper(t)
	candidate := srv.URL + "/photo/broken"
	if got := s.ResolveImage(context.Background(), candidate); got != candidate {
		t.Errorf("ResolveImage = %q, want original", got)
	}
}

func TestResolveImage_BlankCandidate(t *testing.T) {
	s := newTestScraper(t)
	if got := s.ResolveImage(context.Background(), "   "); got != "" {
		t.Errorf("ResolveImage(blank) = %q, want empty", got)
	}
}

func TestResolveImage_SendsBrowserUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<meta property="og:image" content="https://x.example/y.jpg">`))
	}))
	defer srv.Close()

	s := newTestScraper(t)
	s.ResolveImage(context.Background(), srv.URL+"/photo/x")
	if gotUA != "Mozilla/5.0 (test)" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestResolveImage_BlocksPrivateTargets(t *testing.T) {
	var hit int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hit, 1)
		w.Write([]byte(`<meta property="og:image" content="https://internal/secret.jpg">`))
	}))
	defer srv.Close()

	s := New(Options{Timeout: 2 * time.Second, Hosts: testHosts}, zaptest.NewLogger(t))
	candidate := srv.URL + "/photo/internal"
	if got := s.ResolveImage(context.Background(), candidate); got != candidate {
		t.Errorf("ResolveImage = %q, want original", got)
	}
	if hit != 0 {
		t.Error("loopback server should not have been contacted")
	}
}

func TestFetchPageMetadata(t *testing.T) {
	srv := htmlServer(t, `<html><head>
		<meta property="og:image" content="/og/cover.png">
		<meta property="og:title" content=" Visa Guide ">
		<meta property="og:description" content="Everything about visas">
	</head></html>`)

	s := newTestScraper(t)
	got := s.FetchPageMetadata(context.Background(), srv.URL+"/guide")
	want := PageMetadata{
		Image:       srv.URL + "/og/cover.png",
		Title:       "Visa Guide",
		Description: "Everything about visas",
		URL:         srv.URL + "/guide",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FetchPageMetadata mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPageMetadata_MissingTagsAreEmpty(t *testing.T) {
	srv := htmlServer(t, `<html><head><meta property="og:title" content="Only a title"></head></html>`)

	s := newTestScraper(t)
	got := s.FetchPageMetadata(context.Background(), srv.URL)
	want := PageMetadata{Title: "Only a title", URL: srv.URL}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FetchPageMetadata mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPageMetadata_FailuresEchoURL(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer imageSrv.Close()

	s := newTestScraper(t)
	for _, rawURL := range []string{
		imageSrv.URL + "/a.jpg",
		"/uploads/local.jpg",
		"ftp://example.com/file",
		"http://127.0.0.1:1/unreachable",
	} {
		got := s.FetchPageMetadata(context.Background(), rawURL)
		want := PageMetadata{URL: rawURL}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("FetchPageMetadata(%q) mismatch (-want +got):\n%s", rawURL, diff)
		}
	}
}

func TestIsDirectImageURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/a.jpg", true},
		{"https://example.com/a.JPEG", true},
		{"https://example.com/a.png?size=large", true},
		{"https://example.com/a.gif", true},
		{"https://example.com/a.webp", true},
		{"https://example.com/a.svg", false},
		{"https://example.com/jpg", false},
		{"https://example.com/a.jpg/page", false},
	}
	for _, tt := range tests {
		if got := IsDirectImageURL(tt.url); got != tt.want {
			t.Errorf("IsDirectImageURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"127.0.0.1", "10.1.2.3", "172.16.0.1", "192.168.1.1", "169.254.1.1", "::1", "fe80::1", "0.0.0.0"}
	for _, ip := range private {
		if !isPrivateIP(net.ParseIP(ip)) {
			t.Errorf("%s should be private", ip)
		}
	}
	public := []string{"8.8.8.8", "1.1.1.1", "2606:4700:4700::1111"}
	for _, ip := range public {
		if isPrivateIP(net.ParseIP(ip)) {
			t.Errorf("%s should be public", ip)
		}
	}
}
