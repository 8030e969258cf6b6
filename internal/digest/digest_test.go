package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nomadhub1/nomadhub/internal/database"
)

type fakeStore struct {
	articles []*database.Article
	since    time.Time
	err      error
}

// GetRecentArticles returns everything so the assembler's own bound is exercised
func (s *fakeStore) GetRecentArticles(_ context.Context, since time.Time) ([]*database.Article, error) {
	s.since = since
	return s.articles, s.err
}

func TestPrepare(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{articles: []*database.Article{
		{ID: 1, Title: "Fresh", Slug: "fresh", CreatedAt: now.Add(-time.Hour)},
		{ID: 2, Title: "Boundary", Slug: "boundary", CreatedAt: now.Add(-Window)},
		{ID: 3, Title: "Stale", Slug: "stale", CreatedAt: now.Add(-8 * 24 * time.Hour)},
	}}
	a := New(store, "NomadProHub Weekly Digest")
	a.now = func() time.Time { return now }

	d, err := a.Prepare(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !store.since.Equal(now.Add(-Window)) {
		t.Errorf("since = %v, want %v", store.since, now.Add(-Window))
	}
	if d.Subject != "NomadProHub Weekly Digest" {
		t.Errorf("Subject = %q", d.Subject)
	}
	want := []PreviewItem{
		{Title: "Fresh", Link: "/articles/fresh"},
		{Title: "Boundary", Link: "/articles/boundary"},
	}
	if diff := cmp.Diff(want, d.Preview); diff != "" {
		t.Errorf("preview mismatch (-want +got):\n%s", diff)
	}
	if len(d.Articles) != 2 {
		t.Errorf("len(Articles) = %d, want 2", len(d.Articles))
	}
}

func TestPrepare_Empty(t *testing.T) {
	a := New(&fakeStore{}, "subject")

	d, err := a.Prepare(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Preview == nil || len(d.Preview) != 0 {
		t.Errorf("Preview = %#v, want empty non-nil slice", d.Preview)
	}
}

func TestPrepare_StoreError(t *testing.T) {
	boom := errors.New("db down")
	a := New(&fakeStore{err: boom}, "subject")

	if _, err := a.Prepare(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}
