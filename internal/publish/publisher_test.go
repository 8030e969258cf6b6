package publish

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/nomadhub1/nomadhub/internal/database"
	"github.com/nomadhub1/nomadhub/internal/scraper"
	"github.com/nomadhub1/nomadhub/internal/upload"
)

// fakeStore keeps articles and their category links together, the way the
// database commits them in one transaction
type fakeStore struct {
	articles   map[int64]*database.Article
	categories map[int64][]int64
	nextID     int64
	createErr  error
	// linkErr fails the category write, rolling back the whole save
	linkErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		articles:   map[int64]*database.Article{},
		categories: map[int64][]int64{},
	}
}

func (s *fakeStore) CreateArticle(_ context.Context, a *database.Article, categoryIDs []int64) error {
	if s.createErr != nil {
		return s.createErr
	}
	if len(categoryIDs) > 0 && s.linkErr != nil {
		return s.linkErr
	}
	s.nextID++
	a.ID = s.nextID
	stored := *a
	s.articles[a.ID] = &stored
	if len(categoryIDs) > 0 {
		s.categories[a.ID] = append([]int64(nil), categoryIDs...)
	}
	return nil
}

func (s *fakeStore) UpdateArticle(_ context.Context, a *database.Article, categoryIDs []int64, replace bool) error {
	if _, ok := s.articles[a.ID]; !ok {
		return database.ErrNotFound
	}
	if replace && s.linkErr != nil {
		return s.linkErr
	}
	stored := *a
	s.articles[a.ID] = &stored
	if replace {
		s.categories[a.ID] = append([]int64(nil), categoryIDs...)
	}
	return nil
}

func (s *fakeStore) GetArticleByID(_ context.Context, id int64) (*database.Article, error) {
	a, ok := s.articles[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) SlugTaken(_ context.Context, slug string, excludeID int64) (bool, error) {
	for id, a := range s.articles {
		if a.Slug == slug && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type fakeResolver struct {
	resolved map[string]string
	calls    []string
}

func (r *fakeResolver) ResolveImage(_ context.Context, candidate string) string {
	r.calls = append(r.calls, candidate)
	if out, ok := r.resolved[candidate]; ok {
		return out
	}
	return candidate
}

type fakeFetcher struct {
	images map[string]string
	calls  []string
}

func (f *fakeFetcher) FetchPageMetadata(_ context.Context, rawURL string) scraper.PageMetadata {
	f.calls = append(f.calls, rawURL)
	return scraper.PageMetadata{Image: f.images[rawURL], URL: rawURL}
}

type fakeUploader struct {
	stored  []string
	removed []string
	err     error
	// failOn makes Store fail for this filename only
	failOn string
}

func (u *fakeUploader) Store(_ context.Context, f *upload.File) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if f.Filename == u.failOn {
		return "", errors.New("disk full")
	}
	path := "/uploads/generated-" + f.Filename
	u.stored = append(u.stored, path)
	return path, nil
}

func (u *fakeUploader) Remove(_ context.Context, path string) error {
	u.removed = append(u.removed, path)
	return nil
}

type fixture struct {
	store    *fakeStore
	resolver *fakeResolver
	fetcher  *fakeFetcher
	uploads  *fakeUploader
	pub      *Publisher
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:    newFakeStore(),
		resolver: &fakeResolver{resolved: map[string]string{}},
		fetcher:  &fakeFetcher{images: map[string]string{}},
		uploads:  &fakeUploader{},
	}
	f.pub = New(f.store, f.resolver, f.fetcher, f.uploads, zaptest.NewLogger(t))
	return f
}

func imageFile(name, mime string, size int64) *upload.File {
	return &upload.File{
		MimeType: mime,
		Size:     size,
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("data")), nil
		},
	}
}

func validInput() Input {
	return Input{Title: "Visa Guide 2025", Markdown: "# Hi", NicheID: "1"}
}

func TestCreate_EndToEnd(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Image = ChooseSource(nil, "https://example.com/a.jpg")
	f.fetcher.images["https://example.com/a.jpg"] = "https://example.com/og.jpg"

	id, err := f.pub.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	a := f.store.articles[id]
	if a.Slug != "visa-guide-2025" {
		t.Errorf("Slug = %q", a.Slug)
	}
	if database.StringValue(a.Image) != "https://example.com/a.jpg" {
		t.Errorf("Image = %q", database.StringValue(a.Image))
	}
	if database.StringValue(a.OpenGraphImage) != "https://example.com/og.jpg" {
		t.Errorf("OpenGraphImage = %q", database.StringValue(a.OpenGraphImage))
	}
	if a.NicheID != 1 || a.Markdown != "# Hi" {
		t.Errorf("unexpected record: %+v", a)
	}
}

func TestCreate_FailedMetadataLeavesOpenGraphNull(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Image = LinkSource{URL: "https://example.com/a.jpg"}

	id, err := f.pub.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if og := f.store.articles[id].OpenGraphImage; og != nil {
		t.Errorf("OpenGraphImage = %q, want nil", *og)
	}
}

func TestCreate_MissingRequiredFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.pub.Create(context.Background(), Input{Markdown: "body", Image: LinkSource{URL: "https://www.pexels.com/photo/x"}})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{"Title is required.", "Niche is required."}
	if diff := cmp.Diff(want, verr.Messages()); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if len(f.store.articles) != 0 {
		t.Errorf("expected zero persisted rows, got %d", len(f.store.articles))
	}
	if len(f.resolver.calls) != 0 || len(f.fetcher.calls) != 0 {
		t.Error("no outbound calls should happen before validation passes")
	}
}

func TestCreate_CollectsAllProblems(t *testing.T) {
	f := newFixture(t)
	in := Input{
		Title:       "!!!",
		NicheID:     "abc",
		ArticleDate: "18/10/2026",
		CategoryIDs: []string{"2", "x"},
		Image:       UploadSource{File: imageFile("a.pdf", "application/pdf", 10)},
		Avatar:      UploadSource{File: imageFile("b.png", "image/png", MaxImageSize+1)},
	}

	_, err := f.pub.Create(context.Background(), in)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := make([]string, len(verr.Problems))
	for i, p := range verr.Problems {
		fields[i] = p.Field
	}
	want := []string{"title", "markdown", "niche_id", "article_date", "category_ids", "image", "author_avatar"}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("problem fields mismatch (-want +got):\n%s", diff)
	}
	if len(f.uploads.stored) != 0 {
		t.Error("uploads must not be stored when validation fails")
	}
}

func TestCreate_UploadBeatsLink(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Image = ChooseSource(imageFile("beach.png", "image/png", 1024), "https://example.com/a.jpg")
	in.Avatar = ChooseSource(imageFile("me.webp", "image/webp", 1024), "https://example.com/me.jpg")

	id, err := f.pub.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	a := f.store.articles[id]
	if got := database.StringValue(a.Image); got != "/uploads/generated-beach.png" {
		t.Errorf("Image = %q, want uploaded path", got)
	}
	if got := database.StringValue(a.AuthorAvatar); got != "/uploads/generated-me.webp" {
		t.Errorf("AuthorAvatar = %q, want uploaded path", got)
	}
	if len(f.resolver.calls) != 0 {
		t.Errorf("resolver should not run for uploads, got %v", f.resolver.calls)
	}
}

func TestCreate_ResolvesGalleryLinkButNotAvatar(t *testing.T) {
	f := newFixture(t)
	f.resolver.resolved["https://www.pexels.com/photo/lake-1/"] = "https://images.pexels.com/lake.jpeg"
	in := validInput()
	in.Image = LinkSource{URL: "https://www.pexels.com/photo/lake-1/"}
	in.Avatar = LinkSource{URL: "https://example.com/avatar.png"}

	id, err := f.pub.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	a := f.store.articles[id]
	if got := database.StringValue(a.Image); got != "https://images.pexels.com/lake.jpeg" {
		t.Errorf("Image = %q", got)
	}
	if got := database.StringValue(a.AuthorAvatar); got != "https://example.com/avatar.png" {
		t.Errorf("AuthorAvatar = %q", got)
	}
	if diff := cmp.Diff([]string{"https://www.pexels.com/photo/lake-1/"}, f.resolver.calls); diff != "" {
		t.Errorf("resolver calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"https://images.pexels.com/lake.jpeg"}, f.fetcher.calls); diff != "" {
		t.Errorf("metadata should be fetched for the resolved image (-want +got):\n%s", diff)
	}
}

func TestCreate_NoImageSkipsMetadata(t *testing.T) {
	f := newFixture(t)

	if _, err := f.pub.Create(context.Background(), validInput()); err != nil {
		t.Fatal(err)
	}
	if len(f.fetcher.calls) != 0 {
		t.Errorf("metadata fetched without an image: %v", f.fetcher.calls)
	}
}

func TestCreate_NormalizesOptionalFields(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Badge = "   "
	in.Description = ""
	in.Author = " Ana "
	in.ArticleDate = "2025-03-01"
	in.CategoryIDs = []string{"3", "1", "3", ""}
	in.CategoriesSet = true

	id, err := f.pub.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	a := f.store.articles[id]
	if a.Badge != nil {
		t.Errorf("Badge = %q, want nil", *a.Badge)
	}
	if a.Description != nil {
		t.Errorf("Description = %q, want nil", *a.Description)
	}
	if database.StringValue(a.Author) != "Ana" {
		t.Errorf("Author = %q", database.StringValue(a.Author))
	}
	if a.ArticleDate == nil || a.ArticleDate.Format("2006-01-02") != "2025-03-01" {
		t.Errorf("ArticleDate = %v", a.ArticleDate)
	}
	if diff := cmp.Diff([]int64{3, 1}, f.store.categories[id]); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_BadgeKept(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Badge = " New "

	id, err := f.pub.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if got := database.StringValue(f.store.articles[id].Badge); got != "New" {
		t.Errorf("Badge = %q", got)
	}
}

func TestCreate_SlugCollisionGetsSuffix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var slugs []string
	for i := 0; i < 3; i++ {
		id, err := f.pub.Create(ctx, validInput())
		if err != nil {
			t.Fatal(err)
		}
		slugs = append(slugs, f.store.articles[id].Slug)
	}
	want := []string{"visa-guide-2025", "visa-guide-2025-2", "visa-guide-2025-3"}
	if diff := cmp.Diff(want, slugs); diff != "" {
		t.Errorf("slugs mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = errors.New("connection reset")

	_, err := f.pub.Create(context.Background(), validInput())

	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if perr.Op != "create article" || !errors.Is(err, f.store.createErr) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCreate_UploadStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.uploads.err = errors.New("disk full")
	in := validInput()
	in.Image = UploadSource{File: imageFile("a.png", "image/png", 10)}

	_, err := f.pub.Create(context.Background(), in)

	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "store upload" {
		t.Fatalf("expected store upload PersistenceError, got %v", err)
	}
	if len(f.store.articles) != 0 {
		t.Error("article must not be persisted when the upload fails")
	}
}

func TestCreate_CategoryFailureKeepsNothing(t *testing.T) {
	f := newFixture(t)
	f.store.linkErr = errors.New("fk violation")
	in := validInput()
	in.CategoryIDs = []string{"1", "99"}
	in.CategoriesSet = true
	in.Image = UploadSource{File: imageFile("beach.png", "image/png", 10)}

	id, err := f.pub.Create(context.Background(), in)

	var perr *PersistenceError
	if !errors.As(err, &perr) || !errors.Is(err, f.store.linkErr) {
		t.Fatalf("expected PersistenceError wrapping the link failure, got %v", err)
	}
	if id != 0 {
		t.Errorf("id = %d, want 0", id)
	}
	if len(f.store.articles) != 0 {
		t.Fatalf("expected zero persisted rows, got %d", len(f.store.articles))
	}
	if diff := cmp.Diff(f.uploads.stored, f.uploads.removed); diff != "" {
		t.Errorf("uploads of a failed save should be removed (-stored +removed):\n%s", diff)
	}

	f.store.linkErr = nil
	id, err = f.pub.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.store.articles[id].Slug; got != "visa-guide-2025" {
		t.Errorf("resubmitted slug = %q, want no suffix", got)
	}
	if len(f.store.articles) != 1 {
		t.Errorf("rows = %d, want 1", len(f.store.articles))
	}
}

func TestCreate_StoreFailureRemovesUploads(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = errors.New("connection reset")
	in := validInput()
	in.Image = UploadSource{File: imageFile("beach.png", "image/png", 10)}
	in.Avatar = UploadSource{File: imageFile("me.png", "image/png", 10)}

	if _, err := f.pub.Create(context.Background(), in); err == nil {
		t.Fatal("expected an error")
	}
	want := []string{"/uploads/generated-beach.png", "/uploads/generated-me.png"}
	if diff := cmp.Diff(want, f.uploads.removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_AvatarFailureRemovesImage(t *testing.T) {
	f := newFixture(t)
	f.uploads.failOn = "me.png"
	in := validInput()
	in.Image = UploadSource{File: imageFile("beach.png", "image/png", 10)}
	in.Avatar = UploadSource{File: imageFile("me.png", "image/png", 10)}

	if _, err := f.pub.Create(context.Background(), in); err == nil {
		t.Fatal("expected an error")
	}
	if diff := cmp.Diff([]string{"/uploads/generated-beach.png"}, f.uploads.removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_FailureWithLinkRemovesNothing(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = errors.New("connection reset")
	in := validInput()
	in.Image = LinkSource{URL: "https://example.com/a.jpg"}

	if _, err := f.pub.Create(context.Background(), in); err == nil {
		t.Fatal("expected an error")
	}
	if len(f.uploads.removed) != 0 {
		t.Errorf("links are not files, removed = %v", f.uploads.removed)
	}
}

func TestCreate_NonLatinTitle(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Title = "Виза в Грузию"

	_, err := f.pub.Create(context.Background(), in)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"Title must contain at least one Latin letter or digit."}, verr.Messages()); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate_FailureRemovesNewUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.pub.Create(ctx, validInput())
	if err != nil {
		t.Fatal(err)
	}

	f.store.linkErr = errors.New("fk violation")
	in := validInput()
	in.CategoryIDs = []string{"99"}
	in.CategoriesSet = true
	in.Image = UploadSource{File: imageFile("new.png", "image/png", 10)}

	if err := f.pub.Update(ctx, id, in); err == nil {
		t.Fatal("expected an error")
	}
	if diff := cmp.Diff([]string{"/uploads/generated-new.png"}, f.uploads.removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
	if f.store.articles[id].Image != nil {
		t.Errorf("stored image changed by a failed update: %q", *f.store.articles[id].Image)
	}
}

func TestUpdate_RederivesSlugAndKeepsImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := validInput()
	in.Image = LinkSource{URL: "https://example.com/a.jpg"}
	in.CategoryIDs = []string{"1", "2"}
	in.CategoriesSet = true
	f.fetcher.images["https://example.com/a.jpg"] = "https://example.com/og.jpg"

	id, err := f.pub.Create(ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	f.fetcher.calls = nil
	err = f.pub.Update(ctx, id, Input{Title: "Visa Guide 2026", Markdown: "# Updated", NicheID: "2"})
	if err != nil {
		t.Fatal(err)
	}

	a := f.store.articles[id]
	if a.Slug != "visa-guide-2026" {
		t.Errorf("Slug = %q", a.Slug)
	}
	if database.StringValue(a.Image) != "https://example.com/a.jpg" {
		t.Errorf("Image = %q, want kept", database.StringValue(a.Image))
	}
	if database.StringValue(a.OpenGraphImage) != "https://example.com/og.jpg" {
		t.Errorf("OpenGraphImage = %q, want kept", database.StringValue(a.OpenGraphImage))
	}
	if len(f.fetcher.calls) != 0 {
		t.Errorf("kept image should not be refetched: %v", f.fetcher.calls)
	}
	if diff := cmp.Diff([]int64{1, 2}, f.store.categories[id]); diff != "" {
		t.Errorf("absent categories should leave associations unchanged (-want +got):\n%s", diff)
	}
}

func TestUpdate_SameTitleKeepsSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.pub.Create(ctx, validInput())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.pub.Update(ctx, id, validInput()); err != nil {
		t.Fatal(err)
	}
	if got := f.store.articles[id].Slug; got != "visa-guide-2025" {
		t.Errorf("Slug = %q, an article should not collide with itself", got)
	}
}

func TestUpdate_ReplacesCategoriesWhenSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := validInput()
	in.CategoryIDs = []string{"1", "2"}
	in.CategoriesSet = true

	id, err := f.pub.Create(ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	in.CategoryIDs = nil
	if err := f.pub.Update(ctx, id, in); err != nil {
		t.Fatal(err)
	}
	if got := f.store.categories[id]; len(got) != 0 {
		t.Errorf("categories = %v, want cleared", got)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)

	err := f.pub.Update(context.Background(), 42, validInput())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update = %v, want ErrNotFound", err)
	}
}

func TestChooseSource(t *testing.T) {
	file := imageFile("a.png", "image/png", 1)

	if _, ok := ChooseSource(file, "https://x/y.jpg").(UploadSource); !ok {
		t.Error("upload should win over link")
	}
	if src, ok := ChooseSource(nil, " https://x/y.jpg ").(LinkSource); !ok || src.URL != "https://x/y.jpg" {
		t.Errorf("expected trimmed LinkSource, got %#v", src)
	}
	if src := ChooseSource(nil, "  "); src != nil {
		t.Errorf("expected nil source, got %#v", src)
	}
}
