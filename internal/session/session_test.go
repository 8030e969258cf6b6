package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	want := &Data{UserID: 7, Email: "admin@example.com", IsAdmin: true}
	if err := s.Set(ctx, "abc", want, 20*time.Minute); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}

	now = now.Add(20 * time.Minute)
	if _, err := s.Get(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired session: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, "abc", &Data{UserID: 1}, time.Minute)

	if err := s.Delete(ctx, "abc"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func newManager(t *testing.T) (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	return NewManager(store, 20*time.Minute, false, zaptest.NewLogger(t)), store
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequireAdmin_RedirectsAnonymous(t *testing.T) {
	m, _ := newManager(t)
	h := m.Load(m.RequireAdmin(http.HandlerFunc(okHandler)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != LoginPath {
		t.Errorf("Location = %q", loc)
	}
}

func TestRequireAdmin_AllowsAdmin(t *testing.T) {
	m, store := newManager(t)
	store.Set(context.Background(), "sid-1", &Data{UserID: 1, IsAdmin: true}, time.Minute)
	h := m.Load(m.RequireAdmin(http.HandlerFunc(okHandler)))

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "sid-1"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequireAdmin_RejectsNonAdmin(t *testing.T) {
	m, store := newManager(t)
	store.Set(context.Background(), "sid-2", &Data{UserID: 2}, time.Minute)
	h := m.Load(m.RequireAdmin(http.HandlerFunc(okHandler)))

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "sid-2"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
}

func TestStartFlashDestroy(t *testing.T) {
	m, store := newManager(t)

	var cookie *http.Cookie
	login := m.Load(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.Start(w, r, &Data{UserID: 1, Email: "a@b.c", IsAdmin: true}); err != nil {
			t.Fatal(err)
		}
		m.AddFlash(r, "success", "Category added.")
	}))
	rec := httptest.NewRecorder()
	login.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/login", nil))

	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected session cookie")
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags: %+v", cookie)
	}

	var flashes []Flash
	read := m.Load(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			t.Error("expected admin session")
		}
		flashes = m.ConsumeFlash(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(cookie)
	read.ServeHTTP(httptest.NewRecorder(), req)

	want := []Flash{{Kind: "success", Message: "Category added."}}
	if diff := cmp.Diff(want, flashes); diff != "" {
		t.Errorf("flash mismatch (-want +got):\n%s", diff)
	}
	stored, err := store.Get(context.Background(), cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Flash) != 0 {
		t.Errorf("flash should be consumed, got %v", stored.Flash)
	}

	logout := m.Load(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.Destroy(w, r); err != nil {
			t.Fatal(err)
		}
	}))
	req = httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	req.AddCookie(cookie)
	logout.ServeHTTP(httptest.NewRecorder(), req)

	if _, err := store.Get(context.Background(), cookie.Value); !errors.Is(err, ErrNotFound) {
		t.Errorf("session should be gone after Destroy, err = %v", err)
	}
}

func TestLoad_UnknownCookieIsCleared(t *testing.T) {
	m, _ := newManager(t)
	h := m.Load(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) != nil {
			t.Error("unknown session id should load as signed out")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "stale"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", cookies)
	}
}
