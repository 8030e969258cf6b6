package server

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/nomadhub1/nomadhub/internal/database"
	"github.com/nomadhub1/nomadhub/internal/session"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatal(err)
	}
	return b.String()
}

func TestLayout(t *testing.T) {
	meta := pageMeta{
		Title:       "Visa <Guide>",
		SiteName:    "NomadProHub",
		ActiveNiche: "travel-visas",
		Niches: []*database.Niche{
			{Name: "Travel Visas", Slug: "travel-visas"},
			{Name: "Remote Work", Slug: "remote-work"},
		},
		User:  &session.Data{IsAdmin: true},
		Flash: []session.Flash{{Kind: "warning", Message: "Duplicate title"}},
	}

	got := renderString(t, Layout(meta, ErrorPage("Oops", "body text")))

	for _, want := range []string{
		"<title>Visa &lt;Guide&gt; | NomadProHub</title>",
		`<a href="/travel-visas" class="active">`,
		`<a href="/remote-work">`,
		`<div class="flash flash-warning">Duplicate title</div>`,
		`<a href="/admin/dashboard">Dashboard</a>`,
		"<p>body text</p>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("layout missing %q", want)
		}
	}
}

func TestArticleCard_NeutralisesScriptURLs(t *testing.T) {
	img := "javascript:alert(1)"
	got := renderString(t, articleCard(&database.Article{Title: "Visa", Slug: "visa", Image: &img}))

	if strings.Contains(got, "javascript:") {
		t.Errorf("unsafe image URL rendered: %s", got)
	}
	if !strings.Contains(got, `href="/articles/visa"`) {
		t.Errorf("article link missing: %s", got)
	}
}

func TestArticleFormPage_KeepsSelections(t *testing.T) {
	f := articleForm{
		Heading:    "Edit article",
		Action:     "/articles/update/7",
		NicheID:    "2",
		Selected:   map[string]bool{"5": true},
		Niches:     []*database.Niche{{ID: 1, Name: "Visas"}, {ID: 2, Name: "Remote Work"}},
		Categories: []*database.Category{{ID: 4, Name: "Europe"}, {ID: 5, Name: "Asia"}},
		Errors:     []string{"Title is required."},
	}

	got := renderString(t, ArticleFormPage(f))

	for _, want := range []string{
		`<option value="2" selected>`,
		`<option value="1">`,
		`value="5" checked>`,
		`name="category_ids_present"`,
		`action="/articles/update/7"`,
		"<li>Title is required.</li>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("form missing %q", want)
		}
	}
	if strings.Contains(got, `value="4" checked`) {
		t.Error("unselected category rendered as checked")
	}
}
