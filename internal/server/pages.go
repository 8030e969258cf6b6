package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleHome lists every category with its articles
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.GetCategoriesWithArticles(r.Context())
	if err != nil {
		s.serverError(w, r, "Failed to load categories.", err)
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, ""), HomePage(categories))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.GetCategoriesWithArticles(r.Context())
	if err != nil {
		s.serverError(w, r, "Failed to load categories.", err)
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, "Categories"), CategoriesPage(categories))
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	category, err := s.store.GetCategoryBySlug(ctx, slug)
	if err != nil {
		s.serverError(w, r, "Failed to load category.", err)
		return
	}
	if category == nil {
		s.notFound(w, r)
		return
	}
	articles, err := s.store.GetArticlesByCategorySlug(ctx, slug)
	if err != nil {
		s.serverError(w, r, "Failed to load articles.", err)
		return
	}

	s.render(w, r, http.StatusOK, s.page(r, category.Name), ArticleListPage(category.Name, articles))
}

func (s *Server) handleNiches(w http.ResponseWriter, r *http.Request) {
	niches, err := s.store.GetAllNiches(r.Context())
	if err != nil {
		s.serverError(w, r, "Failed to load niches.", err)
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, "Niches"), NichesPage(niches))
}

// handleNiche serves /niches/{slug} and the clean /{slug} form; unknown slugs 404
func (s *Server) handleNiche(w http.ResponseWriter, r *http.Request) {
	if !s.renderNiche(w, r, chi.URLParam(r, "slug")) {
		s.notFound(w, r)
	}
}

// renderNiche reports false when no niche has the slug
func (s *Server) renderNiche(w http.ResponseWriter, r *http.Request, slug string) bool {
	ctx := r.Context()

	niche, err := s.store.GetNicheBySlug(ctx, slug)
	if err != nil {
		s.serverError(w, r, "Failed to load niche.", err)
		return true
	}
	if niche == nil {
		return false
	}
	articles, err := s.store.GetArticlesByNiche(ctx, niche.ID)
	if err != nil {
		s.serverError(w, r, "Failed to load articles.", err)
		return true
	}

	meta := s.page(r, niche.Name)
	meta.ActiveNiche = niche.Slug
	s.render(w, r, http.StatusOK, meta, ArticleListPage(niche.Name, articles))
	return true
}

type staticContent struct {
	title      string
	paragraphs []string
}

var legalPages = map[string]staticContent{
	"privacy": {"Privacy Policy", []string{
		"We collect only what is needed to run this site: article view counts without visitor identifiers, and session cookies for signed-in administrators.",
		"We do not sell personal data. Contact us to request access to or deletion of any data we hold about you.",
	}},
	"terms": {"Terms of Service", []string{
		"Content on this site is provided for general information. Verify visa, tax and legal requirements with the relevant authorities before acting on them.",
	}},
	"cookie": {"Cookie Policy", []string{
		"We set a single session cookie for administrators who sign in. Public pages do not set tracking cookies.",
	}},
	"gdpr": {"GDPR", []string{
		"If you are in the EU you may request access, correction, portability or erasure of your personal data at any time.",
	}},
	"disclaimer": {"Disclaimer", []string{
		"Some links are affiliate links. We may earn a commission at no extra cost to you.",
	}},
}

var companyPages = map[string]staticContent{
	"about":   {"About", []string{"We publish practical guides for remote workers and digital nomads."}},
	"story":   {"Our Story", []string{"Started by nomads, for nomads, after too many hours lost to outdated visa forums."}},
	"team":    {"Team", []string{"A small distributed team of writers and editors across four time zones."}},
	"careers": {"Careers", []string{"We occasionally hire writers. See the job board for open roles."}},
	"contact": {"Contact", []string{"Reach the editorial team at hello@nomadprohub.com."}},
}

func (s *Server) handleLegal(w http.ResponseWriter, r *http.Request) {
	s.renderStatic(w, r, legalPages, chi.URLParam(r, "page"))
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	s.renderStatic(w, r, companyPages, chi.URLParam(r, "page"))
}

func (s *Server) handleAffiliate(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.page(r, "Affiliate Program"), StaticPage("Affiliate Program", []string{
		"Partner with us to reach remote workers planning their next move. Get in touch through the contact page.",
	}))
}

func (s *Server) renderStatic(w http.ResponseWriter, r *http.Request, pages map[string]staticContent, name string) {
	content, ok := pages[name]
	if !ok {
		s.notFound(w, r)
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, content.title), StaticPage(content.title, content.paragraphs))
}
