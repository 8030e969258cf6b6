package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/nomadhub1/nomadhub/internal/database"
	"github.com/nomadhub1/nomadhub/internal/publish"
	"github.com/nomadhub1/nomadhub/internal/session"
	"github.com/nomadhub1/nomadhub/internal/upload"
)

// handleArticleList renders the list of all articles
func (s *Server) handleArticleList(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.GetAllArticles(r.Context())
	if err != nil {
		s.serverError(w, r, "Failed to load articles.", err)
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, "All Articles"), ArticleListPage("All Articles", articles))
}

// handleSearch answers with JSON for XHR/JSON callers and an HTML page otherwise
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results, err := s.store.SearchArticles(r.Context(), q)
	if err != nil {
		s.serverError(w, r, "Search failed.", err)
		return
	}

	if wantsJSON(r) {
		render.JSON(w, r, searchResponse{Results: results})
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, "Search"), SearchPage(q, results))
}

type searchResponse struct {
	Results []*database.Article `json:"results"`
}

func wantsJSON(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(r.Header.Get("Accept"), "json")
}

// handleArticleDetail counts a view and renders the article with sanitized markdown
func (s *Server) handleArticleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	if err := s.store.IncrementViews(ctx, slug); err != nil {
		s.log.Warn("failed to count view", zap.String("slug", slug), zap.Error(err))
	}

	article, err := s.store.GetArticleBySlug(ctx, slug)
	if err != nil {
		s.serverError(w, r, "Failed to load article.", err)
		return
	}
	if article == nil {
		s.notFound(w, r)
		return
	}

	meta := s.page(r, article.Title)
	meta.Description = database.StringValue(article.Description)
	meta.Image = database.StringValue(article.OpenGraphImage)
	if meta.Image == "" {
		meta.Image = database.StringValue(article.Image)
	}
	meta.ActiveNiche = database.StringValue(article.NicheSlug)

	body := s.renderer.Markdown(article.Markdown)
	s.render(w, r, http.StatusOK, meta, ArticleDetailPage(article, body, session.IsAdmin(ctx)))
}

// handleArticleNew renders an empty article form
func (s *Server) handleArticleNew(w http.ResponseWriter, r *http.Request) {
	form := articleForm{Heading: "New article", Action: "/articles"}
	if d := session.FromContext(r.Context()); d != nil {
		if u, err := s.store.GetUserByID(r.Context(), d.UserID); err == nil && u != nil {
			form.Author = database.StringValue(u.Name)
			form.AuthorTitle = database.StringValue(u.Title)
			form.AvatarLink = database.StringValue(u.Avatar)
		}
	}
	s.renderArticleForm(w, r, http.StatusOK, form)
}

// handleArticleCreate publishes a new article. Reusing an existing title is
// allowed; the admin gets a warning that the new article has its own slug.
func (s *Server) handleArticleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := s.articleInput(w, r)
	if err != nil {
		status, msg := formReadFailure(err)
		s.renderArticleForm(w, r, status, formFromRequest(r, "New article", "/articles", []string{msg}))
		return
	}

	var existing *database.Article
	if title := strings.TrimSpace(in.Title); title != "" {
		if existing, err = s.store.GetArticleByTitle(r.Context(), title); err != nil {
			s.log.Warn("failed to check for duplicate title", zap.Error(err))
		}
	}

	id, err := s.publisher.Create(r.Context(), in)
	if err != nil {
		status, msgs := publishFailure(err)
		s.renderArticleForm(w, r, status, formFromRequest(r, "New article", "/articles", msgs))
		return
	}
	if existing != nil && existing.ID != id {
		s.sessions.AddFlash(r, "warning", fmt.Sprintf("An article titled %q already exists at /articles/%s. The new one was published under its own address.", existing.Title, existing.Slug))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleArticleEdit renders the form for an existing article
func (s *Server) handleArticleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	article, err := s.store.GetArticleByID(r.Context(), id)
	if err != nil {
		s.serverError(w, r, "Failed to load article.", err)
		return
	}
	if article == nil {
		s.notFound(w, r)
		return
	}
	s.renderArticleForm(w, r, http.StatusOK, formFromArticle(article))
}

// handleArticleUpdate overwrites an existing article
func (s *Server) handleArticleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	heading, action := "Edit article", "/articles/update/"+strconv.FormatInt(id, 10)

	in, err := s.articleInput(w, r)
	if err != nil {
		status, msg := formReadFailure(err)
		s.renderArticleForm(w, r, status, formFromRequest(r, heading, action, []string{msg}))
		return
	}

	if err := s.publisher.Update(r.Context(), id, in); err != nil {
		if errors.Is(err, publish.ErrNotFound) {
			s.notFound(w, r)
			return
		}
		status, msgs := publishFailure(err)
		form := formFromRequest(r, heading, action, msgs)
		if existing, lerr := s.store.GetArticleByID(r.Context(), id); lerr == nil && existing != nil {
			form.CurrentImage = database.StringValue(existing.Image)
			form.CurrentAvatar = database.StringValue(existing.AuthorAvatar)
		}
		s.renderArticleForm(w, r, status, form)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleArticleDelete removes an article and its category links
func (s *Server) handleArticleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	if err := s.store.DeleteArticle(r.Context(), id); err != nil {
		s.serverError(w, r, "Failed to delete article.", err)
		return
	}
	s.log.Info("article deleted", zap.Int64("id", id))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// maxArticleRequest bounds an article form body: two image slots plus the text fields
const maxArticleRequest = 2*publish.MaxImageSize + 1<<20

// articleInput maps the multipart form onto the publisher's input
func (s *Server) articleInput(w http.ResponseWriter, r *http.Request) (publish.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxArticleRequest)
	if err := r.ParseMultipartForm(upload.MaxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return publish.Input{}, err
	}
	image, err := s.uploads.FromRequest(r, "image")
	if err != nil {
		return publish.Input{}, err
	}
	avatar, err := s.uploads.FromRequest(r, "author_avatar")
	if err != nil {
		return publish.Input{}, err
	}

	return publish.Input{
		Title:         r.FormValue("title"),
		Description:   r.FormValue("description"),
		Markdown:      r.FormValue("markdown"),
		NicheID:       r.FormValue("niche_id"),
		Author:        r.FormValue("author"),
		AuthorTitle:   r.FormValue("author_title"),
		ArticleDate:   r.FormValue("article_date"),
		Badge:         r.FormValue("badge"),
		CategoryIDs:   r.Form["category_ids"],
		CategoriesSet: r.Form.Has("category_ids") || r.Form.Has("category_ids_present"),
		Image:         publish.ChooseSource(image, r.FormValue("image_link")),
		Avatar:        publish.ChooseSource(avatar, r.FormValue("author_avatar_link")),
	}, nil
}

// formReadFailure maps an unreadable form onto a status and message
func formReadFailure(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "The upload is too large. Images must be 2 MB or smaller."
	}
	return http.StatusBadRequest, "Could not read the submitted form."
}

// publishFailure maps a publisher error onto a status and user-facing messages
func publishFailure(err error) (int, []string) {
	var verr *publish.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Messages()
	}
	return http.StatusInternalServerError, []string{"Server error: the article could not be saved. Please try again."}
}

func (s *Server) renderArticleForm(w http.ResponseWriter, r *http.Request, status int, form articleForm) {
	ctx := r.Context()
	var err error
	if form.Niches, err = s.store.GetAllNiches(ctx); err != nil {
		s.serverError(w, r, "Failed to load niches.", err)
		return
	}
	if form.Categories, err = s.store.GetAllCategories(ctx); err != nil {
		s.serverError(w, r, "Failed to load categories.", err)
		return
	}
	s.render(w, r, status, s.page(r, form.Heading), ArticleFormPage(form))
}

// formFromRequest echoes the submitted values back into the form
func formFromRequest(r *http.Request, heading, action string, errs []string) articleForm {
	selected := make(map[string]bool)
	for _, id := range r.Form["category_ids"] {
		selected[id] = true
	}
	return articleForm{
		Heading:     heading,
		Action:      action,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Markdown:    r.FormValue("markdown"),
		NicheID:     r.FormValue("niche_id"),
		Author:      r.FormValue("author"),
		AuthorTitle: r.FormValue("author_title"),
		ArticleDate: r.FormValue("article_date"),
		Badge:       r.FormValue("badge"),
		ImageLink:   r.FormValue("image_link"),
		AvatarLink:  r.FormValue("author_avatar_link"),
		Selected:    selected,
		Errors:      errs,
	}
}

func formFromArticle(a *database.Article) articleForm {
	selected := make(map[string]bool, len(a.Categories))
	for _, c := range a.Categories {
		selected[strconv.FormatInt(c.ID, 10)] = true
	}
	form := articleForm{
		Heading:       "Edit article",
		Action:        "/articles/update/" + strconv.FormatInt(a.ID, 10),
		Title:         a.Title,
		Description:   database.StringValue(a.Description),
		Markdown:      a.Markdown,
		NicheID:       strconv.FormatInt(a.NicheID, 10),
		Author:        database.StringValue(a.Author),
		AuthorTitle:   database.StringValue(a.AuthorTitle),
		Badge:         database.StringValue(a.Badge),
		CurrentImage:  database.StringValue(a.Image),
		CurrentAvatar: database.StringValue(a.AuthorAvatar),
		Selected:      selected,
	}
	if a.ArticleDate != nil {
		form.ArticleDate = a.ArticleDate.Format("2006-01-02")
	}
	return form
}
