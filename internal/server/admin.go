package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/nomadhub1/nomadhub/internal/database"
	"github.com/nomadhub1/nomadhub/internal/session"
	"github.com/nomadhub1/nomadhub/internal/slug"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := s.store.DashboardStats(ctx)
	if err != nil {
		s.serverError(w, r, "Failed to load dashboard.", err)
		return
	}
	articles, err := s.store.GetAllArticles(ctx)
	if err != nil {
		s.serverError(w, r, "Failed to load articles.", err)
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, "Dashboard"), DashboardPage(stats, articles))
}

// handleCategoryCreate adds a category; duplicates are reported via flash
func (s *Server) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	kind, msg := s.createCategory(r)
	s.sessions.AddFlash(r, kind, msg)
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (s *Server) createCategory(r *http.Request) (kind, msg string) {
	ctx := r.Context()
	name := strings.TrimSpace(r.FormValue("name"))
	categorySlug := slug.Generate(r.FormValue("slug"))
	if categorySlug == "" {
		categorySlug = slug.Generate(name)
	}

	if name == "" || categorySlug == "" {
		return "error", "Name is required."
	}

	existing, err := s.store.GetCategoryBySlug(ctx, categorySlug)
	if err != nil {
		s.log.Error("failed to check category", zap.Error(err))
		return "error", "Could not add category."
	}
	if existing != nil {
		return "error", "Category already exists."
	}

	if _, err := s.store.CreateCategory(ctx, name, categorySlug); err != nil {
		s.log.Error("failed to create category", zap.Error(err))
		return "error", "Could not add category."
	}
	s.log.Info("category created", zap.String("slug", categorySlug))
	return "success", "Category added."
}

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.GetAllUsers(r.Context())
	if err != nil {
		s.serverError(w, r, "Failed to load users.", err)
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, "Users"), UsersPage(users))
}

func (s *Server) handleUserEdit(w http.ResponseWriter, r *http.Request) {
	user, ok := s.loadUser(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, "Edit user"), UserEditPage(user))
}

func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := s.loadUser(w, r)
	if !ok {
		return
	}

	user.Email = strings.TrimSpace(r.FormValue("email"))
	user.Name = database.NullString(strings.TrimSpace(r.FormValue("name")))
	user.Avatar = database.NullString(strings.TrimSpace(r.FormValue("avatar")))
	user.Title = database.NullString(strings.TrimSpace(r.FormValue("title")))
	user.IsAdmin = r.FormValue("isAdmin") == "on"

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.serverError(w, r, "Failed to update user.", err)
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	if d := session.FromContext(r.Context()); d != nil && d.UserID == id {
		s.sessions.AddFlash(r, "error", "You cannot delete your own account.")
		http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
		return
	}
	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.serverError(w, r, "Failed to delete user.", err)
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (s *Server) loadUser(w http.ResponseWriter, r *http.Request) (*database.User, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return nil, false
	}
	user, err := s.store.GetUserByID(r.Context(), id)
	if err != nil {
		s.serverError(w, r, "Failed to load user.", err)
		return nil, false
	}
	if user == nil {
		s.notFound(w, r)
		return nil, false
	}
	return user, true
}

func (s *Server) handleResetPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.page(r, "Change password"), ResetPage("", ""))
}

// handleReset changes the signed-in admin's password after checking the current one
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d := session.FromContext(ctx)

	user, err := s.store.GetUserByID(ctx, d.UserID)
	if err != nil {
		s.serverError(w, r, "Failed to load user.", err)
		return
	}
	if !database.VerifyPassword(user, r.FormValue("currentPassword")) {
		s.render(w, r, http.StatusBadRequest, s.page(r, "Change password"), ResetPage("", "Wrong password"))
		return
	}
	newPassword := r.FormValue("newPassword")
	if len(newPassword) < 8 {
		s.render(w, r, http.StatusBadRequest, s.page(r, "Change password"), ResetPage("", "New password must be at least 8 characters."))
		return
	}
	if err := s.store.UpdatePassword(ctx, user.ID, newPassword); err != nil {
		s.serverError(w, r, "Failed to update password.", err)
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, "Change password"), ResetPage("Password updated successfully.", ""))
}

// handleDigest returns the weekly digest payload as JSON
func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	d, err := s.digest.Prepare(r.Context())
	if err != nil {
		s.log.Error("failed to prepare digest", zap.Error(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: "failed to prepare digest"})
		return
	}
	render.JSON(w, r, d)
}

type errorResponse struct {
	Error string `json:"error"`
}
