package server

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/nomadhub1/nomadhub/internal/database"
	"github.com/nomadhub1/nomadhub/internal/session"
)

// handleLoginPage shows the login form, or skips it for signed-in admins
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if session.IsAdmin(r.Context()) {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, "Admin login"), LoginPage("", ""))
}

// handleLogin verifies credentials and starts an admin session
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	fail := func(status int, msg string) {
		s.render(w, r, status, s.page(r, "Admin login"), LoginPage(email, msg))
	}

	if email == "" || password == "" {
		fail(http.StatusBadRequest, "Email and password required.")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		s.serverError(w, r, "Login failed.", err)
		return
	}
	if !database.VerifyPassword(user, password) {
		s.log.Info("login rejected", zap.String("email", email))
		fail(http.StatusUnauthorized, "Invalid email or password.")
		return
	}
	if !user.IsAdmin {
		fail(http.StatusForbidden, "This account has no admin access.")
		return
	}

	err = s.sessions.Start(w, r, &session.Data{UserID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin})
	if err != nil {
		s.serverError(w, r, "Login failed.", err)
		return
	}
	s.log.Info("admin signed in", zap.Int64("user_id", user.ID))
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// handleLogout ends the session (GET kept for link compatibility)
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(w, r); err != nil {
		s.log.Warn("failed to destroy session", zap.Error(err))
	}
	http.Redirect(w, r, session.LoginPath, http.StatusSeeOther)
}
