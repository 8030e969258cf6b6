package server

import (
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

// handleAPISearch is the JSON-only search used by the live search box
func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.SearchArticles(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.log.Error("search failed", zap.Error(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: "search failed"})
		return
	}
	render.JSON(w, r, searchResponse{Results: results})
}
