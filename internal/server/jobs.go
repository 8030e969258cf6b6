package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nomadhub1/nomadhub/internal/database"
	"github.com/nomadhub1/nomadhub/internal/session"
)

func (s *Server) handleJobList(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context())
	if err != nil {
		s.serverError(w, r, "Error loading jobs.", err)
		return
	}
	s.render(w, r, http.StatusOK, s.page(r, "Job Board"), JobsPage(jobs, session.IsAdmin(r.Context())))
}

func (s *Server) handleJobNew(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.page(r, "Post a job"), JobFormPage("Post a job", "/job/new", &database.Job{}, nil))
}

func (s *Server) handleJobCreate(w http.ResponseWriter, r *http.Request) {
	job := jobFromForm(r)
	if errs := validateJob(job); len(errs) > 0 {
		s.render(w, r, http.StatusBadRequest, s.page(r, "Post a job"), JobFormPage("Post a job", "/job/new", job, errs))
		return
	}
	if d := session.FromContext(r.Context()); d != nil {
		job.PostedBy = &d.UserID
	}
	if err := s.store.CreateJob(r.Context(), job); err != nil {
		s.serverError(w, r, "Error creating job.", err)
		return
	}
	http.Redirect(w, r, "/job", http.StatusSeeOther)
}

func (s *Server) handleJobEdit(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	action := "/job/" + strconv.FormatInt(job.ID, 10) + "/edit"
	s.render(w, r, http.StatusOK, s.page(r, "Edit job"), JobFormPage("Edit job", action, job, nil))
}

func (s *Server) handleJobUpdate(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	job := jobFromForm(r)
	job.ID = existing.ID
	action := "/job/" + strconv.FormatInt(job.ID, 10) + "/edit"

	if errs := validateJob(job); len(errs) > 0 {
		s.render(w, r, http.StatusBadRequest, s.page(r, "Edit job"), JobFormPage("Edit job", action, job, errs))
		return
	}
	if err := s.store.UpdateJob(r.Context(), job); err != nil {
		s.serverError(w, r, "Error updating job.", err)
		return
	}
	http.Redirect(w, r, "/job", http.StatusSeeOther)
}

func (s *Server) handleJobDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	if err := s.store.DeleteJob(r.Context(), id); err != nil {
		s.serverError(w, r, "Error deleting job.", err)
		return
	}
	http.Redirect(w, r, "/job", http.StatusSeeOther)
}

func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (*database.Job, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return nil, false
	}
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.serverError(w, r, "Error loading job.", err)
		return nil, false
	}
	if job == nil {
		s.notFound(w, r)
		return nil, false
	}
	return job, true
}

func jobFromForm(r *http.Request) *database.Job {
	return &database.Job{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Company:     strings.TrimSpace(r.FormValue("company")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Location:    strings.TrimSpace(r.FormValue("location")),
		JobURL:      strings.TrimSpace(r.FormValue("job_url")),
	}
}

func validateJob(j *database.Job) []string {
	var errs []string
	if j.Title == "" {
		errs = append(errs, "Title is required.")
	}
	if j.Company == "" {
		errs = append(errs, "Company is required.")
	}
	if j.JobURL != "" {
		u, err := url.Parse(j.JobURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, "Job URL must be an http(s) link.")
		}
	}
	return errs
}
