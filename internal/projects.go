package internal

import (
	"net/http"
	"strconv"

	"project-ledger-api/internal/auth"
	"project-ledger-api/internal/log"
	"project-ledger-api/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	projects, err := s.Projects.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	projects = filterProjects(projects, params.q)
	sortProjects(projects, params.sort)
	w.Header().Set("X-Total-Count", strconv.Itoa(len(projects)))
	auth.WriteJSON(w, http.StatusOK, page(projects, params.offset, params.limit))
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.Projects.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, p)
}

// decodeProject reads a ProjectInput body into a normalized, validated project. A balance in
// the body is ignored since ProjectInput has no such field.
func decodeProject(w http.ResponseWriter, r *http.Request) (models.Project, bool) {
	var in models.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		auth.SendErrorResponse(w, err.Error(), "INVALID_JSON", http.StatusBadRequest)
		return models.Project{}, false
	}
	p := in.Project()
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return models.Project{}, false
	}
	return p, true
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	p, ok := decodeProject(w, r)
	if !ok {
		return
	}

	out, err := s.Projects.CreateProject(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("create")
	log.FromContext(r.Context()).InfoContext(r.Context(), "project created",
		log.FieldProjectID, out.ID,
		log.FieldUsername, usernameOf(r),
	)
	auth.WriteJSON(w, http.StatusCreated, out)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := decodeProject(w, r)
	if !ok {
		return
	}

	out, err := s.Projects.UpdateProject(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("update")
	log.FromContext(r.Context()).InfoContext(r.Context(), "project updated",
		log.FieldProjectID, out.ID,
		log.FieldUsername, usernameOf(r),
	)
	auth.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Projects.DeleteProject(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("delete")
	log.FromContext(r.Context()).InfoContext(r.Context(), "project deleted",
		log.FieldProjectID, id,
		log.FieldUsername, usernameOf(r),
	)
	w.WriteHeader(http.StatusNoContent)
}
