package internal

import (
	"net/http"

	"project-ledger-api/internal/auth"
	"project-ledger-api/internal/models"
	"project-ledger-api/internal/view"

	"github.com/go-chi/chi/v5"
)

// The /ui routes drive the session's view controller. Every one of them answers with the
// controller's bundle for the active screen; the status code reflects the action's outcome.

// controllerFor returns the session's controller, creating it when the session predates it.
func (s *Server) controllerFor(r *http.Request) (*view.Controller, bool) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return nil, false
	}
	c := s.Registry.GetOrCreate(sess.ID, sess.ExpiresAt)
	c.Resume(r.Context(), sess.Principal)
	return c, true
}

// withController runs action on the session's controller and answers with its bundle.
func (s *Server) withController(w http.ResponseWriter, r *http.Request, action func(*view.Controller) error) {
	c, ok := s.controllerFor(r)
	if !ok {
		auth.SendErrorResponse(w, "Authentication required", "AUTHENTICATION_REQUIRED", http.StatusUnauthorized)
		return
	}

	status := http.StatusOK
	if action != nil {
		if err := action(c); err != nil {
			status, _ = errorStatus(err)
		}
	}
	auth.WriteJSON(w, status, c.Snapshot(s.today()))
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	s.withController(w, r, nil)
}

type navigateRequest struct {
	View string `json:"view"`
}

func (s *Server) navigateView(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		auth.SendErrorResponse(w, "Invalid request body", "INVALID_JSON", http.StatusBadRequest)
		return
	}
	state, err := view.ParseState(req.View)
	if err != nil {
		auth.SendErrorResponse(w, err.Error(), "INVALID_VIEW", http.StatusBadRequest)
		return
	}
	s.withController(w, r, func(c *view.Controller) error {
		return c.Navigate(state)
	})
}

func (s *Server) newProjectView(w http.ResponseWriter, r *http.Request) {
	s.withController(w, r, func(c *view.Controller) error {
		return c.RequestNew()
	})
}

func (s *Server) editProjectView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.withController(w, r, func(c *view.Controller) error {
		return c.RequestEdit(id)
	})
}

func (s *Server) submitView(w http.ResponseWriter, r *http.Request) {
	var in models.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		auth.SendErrorResponse(w, err.Error(), "INVALID_JSON", http.StatusBadRequest)
		return
	}
	s.withController(w, r, func(c *view.Controller) error {
		if err := c.Submit(r.Context(), in); err != nil {
			return err
		}
		s.Metrics.RecordMutation("submit")
		return nil
	})
}

func (s *Server) reloadView(w http.ResponseWriter, r *http.Request) {
	s.withController(w, r, func(c *view.Controller) error {
		return c.Reload(r.Context())
	})
}
