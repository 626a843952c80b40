// Package store is the persistence gateway for projects and user identities.
//
// Two implementations share the same contract: Postgres for deployments and Memory for tests
// and single-process demos. Both normalize every project they save so the stored balance is
// always advance minus expense, and both report unexpected backend failures wrapped in
// models.ErrGatewayUnavailable.
package store

import (
	"context"
	"fmt"

	"project-ledger-api/internal/models"
)

// ProjectGateway owns the ledger's project set.
type ProjectGateway interface {
	// ListProjects returns every project, newest first.
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id string) (models.Project, error)
	// CreateProject assigns the id and creation time and returns the stored record.
	CreateProject(ctx context.Context, p models.Project) (models.Project, error)
	// UpdateProject replaces the editable fields of id. The id and creation time are kept.
	UpdateProject(ctx context.Context, id string, p models.Project) (models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	// CreateProjects stores all of projects or none of them.
	CreateProjects(ctx context.Context, projects []models.Project) ([]models.Project, error)
	Ping(ctx context.Context) error
}

// UserStore keeps registered identities.
type UserStore interface {
	// CreateUser fails with models.ErrDuplicateIdentity when the username is taken.
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	// GetUser fails with models.ErrNotFound for an unknown username.
	GetUser(ctx context.Context, username string) (models.User, error)
}

// prepare normalizes and validates a project before it is written.
func prepare(p *models.Project) error {
	p.Normalize()
	return p.Validate()
}

func prepareAll(projects []models.Project) error {
	for i := range projects {
		if err := prepare(&projects[i]); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrGatewayUnavailable, err)
}
