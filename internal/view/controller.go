package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"project-ledger-api/internal/ledger"
	"project-ledger-api/internal/log"
	"project-ledger-api/internal/models"
	"project-ledger-api/internal/store"
)

// Authenticator checks credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (models.Principal, error)
}

// FormMode tells the entry form whether it creates or edits.
type FormMode string

const (
	FormCreate FormMode = "create"
	FormEdit   FormMode = "edit"
)

// Form is the entry screen's data: the draft and, in edit mode, the bound project id.
type Form struct {
	Mode      FormMode            `json:"mode"`
	ProjectID string              `json:"project_id,omitempty"`
	Draft     models.ProjectInput `json:"draft"`
}

// Bundle is everything needed to render the active screen.
type Bundle struct {
	State     State             `json:"state"`
	Principal *models.Principal `json:"principal,omitempty"`
	CanEdit   bool              `json:"can_edit"`
	Dashboard *ledger.Dashboard `json:"dashboard,omitempty"`
	List      *ledger.ListView  `json:"list,omitempty"`
	Form      *Form             `json:"form,omitempty"`
	Notices   []Notice          `json:"notices"`
}

// Controller is one session's state machine. It holds a read-through copy of the ledger that
// is replaced wholesale after every successful mutation. All methods are safe for concurrent
// use; calls from one session are serialized.
type Controller struct {
	mu        sync.Mutex
	gateway   store.ProjectGateway
	auth      Authenticator
	formatter ledger.Formatter
	logger    *log.Logger

	state     State
	principal *models.Principal
	projects  []models.Project
	bound     *models.Project
	draft     *models.ProjectInput
	notices   []Notice
}

// NewController returns a controller in the unauthenticated state.
func NewController(gateway store.ProjectGateway, auth Authenticator, formatter ledger.Formatter, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Discard()
	}
	return &Controller{
		gateway:   gateway,
		auth:      auth,
		formatter: formatter,
		logger:    logger.WithComponent(log.ComponentView),
		state:     StateUnauthenticated,
	}
}

// State returns the active screen.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Principal returns the signed-in principal, or nil.
func (c *Controller) Principal() *models.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.principal == nil {
		return nil
	}
	p := *c.principal
	return &p
}

// Projects returns a copy of the held ledger.
func (c *Controller) Projects() []models.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Project, len(c.projects))
	copy(out, c.projects)
	return out
}

// Login authenticates and lands on the dashboard with a fresh copy of the ledger.
// Failure keeps the controller unauthenticated.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.auth.Authenticate(ctx, username, password)
	if err != nil {
		c.pushError(err)
		return err
	}
	c.enterLocked(ctx, p)
	return nil
}

// Resume attaches a principal whose session was established elsewhere, such as a cookie
// issued by an earlier login. It is a no-op when that principal is already attached.
func (c *Controller) Resume(ctx context.Context, p models.Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.principal != nil && *c.principal == p {
		return
	}
	c.enterLocked(ctx, p)
}

func (c *Controller) enterLocked(ctx context.Context, p models.Principal) {
	c.principal = &p
	c.state = StateDashboard
	c.bound, c.draft = nil, nil
	c.projects = nil
	_ = c.reloadLocked(ctx)
}

// Logout forgets the principal, the ledger copy, and any form in progress.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateUnauthenticated
	c.principal = nil
	c.projects = nil
	c.bound, c.draft = nil, nil
	c.notices = nil
}

// Navigate moves between the browsable screens. NEW_PROJECT is reached through RequestNew.
// Leaving the entry form discards the draft.
func (c *Controller) Navigate(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.principal == nil {
		return ErrUnauthenticated
	}
	if to == StateNewProject {
		return c.requestNewLocked()
	}
	if !browsable[to] {
		return ErrInvalidTransition
	}
	c.state = to
	c.bound, c.draft = nil, nil
	return nil
}

// RequestNew opens an empty entry form.
func (c *Controller) RequestNew() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestNewLocked()
}

func (c *Controller) requestNewLocked() error {
	if err := c.guardEditLocked(); err != nil {
		return err
	}
	c.state = StateNewProject
	c.bound = nil
	c.draft = &models.ProjectInput{}
	return nil
}

// RequestEdit opens the entry form bound to project id from the held copy.
func (c *Controller) RequestEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guardEditLocked(); err != nil {
		return err
	}
	for _, p := range c.projects {
		if p.ID == id {
			bound := p
			draft := models.InputOf(p)
			c.state = StateNewProject
			c.bound = &bound
			c.draft = &draft
			return nil
		}
	}
	return models.ErrNotFound
}

func (c *Controller) guardEditLocked() error {
	if c.principal == nil {
		return ErrUnauthenticated
	}
	if !models.CanEdit(c.principal) {
		return models.ErrForbidden
	}
	return nil
}

// Submit saves the entry form: a create in create mode, an update of the bound project in
// edit mode. Invalid input never reaches the gateway. On any failure the controller stays on
// the form with the submitted draft preserved and a notice queued. On success it reloads the
// ledger, clears the binding and returns to the dashboard.
func (c *Controller) Submit(ctx context.Context, in models.ProjectInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guardEditLocked(); err != nil {
		return err
	}
	if c.state != StateNewProject {
		return ErrInvalidTransition
	}

	draft := in
	c.draft = &draft

	p := in.Project()
	if err := p.Validate(); err != nil {
		c.pushError(err)
		return err
	}

	var (
		saved models.Project
		err   error
		msg   string
	)
	if c.bound != nil {
		saved, err = c.gateway.UpdateProject(ctx, c.bound.ID, p)
		msg = "Project updated"
	} else {
		saved, err = c.gateway.CreateProject(ctx, p)
		msg = "Project created"
	}
	if err != nil {
		c.logger.WarnContext(ctx, "save project failed", log.FieldUsername, c.principal.Username, log.FieldError, err)
		c.pushError(err)
		return err
	}

	c.logger.InfoContext(ctx, "project saved", log.FieldProjectID, saved.ID, log.FieldUsername, c.principal.Username)
	c.state = StateDashboard
	c.bound, c.draft = nil, nil
	c.notices = append(c.notices, Notice{Level: NoticeInfo, Message: msg + ": " + saved.Name})
	_ = c.reloadLocked(ctx)
	return nil
}

// Reload refetches the ledger copy.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.principal == nil {
		return ErrUnauthenticated
	}
	return c.reloadLocked(ctx)
}

// reloadLocked replaces the held copy. On failure the previous copy is kept.
func (c *Controller) reloadLocked(ctx context.Context) error {
	projects, err := c.gateway.ListProjects(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "reload failed", log.FieldError, err)
		c.pushError(err)
		return err
	}
	c.projects = projects
	return nil
}

// Notices drains the pending notifications.
func (c *Controller) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drainLocked()
}

func (c *Controller) drainLocked() []Notice {
	out := c.notices
	c.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

// Snapshot renders the active screen as of asOf and drains the notifications.
func (c *Controller) Snapshot(asOf time.Time) Bundle {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := Bundle{State: c.state}
	if c.principal != nil {
		p := *c.principal
		b.Principal = &p
		b.CanEdit = models.CanEdit(&p)
	}

	switch c.state {
	case StateDashboard:
		d := ledger.BuildDashboard(c.projects, c.formatter)
		b.Dashboard = &d
	case StateUpcoming:
		lv := ledger.BuildList(c.projects, ledger.ModeUpcoming, asOf, c.principal, c.formatter)
		b.List = &lv
	case StateCompleted:
		lv := ledger.BuildList(c.projects, ledger.ModeCompleted, asOf, c.principal, c.formatter)
		b.List = &lv
	case StateHistory:
		lv := ledger.BuildHistory(c.projects, asOf, c.principal, c.formatter)
		b.List = &lv
	case StateNewProject:
		f := &Form{Mode: FormCreate}
		if c.bound != nil {
			f.Mode = FormEdit
			f.ProjectID = c.bound.ID
		}
		if c.draft != nil {
			f.Draft = *c.draft
		}
		b.Form = f
	}

	b.Notices = c.drainLocked()
	return b
}

func (c *Controller) pushError(err error) {
	c.notices = append(c.notices, Notice{Level: NoticeError, Message: describe(err)})
}

// describe turns an error into a message fit for the user.
func describe(err error) string {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return "Please fill in the required fields: " + strings.Join(verr.Fields, ", ")
	case errors.Is(err, models.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, models.ErrNotFound):
		return "The project no longer exists"
	case errors.Is(err, models.ErrForbidden):
		return "You do not have permission to do that"
	case errors.Is(err, models.ErrGatewayUnavailable):
		return "The ledger is unavailable right now, please try again"
	}
	return "Something went wrong: " + err.Error()
}
