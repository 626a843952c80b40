package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"project-ledger-api/internal/models"

	"github.com/google/uuid"
)

type memoryRecord struct {
	project models.Project
	seq     uint64
}

// Memory is an in-process ProjectGateway and UserStore.
type Memory struct {
	mu       sync.RWMutex
	projects map[string]memoryRecord
	users    map[string]models.User
	seq      uint64
	now      func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		projects: make(map[string]memoryRecord),
		users:    make(map[string]models.User),
		now:      time.Now,
	}
}

// SetClock replaces the creation-time source.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) ListProjects(ctx context.Context) ([]models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]memoryRecord, 0, len(m.projects))
	for _, r := range m.projects {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.project.CreatedAt.Equal(b.project.CreatedAt) {
			return a.project.CreatedAt.After(b.project.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]models.Project, len(records))
	for i, r := range records {
		out[i] = cloneProject(r.project)
	}
	return out, nil
}

func (m *Memory) GetProject(ctx context.Context, id string) (models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.projects[id]
	if !ok {
		return models.Project{}, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	return cloneProject(r.project), nil
}

func (m *Memory) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	if err := prepare(&p); err != nil {
		return models.Project{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(p), nil
}

func (m *Memory) CreateProjects(ctx context.Context, projects []models.Project) ([]models.Project, error) {
	batch := make([]models.Project, len(projects))
	copy(batch, projects)
	if err := prepareAll(batch); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Project, len(batch))
	for i, p := range batch {
		out[i] = m.insertLocked(p)
	}
	return out, nil
}

func (m *Memory) insertLocked(p models.Project) models.Project {
	m.seq++
	p.ID = uuid.NewString()
	p.CreatedAt = m.now().UTC()
	m.projects[p.ID] = memoryRecord{project: cloneProject(p), seq: m.seq}
	return p
}

func (m *Memory) UpdateProject(ctx context.Context, id string, p models.Project) (models.Project, error) {
	if err := prepare(&p); err != nil {
		return models.Project{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.projects[id]
	if !ok {
		return models.Project{}, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	p.ID = id
	p.CreatedAt = r.project.CreatedAt
	r.project = cloneProject(p)
	m.projects[id] = r
	return p, nil
}

func (m *Memory) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	delete(m.projects, id)
	return nil
}

func (m *Memory) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[u.Username]; exists {
		return models.User{}, fmt.Errorf("user %s: %w", u.Username, models.ErrDuplicateIdentity)
	}
	u.CreatedAt = m.now().UTC()
	m.users[u.Username] = u
	return u, nil
}

func (m *Memory) GetUser(ctx context.Context, username string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[username]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", username, models.ErrNotFound)
	}
	return u, nil
}

// cloneProject copies the pointer fields so callers never share state with the store.
func cloneProject(p models.Project) models.Project {
	if p.BillSubmissionDate != nil {
		d := *p.BillSubmissionDate
		p.BillSubmissionDate = &d
	}
	if p.SopRoiEmailSubmissionDate != nil {
		d := *p.SopRoiEmailSubmissionDate
		p.SopRoiEmailSubmissionDate = &d
	}
	p.BillTopSheetImage = cloneAttachment(p.BillTopSheetImage)
	p.BudgetCopyAttachment = cloneAttachment(p.BudgetCopyAttachment)
	if p.IsSettled != nil {
		v := *p.IsSettled
		p.IsSettled = &v
	}
	return p
}

func cloneAttachment(a *models.Attachment) *models.Attachment {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}
