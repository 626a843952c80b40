package internal

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"project-ledger-api/internal/models"
)

// listParams holds common query parameters for list endpoints
type listParams struct {
	limit  int
	offset int
	q      string
	sort   string
}

// parseListParams parses limit, offset, q, and sort from the request
// Defaults: limit=50 (max 200), offset=0
func parseListParams(r *http.Request) listParams {
	values := r.URL.Query()

	limit := 50
	if s := strings.TrimSpace(values.Get("limit")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			if v > 200 {
				v = 200
			}
			limit = v
		}
	}

	offset := 0
	if s := strings.TrimSpace(values.Get("offset")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	return listParams{
		limit:  limit,
		offset: offset,
		q:      strings.TrimSpace(values.Get("q")),
		sort:   strings.TrimSpace(values.Get("sort")),
	}
}

// parseAsOf reads the as_of query parameter as a calendar day in loc. Without it the
// current day in loc is used.
func parseAsOf(r *http.Request, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(r.URL.Query().Get("as_of"))
	if s == "" {
		return now.In(loc), nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return time.Time{}, &models.ValidationError{Fields: []string{"as_of"}}
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc), nil
}

// projectLess compares two projects on one sortable key.
type projectLess func(a, b *models.Project) int

// sortKeys whitelists the keys accepted by ?sort=.
var sortKeys = map[string]projectLess{
	"name": func(a, b *models.Project) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	},
	"start_date": func(a, b *models.Project) int { return a.StartDate.Compare(b.StartDate.Time) },
	"end_date":   func(a, b *models.Project) int { return a.EndDate.Compare(b.EndDate.Time) },
	"created_at": func(a, b *models.Project) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"budget_amount": func(a, b *models.Project) int {
		return a.BudgetAmount.Cmp(b.BudgetAmount)
	},
	"balance_amount": func(a, b *models.Project) int {
		return a.BalanceAmount.Cmp(b.BalanceAmount)
	},
}

// sortProjects applies a comma-separated sort expression; prefix a key with '-' for descending.
// Unknown keys are ignored, and an empty expression keeps the incoming order.
func sortProjects(projects []models.Project, sortParam string) {
	type clause struct {
		less projectLess
		desc bool
	}
	var clauses []clause
	for _, raw := range strings.Split(sortParam, ",") {
		s := strings.TrimSpace(raw)
		desc := strings.HasPrefix(s, "-")
		s = strings.TrimPrefix(s, "-")
		if less, ok := sortKeys[s]; ok {
			clauses = append(clauses, clause{less: less, desc: desc})
		}
	}
	if len(clauses) == 0 {
		return
	}
	sort.SliceStable(projects, func(i, j int) bool {
		for _, c := range clauses {
			n := c.less(&projects[i], &projects[j])
			if n == 0 {
				continue
			}
			if c.desc {
				return n > 0
			}
			return n < 0
		}
		return false
	})
}

// filterProjects keeps projects whose name contains q, ignoring case.
func filterProjects(projects []models.Project, q string) []models.Project {
	if q == "" {
		return projects
	}
	q = strings.ToLower(q)
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}

// page slices projects by offset and limit.
func page(projects []models.Project, offset, limit int) []models.Project {
	if offset >= len(projects) {
		return []models.Project{}
	}
	end := offset + limit
	if end > len(projects) {
		end = len(projects)
	}
	return projects[offset:end]
}
