package ledger

import (
	"sort"
	"time"

	"project-ledger-api/internal/models"
)

// ListRow is one project in a list view.
type ListRow struct {
	Project     models.Project   `json:"project"`
	Formatted   ProjectText      `json:"formatted"`
	Attachments []AttachmentInfo `json:"attachments"`
	CanEdit     bool             `json:"can_edit"`
}

// ListView is the data bundle behind the upcoming and completed screens.
type ListView struct {
	Mode  Mode      `json:"mode"`
	AsOf  string    `json:"as_of"`
	Count int       `json:"count"`
	Rows  []ListRow `json:"rows"`
}

// BuildList partitions projects for mode as of asOf and renders each row for the viewer.
func BuildList(projects []models.Project, mode Mode, asOf time.Time, viewer *models.Principal, f Formatter) ListView {
	rows := buildRows(Partition(projects, mode, asOf), viewer, f)
	return ListView{
		Mode:  mode,
		AsOf:  models.DateOf(asOf).String(),
		Count: len(rows),
		Rows:  rows,
	}
}

// BuildHistory renders the whole ledger in creation order, newest first.
func BuildHistory(projects []models.Project, asOf time.Time, viewer *models.Principal, f Formatter) ListView {
	rows := buildRows(History(projects), viewer, f)
	return ListView{
		Mode:  ModeHistory,
		AsOf:  models.DateOf(asOf).String(),
		Count: len(rows),
		Rows:  rows,
	}
}

func buildRows(selected []models.Project, viewer *models.Principal, f Formatter) []ListRow {
	canEdit := models.CanEdit(viewer)
	rows := make([]ListRow, 0, len(selected))
	for _, p := range selected {
		attachments := attachmentsOf(p)
		// Attachment bodies stay out of list payloads; they are fetched one at a time.
		p.BillTopSheetImage, p.BudgetCopyAttachment = nil, nil
		rows = append(rows, ListRow{
			Project:     p,
			Formatted:   FormatProject(p, f),
			Attachments: attachments,
			CanEdit:     canEdit,
		})
	}
	return rows
}

// History returns every project in ledger order (creation time, newest first).
func History(projects []models.Project) []models.Project {
	out := make([]models.Project, len(projects))
	copy(out, projects)
	sortByCreatedDesc(out)
	return out
}

func sortByCreatedDesc(projects []models.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
}
