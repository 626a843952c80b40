package ledger

import (
	"time"

	"project-ledger-api/internal/models"
)

// Action is an affordance offered on a rendered view.
type Action string

// ActionEdit opens the project in the entry form.
const ActionEdit Action = "edit"

// AttachmentInfo describes an attachment without its content.
type AttachmentInfo struct {
	Kind     models.AttachmentKind `json:"kind"`
	Name     string                `json:"name"`
	MimeType string                `json:"mime_type"`
	Size     int                   `json:"size"`
}

// ProjectText is a project with every field rendered by the Formatter.
type ProjectText struct {
	StartDate                 string `json:"start_date"`
	EndDate                   string `json:"end_date"`
	BudgetAmount              string `json:"budget_amount"`
	AdvanceAmount             string `json:"advance_amount"`
	ExpenseAmount             string `json:"expense_amount"`
	BalanceAmount             string `json:"balance_amount"`
	BillSubmissionDate        string `json:"bill_submission_date"`
	SopRoiEmailSubmissionDate string `json:"sop_roi_email_submission_date"`
}

// FormatProject renders p with f.
func FormatProject(p models.Project, f Formatter) ProjectText {
	return ProjectText{
		StartDate:                 f.FormatDate(p.StartDate),
		EndDate:                   f.FormatDate(p.EndDate),
		BudgetAmount:              f.FormatCurrency(p.BudgetAmount),
		AdvanceAmount:             f.FormatCurrency(p.AdvanceAmount),
		ExpenseAmount:             f.FormatCurrency(p.ExpenseAmount),
		BalanceAmount:             f.FormatCurrency(p.BalanceAmount),
		BillSubmissionDate:        f.FormatOptionalDate(p.BillSubmissionDate),
		SopRoiEmailSubmissionDate: f.FormatOptionalDate(p.SopRoiEmailSubmissionDate),
	}
}

// AuditView is the printable single-project report.
type AuditView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Status      Mode             `json:"status"`
	Formatted   ProjectText      `json:"formatted"`
	Attachments []AttachmentInfo `json:"attachments"`
	// Actions is omitted entirely for principals without the edit capability.
	Actions []Action `json:"actions,omitempty"`
}

// BuildAudit renders the audit view of p for the viewer. Status is computed against the
// day asOf falls on.
func BuildAudit(p models.Project, viewer *models.Principal, f Formatter, asOf time.Time) AuditView {
	v := AuditView{
		ID:          p.ID,
		Name:        p.Name,
		Status:      Classify(p, asOf),
		Formatted:   FormatProject(p, f),
		Attachments: attachmentsOf(p),
	}
	if models.CanEdit(viewer) {
		v.Actions = []Action{ActionEdit}
	}
	return v
}

func attachmentsOf(p models.Project) []AttachmentInfo {
	out := []AttachmentInfo{}
	for _, kind := range []models.AttachmentKind{models.AttachmentBillTopSheet, models.AttachmentBudgetCopy} {
		if a := p.Attachment(kind); a != nil {
			out = append(out, AttachmentInfo{
				Kind:     kind,
				Name:     a.Name,
				MimeType: a.MimeType,
				Size:     len(a.Data),
			})
		}
	}
	return out
}
