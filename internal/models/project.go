package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts cross the API as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Attachment is a supporting document stored inline with its project.
// Data is raw content; JSON carries it base64-encoded.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Value implements the driver.Valuer interface for JSONB
func (a *Attachment) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for JSONB
func (a *Attachment) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Attachment", value)
	}
	return json.Unmarshal(raw, a)
}

// Project is a single ledger record.
type Project struct {
	ID                        string          `json:"id"`
	Name                      string          `json:"name"`
	StartDate                 Date            `json:"start_date"`
	EndDate                   Date            `json:"end_date"`
	BudgetAmount              decimal.Decimal `json:"budget_amount"`
	AdvanceAmount             decimal.Decimal `json:"advance_amount"`
	ExpenseAmount             decimal.Decimal `json:"expense_amount"`
	BalanceAmount             decimal.Decimal `json:"balance_amount"`
	BillSubmissionDate        *Date           `json:"bill_submission_date"`
	SopRoiEmailSubmissionDate *Date           `json:"sop_roi_email_submission_date"`
	BillTopSheetImage         *Attachment     `json:"bill_top_sheet_image,omitempty"`
	BudgetCopyAttachment      *Attachment     `json:"budget_copy_attachment,omitempty"`
	CreatedAt                 time.Time       `json:"created_at"`
	// IsSettled is reserved: it is persisted and returned but nothing acts on it.
	IsSettled *bool `json:"is_settled,omitempty"`
}

// Balance returns advance minus expense.
func Balance(advance, expense decimal.Decimal) decimal.Decimal {
	return advance.Sub(expense)
}

// Normalize brings p into canonical form: the balance is recomputed from advance and
// expense, the name is trimmed, and unset optional dates and empty attachments become nil.
// Gateways call it on every create and update so a client-supplied balance never survives.
func (p *Project) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.BalanceAmount = Balance(p.AdvanceAmount, p.ExpenseAmount)
	if p.BillSubmissionDate != nil && p.BillSubmissionDate.IsZero() {
		p.BillSubmissionDate = nil
	}
	if p.SopRoiEmailSubmissionDate != nil && p.SopRoiEmailSubmissionDate.IsZero() {
		p.SopRoiEmailSubmissionDate = nil
	}
	if p.BillTopSheetImage != nil && len(p.BillTopSheetImage.Data) == 0 {
		p.BillTopSheetImage = nil
	}
	if p.BudgetCopyAttachment != nil && len(p.BudgetCopyAttachment.Data) == 0 {
		p.BudgetCopyAttachment = nil
	}
}

// Validate checks the mandatory fields. End-before-start and negative amounts are allowed.
func (p *Project) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if p.StartDate.IsZero() {
		missing = append(missing, "start_date")
	}
	if p.EndDate.IsZero() {
		missing = append(missing, "end_date")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// AttachmentKind names one of the two attachment slots on a project.
type AttachmentKind string

const (
	AttachmentBillTopSheet AttachmentKind = "bill-top-sheet"
	AttachmentBudgetCopy   AttachmentKind = "budget-copy"
)

// Attachment returns the attachment stored in the given slot, or nil.
func (p *Project) Attachment(kind AttachmentKind) *Attachment {
	switch kind {
	case AttachmentBillTopSheet:
		return p.BillTopSheetImage
	case AttachmentBudgetCopy:
		return p.BudgetCopyAttachment
	}
	return nil
}

// ProjectInput is the editable part of a project as submitted by a client.
// It deliberately has no balance, id, or creation time.
type ProjectInput struct {
	Name                      string          `json:"name"`
	StartDate                 Date            `json:"start_date"`
	EndDate                   Date            `json:"end_date"`
	BudgetAmount              decimal.Decimal `json:"budget_amount"`
	AdvanceAmount             decimal.Decimal `json:"advance_amount"`
	ExpenseAmount             decimal.Decimal `json:"expense_amount"`
	BillSubmissionDate        *Date           `json:"bill_submission_date"`
	SopRoiEmailSubmissionDate *Date           `json:"sop_roi_email_submission_date"`
	BillTopSheetImage         *Attachment     `json:"bill_top_sheet_image,omitempty"`
	BudgetCopyAttachment      *Attachment     `json:"budget_copy_attachment,omitempty"`
	IsSettled                 *bool           `json:"is_settled,omitempty"`
}

// Project builds an unsaved project from the input.
func (in ProjectInput) Project() Project {
	p := Project{
		Name:                      in.Name,
		StartDate:                 in.StartDate,
		EndDate:                   in.EndDate,
		BudgetAmount:              in.BudgetAmount,
		AdvanceAmount:             in.AdvanceAmount,
		ExpenseAmount:             in.ExpenseAmount,
		BillSubmissionDate:        in.BillSubmissionDate,
		SopRoiEmailSubmissionDate: in.SopRoiEmailSubmissionDate,
		BillTopSheetImage:         in.BillTopSheetImage,
		BudgetCopyAttachment:      in.BudgetCopyAttachment,
		IsSettled:                 in.IsSettled,
	}
	p.Normalize()
	return p
}

// InputOf returns the editable fields of p, used to prefill an edit form.
func InputOf(p Project) ProjectInput {
	return ProjectInput{
		Name:                      p.Name,
		StartDate:                 p.StartDate,
		EndDate:                   p.EndDate,
		BudgetAmount:              p.BudgetAmount,
		AdvanceAmount:             p.AdvanceAmount,
		ExpenseAmount:             p.ExpenseAmount,
		BillSubmissionDate:        p.BillSubmissionDate,
		SopRoiEmailSubmissionDate: p.SopRoiEmailSubmissionDate,
		BillTopSheetImage:         p.BillTopSheetImage,
		BudgetCopyAttachment:      p.BudgetCopyAttachment,
		IsSettled:                 p.IsSettled,
	}
}
