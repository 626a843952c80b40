package ledger

import (
	"time"

	"project-ledger-api/internal/models"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func project(id, name, start, end string, budget, advance, expense string) models.Project {
	p := models.Project{
		ID:            id,
		Name:          name,
		StartDate:     models.MustParseDate(start),
		EndDate:       models.MustParseDate(end),
		BudgetAmount:  dec(budget),
		AdvanceAmount: dec(advance),
		ExpenseAmount: dec(expense),
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	p.Normalize()
	return p
}

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
