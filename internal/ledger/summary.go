// Package ledger holds the derived views of the project ledger: portfolio totals,
// the upcoming/completed partition, and the list, audit and export renderings.
// Everything here is pure and synchronous.
package ledger

import (
	"project-ledger-api/internal/models"

	"github.com/shopspring/decimal"
)

// FinancialSummary is the portfolio-wide total of each monetary field.
type FinancialSummary struct {
	TotalBudget  decimal.Decimal `json:"total_budget"`
	TotalAdvance decimal.Decimal `json:"total_advance"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	TotalBalance decimal.Decimal `json:"total_balance"`
}

// Summarize folds projects into their totals. An empty input sums to zero.
func Summarize(projects []models.Project) FinancialSummary {
	s := FinancialSummary{
		TotalBudget:  decimal.Zero,
		TotalAdvance: decimal.Zero,
		TotalExpense: decimal.Zero,
		TotalBalance: decimal.Zero,
	}
	for _, p := range projects {
		s.TotalBudget = s.TotalBudget.Add(p.BudgetAmount)
		s.TotalAdvance = s.TotalAdvance.Add(p.AdvanceAmount)
		s.TotalExpense = s.TotalExpense.Add(p.ExpenseAmount)
		s.TotalBalance = s.TotalBalance.Add(p.BalanceAmount)
	}
	return s
}

// Dashboard is the data bundle behind the dashboard screen.
type Dashboard struct {
	ProjectCount int              `json:"project_count"`
	Summary      FinancialSummary `json:"summary"`
	Formatted    SummaryText      `json:"formatted"`
}

// SummaryText is the summary rendered with the ledger currency.
type SummaryText struct {
	TotalBudget  string `json:"total_budget"`
	TotalAdvance string `json:"total_advance"`
	TotalExpense string `json:"total_expense"`
	TotalBalance string `json:"total_balance"`
}

// BuildDashboard summarizes projects and formats the totals with f.
func BuildDashboard(projects []models.Project, f Formatter) Dashboard {
	s := Summarize(projects)
	return Dashboard{
		ProjectCount: len(projects),
		Summary:      s,
		Formatted: SummaryText{
			TotalBudget:  f.FormatCurrency(s.TotalBudget),
			TotalAdvance: f.FormatCurrency(s.TotalAdvance),
			TotalExpense: f.FormatCurrency(s.TotalExpense),
			TotalBalance: f.FormatCurrency(s.TotalBalance),
		},
	}
}
