package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"project-ledger-api/internal/models"
)

// Mode selects one side of the time partition.
type Mode string

const (
	// ModeUpcoming holds projects whose end date has not passed: future and in progress.
	ModeUpcoming Mode = "upcoming"
	// ModeCompleted holds projects whose end date is strictly before the evaluation day.
	ModeCompleted Mode = "completed"
	// ModeHistory labels the unpartitioned ledger. It is not accepted by ParseMode.
	ModeHistory Mode = "history"
)

// ParseMode parses "upcoming" or "completed" in any letter case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeUpcoming:
		return ModeUpcoming, nil
	case ModeCompleted:
		return ModeCompleted, nil
	}
	return "", fmt.Errorf("unknown list mode %q", s)
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Classify places p on one side of the partition relative to the day containing asOf.
// The time of day in asOf is ignored; a project ending on that day is still upcoming.
func Classify(p models.Project, asOf time.Time) Mode {
	if p.EndDate.Before(models.DateOf(asOf)) {
		return ModeCompleted
	}
	return ModeUpcoming
}

// Partition returns the projects in mode as of the given instant, newest start date first.
// The input slice is left untouched.
func Partition(projects []models.Project, mode Mode, asOf time.Time) []models.Project {
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if Classify(p, asOf) == mode {
			out = append(out, p)
		}
	}
	SortByStartDesc(out)
	return out
}

// SortByStartDesc orders projects by start date, most recent first. Equal keys keep
// their relative order.
func SortByStartDesc(projects []models.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].StartDate.After(projects[j].StartDate)
	})
}
