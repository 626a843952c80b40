// Package view holds the per-session screen state machine that sits between the HTTP
// surface and the ledger: which screen is active, what the user is editing, and the
// notifications waiting to be shown.
package view

import (
	"errors"
	"fmt"
	"strings"
)

// State is the active screen.
type State string

const (
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateDashboard       State = "DASHBOARD"
	StateNewProject      State = "NEW_PROJECT"
	StateUpcoming        State = "UPCOMING"
	StateCompleted       State = "COMPLETED"
	StateHistory         State = "HISTORY"
)

var (
	// ErrUnauthenticated is returned for any action other than login without a session.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrInvalidTransition is returned for moves the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid transition")
)

// browsable are the screens reachable by plain navigation.
var browsable = map[State]bool{
	StateDashboard: true,
	StateUpcoming:  true,
	StateCompleted: true,
	StateHistory:   true,
}

// ParseState accepts a state name in any letter case, with '-' in place of '_'.
func ParseState(s string) (State, error) {
	st := State(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_"))
	switch st {
	case StateUnauthenticated, StateDashboard, StateNewProject, StateUpcoming, StateCompleted, StateHistory:
		return st, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// NoticeLevel grades a notification.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a transient message for the user. It is shown once.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}
