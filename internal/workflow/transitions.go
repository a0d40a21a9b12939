// Package workflow contains the needs list state machine.
// Guards are pure functions that evaluate preconditions without side effects.
package workflow

import (
	"strings"

	"dmis/internal/models"
	"dmis/pkg/errclass"
)

// Action is a named workflow step.
type Action string

const (
	ActionCreateDraft Action = "create_draft"
	ActionSubmit      Action = "submit"
	ActionReviewStart Action = "review_start"
	ActionReturn      Action = "return"
	ActionReject      Action = "reject"
	ActionApprove     Action = "approve"
	ActionEscalate    Action = "escalate"
	ActionExecute     Action = "execute"
	ActionComplete    Action = "complete"
	ActionCancel      Action = "cancel"
)

// Actions lists every known action.
var Actions = []Action{
	ActionCreateDraft,
	ActionSubmit,
	ActionReviewStart,
	ActionReturn,
	ActionReject,
	ActionApprove,
	ActionEscalate,
	ActionExecute,
	ActionComplete,
	ActionCancel,
}

// ResourceNeedsList is the permission resource for every needs list action.
const ResourceNeedsList = "needs_list"

// ParseAction rejects unknown action names.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Actions {
		if a == known {
			return a, nil
		}
	}
	return "", errclass.ErrUnknownAction.WithMessagef("unknown action %q", s)
}

// PermissionAction is the action half of the "needs_list.<action>" grant
// that gates a. Completing shares the execute grant.
func (a Action) PermissionAction() string {
	if a == ActionComplete {
		return string(ActionExecute)
	}
	return string(a)
}

// Permission returns the full "resource.action" name.
func (a Action) Permission() string {
	return ResourceNeedsList + "." + a.PermissionAction()
}

// RequiresReason reports whether a must carry a non-empty reason.
func (a Action) RequiresReason() bool {
	switch a {
	case ActionReject, ActionCancel, ActionReturn:
		return true
	}
	return false
}

var nonTerminal = []models.NeedsListStatus{
	models.StatusDraft,
	models.StatusPendingApproval,
	models.StatusUnderReview,
	models.StatusApproved,
	models.StatusInProgress,
}

// transitions maps each action to the statuses it may start from and the
// status it leads to. A list that does not exist yet has the empty status.
var transitions = map[Action]map[models.NeedsListStatus]models.NeedsListStatus{
	ActionCreateDraft: {"": models.StatusDraft},
	ActionSubmit:      {models.StatusDraft: models.StatusPendingApproval},
	ActionReviewStart: {models.StatusPendingApproval: models.StatusUnderReview},
	ActionReturn:      {models.StatusUnderReview: models.StatusPendingApproval},
	ActionReject:      {models.StatusUnderReview: models.StatusRejected},
	ActionApprove:     {models.StatusUnderReview: models.StatusApproved},
	ActionEscalate:    {models.StatusUnderReview: models.StatusUnderReview},
	ActionExecute:     {models.StatusApproved: models.StatusInProgress},
	ActionComplete:    {models.StatusInProgress: models.StatusCompleted},
	ActionCancel:      cancelTransitions(),
}

func cancelTransitions() map[models.NeedsListStatus]models.NeedsListStatus {
	m := make(map[models.NeedsListStatus]models.NeedsListStatus, len(nonTerminal))
	for _, s := range nonTerminal {
		m[s] = models.StatusCancelled
	}
	return m
}

// Next returns the status that a leads to from the given status.
func Next(from models.NeedsListStatus, a Action) (models.NeedsListStatus, error) {
	edges, ok := transitions[a]
	if !ok {
		return "", errclass.ErrUnknownAction.WithMessagef("unknown action %q", a)
	}
	to, ok := edges[from]
	if !ok {
		return "", errclass.ErrInvalidStateTransition.WithMessagef("cannot %s a needs list in status %s", a, displayStatus(from))
	}
	return to, nil
}

// AvailableActions lists the actions that are legal from status, in
// declaration order. Permissions are not considered.
func AvailableActions(from models.NeedsListStatus) []Action {
	var out []Action
	for _, a := range Actions {
		if _, ok := transitions[a][from]; ok {
			out = append(out, a)
		}
	}
	return out
}

func displayStatus(s models.NeedsListStatus) string {
	if s == "" {
		return "(none)"
	}
	return string(s)
}
