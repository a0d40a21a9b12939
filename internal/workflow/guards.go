package workflow

import (
	"fmt"
	"strings"

	"dmis/internal/models"
	"dmis/pkg/errclass"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Class   *errclass.DMISError
}

// Error converts the guard result to a classified error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	if r.Class == nil {
		return fmt.Errorf("%s", r.Reason)
	}
	return r.Class.WithMessage(r.Reason)
}

func deny(class *errclass.DMISError, format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Reason: fmt.Sprintf(format, args...), Class: class}
}

// TransitionContext provides context for status transition guards.
type TransitionContext struct {
	ListID          uuid.UUID
	Status          models.NeedsListStatus
	CurrentVersion  int
	ExpectedVersion int
	Action          Action
	Reason          string
}

// CanTransition evaluates whether a status transition may be applied.
// Rules:
// - Caller must have seen the current version
// - Action must be legal from the current status
// - Reject, return and cancel need a non-empty reason
func CanTransition(ctx TransitionContext) GuardResult {
	if ctx.CurrentVersion != ctx.ExpectedVersion {
		return deny(errclass.ErrVersionConflict, "needs list %s is at version %d, not %d", ctx.ListID, ctx.CurrentVersion, ctx.ExpectedVersion)
	}
	if _, err := Next(ctx.Status, ctx.Action); err != nil {
		class := errclass.ErrInvalidStateTransition
		if errclass.CodeOf(err) == errclass.ErrUnknownAction.Code {
			class = errclass.ErrUnknownAction
		}
		return deny(class, "cannot %s needs list %s in status %s", ctx.Action, ctx.ListID, displayStatus(ctx.Status))
	}
	if ctx.Action.RequiresReason() && strings.TrimSpace(ctx.Reason) == "" {
		return deny(errclass.ErrReasonRequired, "%s requires a reason", ctx.Action)
	}
	return GuardResult{Allowed: true}
}

// AdjustQuantityContext provides context for line quantity adjustments.
type AdjustQuantityContext struct {
	ListID          uuid.UUID
	Status          models.NeedsListStatus
	CurrentVersion  int
	ExpectedVersion int
	Quantity        decimal.Decimal
	Reason          string
}

// CanAdjustQuantity evaluates whether a reviewer may override a line quantity.
// Rules:
// - Caller must have seen the current version
// - List must be under review
// - Quantity cannot be negative
// - A reason is always required
func CanAdjustQuantity(ctx AdjustQuantityContext) GuardResult {
	if ctx.CurrentVersion != ctx.ExpectedVersion {
		return deny(errclass.ErrVersionConflict, "needs list %s is at version %d, not %d", ctx.ListID, ctx.CurrentVersion, ctx.ExpectedVersion)
	}
	if ctx.Status != models.StatusUnderReview {
		return deny(errclass.ErrInvalidStateTransition, "quantities can only be adjusted under review (current status: %s)", ctx.Status)
	}
	if ctx.Quantity.IsNegative() {
		return deny(errclass.ErrInvalidQuantity, "adjusted quantity cannot be negative, got %s", ctx.Quantity)
	}
	if strings.TrimSpace(ctx.Reason) == "" {
		return deny(errclass.ErrReasonRequired, "quantity adjustment requires a reason")
	}
	return GuardResult{Allowed: true}
}
