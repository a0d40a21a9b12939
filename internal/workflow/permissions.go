package workflow

import (
	"context"

	"dmis/pkg/errclass"

	"github.com/google/uuid"
)

// PermissionChecker answers whether an actor holds "resource.action".
type PermissionChecker interface {
	HasPermission(ctx context.Context, actorID uuid.UUID, resource, action string) (bool, error)
}

// Authorize denies by default: a missing checker, a lookup error or a
// negative answer all yield ErrPermissionDenied.
func Authorize(ctx context.Context, checker PermissionChecker, actorID uuid.UUID, resource, action string) error {
	if checker == nil || actorID == uuid.Nil {
		return errclass.ErrPermissionDenied.WithMessagef("%s.%s", resource, action)
	}
	ok, err := checker.HasPermission(ctx, actorID, resource, action)
	if err != nil {
		return errclass.ErrPermissionDenied.WithMessagef("%s.%s: permission lookup failed: %v", resource, action, err)
	}
	if !ok {
		return errclass.ErrPermissionDenied.WithMessagef("actor %s lacks %s.%s", actorID, resource, action)
	}
	return nil
}

// AuthorizeAction checks the needs list permission gating a.
func AuthorizeAction(ctx context.Context, checker PermissionChecker, actorID uuid.UUID, a Action) error {
	return Authorize(ctx, checker, actorID, ResourceNeedsList, a.PermissionAction())
}
