package middleware

import (
	"net/http"

	"dmis/internal/common"
	"dmis/internal/services"

	"github.com/labstack/echo/v4"
)

type RBACMiddleware struct {
	rbacService services.RBACService
}

func NewRBACMiddleware(rbacService services.RBACService) *RBACMiddleware {
	return &RBACMiddleware{
		rbacService: rbacService,
	}
}

// RequirePermission rejects requests whose actor lacks the named permission.
// Services check again; this keeps unauthorized reads off the database.
func (m *RBACMiddleware) RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID, ok := common.GetUserIDFromContext(ctx)
			if !ok {
				return common.SendUnauthorizedError(c)
			}

			hasPermission, err := m.rbacService.UserHasPermission(ctx, userID, permission)
			if err != nil {
				c.Logger().Errorf("permission lookup failed: %v", err)
				return c.JSON(http.StatusForbidden, common.CreateErrorResponse("E_PERMISSION_DENIED", "Error checking permission", nil))
			}
			if !hasPermission {
				return c.JSON(http.StatusForbidden, common.CreateErrorResponse("E_PERMISSION_DENIED", "Insufficient permissions", nil))
			}

			return next(c)
		}
	}
}
