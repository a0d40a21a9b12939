package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dmis/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-for-hmac-signing-0001"

func signedToken(t *testing.T, subject string, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func serve(t *testing.T, mw echo.MiddlewareFunc, authorization string) (*httptest.ResponseRecorder, uuid.UUID) {
	t.Helper()
	e := echo.New()
	var seen uuid.UUID
	e.GET("/v1/needs-lists", func(c echo.Context) error {
		seen, _ = common.GetUserIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}, mw)

	req := httptest.NewRequest(http.MethodGet, "/v1/needs-lists", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestJWTMiddleware_SharedSecret(t *testing.T) {
	mw, release, err := JWTMiddleware(JWTOptions{Secret: testSecret}, zap.NewNop())
	require.NoError(t, err)
	defer release()

	userID := uuid.New()

	t.Run("valid token sets actor", func(t *testing.T) {
		rec, seen := serve(t, mw, "Bearer "+signedToken(t, userID.String(), testSecret))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, seen)
	})

	t.Run("missing header", func(t *testing.T) {
		rec, _ := serve(t, mw, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong signature", func(t *testing.T) {
		rec, _ := serve(t, mw, "Bearer "+signedToken(t, userID.String(), "another-secret-another-secret-00"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("subject is not a user id", func(t *testing.T) {
		rec, seen := serve(t, mw, "Bearer "+signedToken(t, "scheduler", testSecret))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, uuid.Nil, seen)
	})
}

func TestJWTMiddleware_RequiresKeyMaterial(t *testing.T) {
	_, _, err := JWTMiddleware(JWTOptions{}, zap.NewNop())
	assert.Error(t, err)
}

type stubRBAC struct {
	allowed map[string]bool
	err     error
}

func (s *stubRBAC) HasPermission(ctx context.Context, actorID uuid.UUID, resource, action string) (bool, error) {
	return s.UserHasPermission(ctx, actorID, resource+"."+action)
}

func (s *stubRBAC) UserHasPermission(ctx context.Context, userID uuid.UUID, permissionName string) (bool, error) {
	return s.allowed[permissionName], s.err
}

func (s *stubRBAC) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return nil, s.err
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name   string
		rbac   *stubRBAC
		actor  uuid.UUID
		status int
	}{
		{"granted", &stubRBAC{allowed: map[string]bool{"needs_list.approve": true}}, uuid.New(), http.StatusOK},
		{"not granted", &stubRBAC{allowed: map[string]bool{}}, uuid.New(), http.StatusForbidden},
		{"lookup error denies", &stubRBAC{allowed: map[string]bool{"needs_list.approve": true}, err: errors.New("db down")}, uuid.New(), http.StatusForbidden},
		{"anonymous", &stubRBAC{}, uuid.Nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = req.WithContext(common.WithUserID(req.Context(), tt.actor))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := NewRBACMiddleware(tt.rbac).RequirePermission("needs_list.approve")(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			require.NoError(t, h(c))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestExtractVersionFromPath(t *testing.T) {
	assert.Equal(t, "v1", extractVersionFromPath("/v1/needs-lists"))
	assert.Equal(t, "v12", extractVersionFromPath("/v12"))
	assert.Equal(t, "", extractVersionFromPath("/vendors"))
	assert.Equal(t, "", extractVersionFromPath("/health"))
}

func TestAPIVersionResolver_RejectsUnknownVersion(t *testing.T) {
	e := echo.New()
	e.Use(NewVersionMiddleware().APIVersionResolver())
	e.GET("/v2/needs-lists", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2/needs-lists", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "v1")
}
