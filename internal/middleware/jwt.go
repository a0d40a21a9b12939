package middleware

import (
	"fmt"
	"net/http"
	"time"

	"dmis/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// tokenContextKey is where echo-jwt stores the parsed token.
const tokenContextKey = "user"

// JWTOptions selects how bearer tokens are verified. JWKSURL wins over Secret.
type JWTOptions struct {
	Secret  string
	JWKSURL string
}

// JWTMiddleware verifies the bearer token and places its subject on the
// request context as the acting user.
func JWTMiddleware(opts JWTOptions, logger *zap.Logger) (echo.MiddlewareFunc, func(), error) {
	cfg := echojwt.Config{
		ContextKey: tokenContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(jwt.RegisteredClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return common.SendUnauthorizedError(c)
		},
	}

	release := func() {}
	switch {
	case opts.JWKSURL != "":
		jwks, err := keyfunc.Get(opts.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Warn("jwks refresh failed", zap.String("url", opts.JWKSURL), zap.Error(err))
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load jwks: %w", err)
		}
		cfg.KeyFunc = jwks.Keyfunc
		release = jwks.EndBackground
	case opts.Secret != "":
		cfg.SigningKey = []byte(opts.Secret)
	default:
		return nil, nil, fmt.Errorf("either a jwt secret or a jwks url is required")
	}

	verify := echojwt.WithConfig(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(actorFromToken(next))
	}, release, nil
}

// actorFromToken moves the token subject onto the request context.
func actorFromToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get(tokenContextKey).(*jwt.Token)
		if !ok {
			return common.SendUnauthorizedError(c)
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing user_id in token")
		}
		userID, err := uuid.Parse(sub)
		if err != nil || userID == uuid.Nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid user_id format")
		}

		c.SetRequest(c.Request().WithContext(common.WithUserID(c.Request().Context(), userID)))
		return next(c)
	}
}
