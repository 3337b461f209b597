package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/user"
)

// roleMiddleware only lets through users whose role is in the given set.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func managerMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleManager)
}

func staffMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleEducator, user.RoleManager)
}
