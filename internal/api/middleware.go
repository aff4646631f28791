package api

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"portal/internal/auth"
	"portal/pkg/interfaces"
	"portal/pkg/types"
)

const ctxUserID = "userID"

// authenticate resolves the caller with the same authenticator the socket
// handshake uses
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claimed, token := auth.RequestCredentials(s.authenticator.Mode(), c.Request())
		if claimed == "" && token == "" {
			return errUnauthenticated
		}

		userID, err := s.authenticator.Authenticate(c.Request().Context(), claimed, token)
		if err != nil {
			return err
		}
		c.Set(ctxUserID, userID)
		return next(c)
	}
}

// requireRole admits callers whose stored role is one of roles
func (s *Server) requireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := s.db.GetUser(c.Request().Context(), currentUser(c))
			if err != nil {
				if errors.Is(err, interfaces.ErrUserNotFound) {
					return errForbidden
				}
				return err
			}
			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return errForbidden
		}
	}
}

func currentUser(c echo.Context) string {
	userID, _ := c.Get(ctxUserID).(string)
	return userID
}

func isAdmin(user *types.User) bool {
	return user != nil && user.Role == types.RoleAdmin
}
