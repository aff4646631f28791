package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"portal/pkg/types"
)

type userApi struct {
	s *Server
}

func registerUserAPI(g *echo.Group, s *Server) {
	a := userApi{s: s}

	ug := g.Group("/users")
	ug.POST("", a.upsert)
	ug.GET("/me", a.me)
}

// UpsertUserRequest updates the caller's own profile
type UpsertUserRequest struct {
	Email      *string `json:"email"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Role       string  `json:"role"`
	Department *string `json:"department"`
}

func (a *userApi) upsert(c echo.Context) error {
	req := new(UpsertUserRequest)
	if err := c.Bind(req); err != nil {
		return err
	}

	user := &types.User{
		ID:         currentUser(c),
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		Department: req.Department,
	}
	if err := a.s.db.UpsertUser(c.Request().Context(), user); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (a *userApi) me(c echo.Context) error {
	user, err := a.s.db.GetUser(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
