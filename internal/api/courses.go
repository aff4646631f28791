package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"portal/pkg/interfaces"
	"portal/pkg/types"
)

type courseApi struct {
	s *Server
}

func registerCourseAPI(g *echo.Group, s *Server) {
	a := courseApi{s: s}

	cg := g.Group("/courses")
	cg.POST("", a.create, s.requireRole(types.RoleFaculty, types.RoleAdmin))

	dg := cg.Group("/:id")
	dg.GET("", a.retrieve)
	dg.GET("/members", a.members)
	dg.POST("/enroll", a.enroll)
	dg.DELETE("/enroll", a.unenroll)
}

// CreateCourseRequest is the POST /api/courses body; the caller becomes the
// instructor
type CreateCourseRequest struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description *string `json:"description"`
	Semester    string  `json:"semester"`
	Year        int     `json:"year"`
	MaxStudents *int    `json:"maxStudents"`
}

// EnrollRequest names the student to enroll. Empty means the caller.
type EnrollRequest struct {
	StudentID string `json:"studentId"`
}

func (a *courseApi) create(c echo.Context) error {
	req := new(CreateCourseRequest)
	if err := c.Bind(req); err != nil {
		return err
	}

	course := &types.Course{
		Name:         req.Name,
		Code:         req.Code,
		Description:  req.Description,
		InstructorID: currentUser(c),
		Semester:     req.Semester,
		Year:         req.Year,
		MaxStudents:  req.MaxStudents,
	}
	if err := a.s.db.CreateCourse(c.Request().Context(), course); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, course)
}

func (a *courseApi) retrieve(c echo.Context) error {
	course, err := a.s.db.GetCourse(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, course)
}

func (a *courseApi) members(c echo.Context) error {
	members, err := a.s.db.CourseMemberIDs(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"members": members})
}

func (a *courseApi) enroll(c echo.Context) error {
	studentID, err := a.target(c)
	if err != nil {
		return err
	}

	enrollment, err := a.s.db.EnrollStudent(c.Request().Context(), c.Param("id"), studentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, enrollment)
}

func (a *courseApi) unenroll(c echo.Context) error {
	studentID, err := a.target(c)
	if err != nil {
		return err
	}

	if err := a.s.db.UnenrollStudent(c.Request().Context(), c.Param("id"), studentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// target resolves whose enrollment changes. Acting on someone else is
// reserved to the course instructor and admins.
func (a *courseApi) target(c echo.Context) (string, error) {
	req := new(EnrollRequest)
	if c.Request().ContentLength > 0 {
		if err := c.Bind(req); err != nil {
			return "", err
		}
	}

	caller := currentUser(c)
	if req.StudentID == "" || req.StudentID == caller {
		return caller, nil
	}
	if !types.IsValidID(req.StudentID) {
		return "", badRequest("invalid studentId")
	}

	ctx := c.Request().Context()
	course, err := a.s.db.GetCourse(ctx, c.Param("id"))
	if err != nil {
		return "", err
	}
	if course.InstructorID == caller {
		return req.StudentID, nil
	}

	user, err := a.s.db.GetUser(ctx, caller)
	if err != nil && !errors.Is(err, interfaces.ErrUserNotFound) {
		return "", err
	}
	if isAdmin(user) {
		return req.StudentID, nil
	}
	return "", errForbidden
}
