package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"portal/pkg/types"
)

type eventApi struct {
	s *Server
}

func registerEventAPI(g *echo.Group, s *Server) {
	a := eventApi{s: s}

	eg := g.Group("/events")
	eg.GET("", a.list)
	eg.POST("", a.create)
	eg.GET("/conflicts", a.conflicts)
}

// CreateEventRequest is the POST /api/events body
type CreateEventRequest struct {
	CourseID    *string   `json:"courseId"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Location    *string   `json:"location"`
	IsRecurring bool      `json:"isRecurring"`
}

// ConflictResponse is the 409 body of a rejected event
type ConflictResponse struct {
	Message   string                 `json:"message"`
	Conflicts []*types.CalendarEvent `json:"conflicts"`
}

func (a *eventApi) list(c echo.Context) error {
	events, err := a.s.db.ListEvents(c.Request().Context(), c.QueryParam("courseId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

// create refuses an event that overlaps any existing one
func (a *eventApi) create(c echo.Context) error {
	req := new(CreateEventRequest)
	if err := c.Bind(req); err != nil {
		return err
	}

	event := &types.CalendarEvent{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Location:    req.Location,
		IsRecurring: req.IsRecurring,
		CreatedBy:   currentUser(c),
	}
	if err := c.Validate(event); err != nil {
		return err
	}

	ctx := c.Request().Context()
	conflicts, err := a.s.db.CheckEventConflicts(ctx, event.StartDate, event.EndDate, "")
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return c.JSON(http.StatusConflict, ConflictResponse{
			Message:   "Schedule conflict detected",
			Conflicts: conflicts,
		})
	}

	if err := a.s.db.CreateEvent(ctx, event); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, event)
}

func (a *eventApi) conflicts(c echo.Context) error {
	start, err := time.Parse(time.RFC3339, c.QueryParam("startDate"))
	if err != nil {
		return badRequest("startDate must be an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("endDate"))
	if err != nil {
		return badRequest("endDate must be an RFC 3339 timestamp")
	}
	if end.Before(start) {
		return badRequest("endDate must not be before startDate")
	}

	conflicts, err := a.s.db.CheckEventConflicts(c.Request().Context(), start, end, c.QueryParam("excludeId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conflicts)
}
