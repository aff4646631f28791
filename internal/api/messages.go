package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"portal/pkg/types"
)

// IdempotencyKeyHeader carries the client message id on HTTP creates
const IdempotencyKeyHeader = "Idempotency-Key"

type messageApi struct {
	s *Server
}

func registerMessageAPI(g *echo.Group, s *Server) {
	a := messageApi{s: s}

	mg := g.Group("/messages")
	mg.GET("", a.list)
	mg.POST("", a.create)
	mg.GET("/unread-count", a.unreadCount)
	mg.PATCH("/:id/read", a.markRead)
}

// CreateMessageRequest is the POST /api/messages body. The sender is always
// the authenticated caller.
type CreateMessageRequest struct {
	Content         string `json:"content"`
	Type            string `json:"type"`
	ReceiverID      string `json:"receiverId"`
	CourseID        string `json:"courseId"`
	ClientMessageID string `json:"clientMessageId"`
}

func (a *messageApi) list(c echo.Context) error {
	filter := types.MessageFilter{
		CourseID:   c.QueryParam("courseId"),
		ReceiverID: c.QueryParam("receiverId"),
	}
	messages, err := a.s.db.GetMessages(c.Request().Context(), currentUser(c), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messages)
}

// create persists a message and fans it out when the row is new. A repeated
// key returns the original row with 200 and pushes nothing.
func (a *messageApi) create(c echo.Context) error {
	req := new(CreateMessageRequest)
	if err := c.Bind(req); err != nil {
		return err
	}

	key := req.ClientMessageID
	if header := c.Request().Header.Get(IdempotencyKeyHeader); header != "" {
		if key != "" && key != header {
			return errKeyMismatch
		}
		key = header
	}

	msgType := req.Type
	if msgType == "" {
		msgType = types.MessageTypeDirect
	}

	input := &types.NewMessage{
		SenderID:        currentUser(c),
		ReceiverID:      req.ReceiverID,
		CourseID:        req.CourseID,
		Content:         req.Content,
		Type:            msgType,
		ClientMessageID: key,
	}

	msg, created, err := a.s.db.CreateMessage(c.Request().Context(), input)
	if err != nil {
		return err
	}

	if !created {
		return c.JSON(http.StatusOK, msg)
	}

	delivered := a.s.dispatcher.FanOut(c.Request().Context(), msg)
	a.s.log.Info().
		Str("message_id", msg.ID).
		Str("user_id", msg.SenderID).
		Int("delivered", delivered).
		Msg("message created over http")
	return c.JSON(http.StatusCreated, msg)
}

func (a *messageApi) markRead(c echo.Context) error {
	if err := a.s.db.MarkMessageRead(c.Request().Context(), c.Param("id"), currentUser(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *messageApi) unreadCount(c echo.Context) error {
	count, err := a.s.db.UnreadMessageCount(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}
