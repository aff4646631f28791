package types

import (
	"time"
)

// Message types determine the fan-out rule applied after persistence.
const (
	MessageTypeDirect = "direct"
	MessageTypeCourse = "course"
	MessageTypeGroup  = "group"
)

// Real-time event types exchanged over the WebSocket channel
const (
	EventAuthenticate  = "authenticate"
	EventAuthenticated = "authenticated"
	EventError         = "error"
	EventMessage       = "message"
	EventNewMessage    = "new_message"
)

// User roles as stored on the users table
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
	RoleTA      = "ta"
)

// CloseAuthTimeout is the WebSocket close code sent when the handshake window
// expires before an authenticate event arrives.
const (
	CloseAuthTimeout       = 4000
	CloseAuthTimeoutReason = "Authentication timeout"
)

// Message is the persisted chat message. The JSON shape is shared by the
// history endpoint and the new_message push so clients can merge both.
type Message struct {
	ID              string    `json:"id" db:"id"`
	Seq             int64     `json:"-" db:"seq"`
	SenderID        string    `json:"senderId" db:"sender_id"`
	ReceiverID      *string   `json:"receiverId" db:"receiver_id"`
	CourseID        *string   `json:"courseId" db:"course_id"`
	Content         string    `json:"content" db:"content"`
	Type            string    `json:"type" db:"type"`
	IsRead          bool      `json:"isRead" db:"is_read"`
	ClientMessageID *string   `json:"clientMessageId,omitempty" db:"client_message_id"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// NewMessage is the input of a durable create. Both the real-time path and
// the HTTP path build one of these.
type NewMessage struct {
	SenderID        string `json:"senderId" validate:"required,identifier"`
	ReceiverID      string `json:"receiverId,omitempty" validate:"omitempty,identifier"`
	CourseID        string `json:"courseId,omitempty" validate:"omitempty,identifier"`
	Content         string `json:"content" validate:"required,max=10000"`
	Type            string `json:"type" validate:"required,message_type"`
	ClientMessageID string `json:"clientMessageId,omitempty" validate:"omitempty,max=128"`
}

// MessageFilter narrows a history fetch. CourseID wins over ReceiverID.
type MessageFilter struct {
	CourseID   string
	ReceiverID string
}

// User is the identity record owned by the persistence layer
type User struct {
	ID         string    `json:"id" db:"id" validate:"required,identifier"`
	Email      *string   `json:"email" db:"email" validate:"omitempty,email"`
	FirstName  *string   `json:"firstName" db:"first_name"`
	LastName   *string   `json:"lastName" db:"last_name"`
	Role       string    `json:"role" db:"role" validate:"required,oneof=student faculty admin ta"`
	Department *string   `json:"department" db:"department"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// Course groups members for course-scoped messages
type Course struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name" validate:"required,max=200"`
	Code         string    `json:"code" db:"code" validate:"required,max=50"`
	Description  *string   `json:"description" db:"description"`
	InstructorID string    `json:"instructorId" db:"instructor_id"`
	Status       string    `json:"status" db:"status" validate:"omitempty,oneof=active inactive draft"`
	Semester     string    `json:"semester" db:"semester" validate:"required"`
	Year         int       `json:"year" db:"year" validate:"required,gte=2000,lte=2100"`
	MaxStudents  *int      `json:"maxStudents" db:"max_students" validate:"omitempty,gt=0"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Enrollment links a student to a course
type Enrollment struct {
	ID         string    `json:"id" db:"id"`
	CourseID   string    `json:"courseId" db:"course_id"`
	StudentID  string    `json:"studentId" db:"student_id"`
	EnrolledAt time.Time `json:"enrolledAt" db:"enrolled_at"`
}

// CalendarEvent is a scheduled event checked for overlaps on creation
type CalendarEvent struct {
	ID          string    `json:"id" db:"id"`
	CourseID    *string   `json:"courseId" db:"course_id"`
	Title       string    `json:"title" db:"title" validate:"required,max=200"`
	Description *string   `json:"description" db:"description"`
	StartDate   time.Time `json:"startDate" db:"start_date" validate:"required"`
	EndDate     time.Time `json:"endDate" db:"end_date" validate:"required,gtefield=StartDate"`
	Location    *string   `json:"location" db:"location"`
	IsRecurring bool      `json:"isRecurring" db:"is_recurring"`
	CreatedBy   string    `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Envelope is decoded first to pick the concrete event type
type Envelope struct {
	Type string `json:"type"`
}

// AuthenticateEvent is the first event a client must send
type AuthenticateEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Token  string `json:"token,omitempty"`
}

// AuthenticatedEvent acknowledges a successful handshake
type AuthenticatedEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// ErrorEvent reports a protocol or persistence failure to one connection.
// Retryable is set when resending the same event may succeed.
type ErrorEvent struct {
	Type            string `json:"type"`
	Message         string `json:"message"`
	Retryable       bool   `json:"retryable,omitempty"`
	ClientMessageID string `json:"clientMessageId,omitempty"`
}

// MessageEvent is a client send over the real-time channel
type MessageEvent struct {
	Type            string `json:"type"`
	SenderID        string `json:"senderId"`
	ReceiverID      string `json:"receiverId,omitempty"`
	CourseID        string `json:"courseId,omitempty"`
	Content         string `json:"content"`
	MessageType     string `json:"messageType,omitempty"`
	ClientMessageID string `json:"clientMessageId,omitempty"`
}

// NewMessageEvent is the fan-out push delivered to recipients
type NewMessageEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

// ToNewMessage converts the wire event to a create input, defaulting the
// message type to direct.
func (e *MessageEvent) ToNewMessage() NewMessage {
	msgType := e.MessageType
	if msgType == "" {
		msgType = MessageTypeDirect
	}
	return NewMessage{
		SenderID:        e.SenderID,
		ReceiverID:      e.ReceiverID,
		CourseID:        e.CourseID,
		Content:         e.Content,
		Type:            msgType,
		ClientMessageID: e.ClientMessageID,
	}
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message}
}

func NewAuthenticatedEvent(userID string) AuthenticatedEvent {
	return AuthenticatedEvent{Type: EventAuthenticated, UserID: userID}
}

func NewMessageNotification(message *Message) NewMessageEvent {
	return NewMessageEvent{Type: EventNewMessage, Message: message}
}
