package interfaces

//go:generate go run go.uber.org/mock/mockgen -source=database.go -destination=../../internal/mocks/mock_database.go -package=mocks

import (
	"context"
	"time"

	"portal/pkg/types"
)

// PersistenceGateway is the durable store the real-time core depends on.
// ARCHITECTURAL DISCOVERY: The core only needs create/read for messages plus
// identity and membership lookups, so it is kept separate from the CRUD surface.
type PersistenceGateway interface {
	// CreateMessage persists a message. When ClientMessageID is set and a row
	// with the same sender and key exists, that row is returned with
	// created=false and nothing is inserted.
	CreateMessage(ctx context.Context, msg *types.NewMessage) (*types.Message, bool, error)

	// GetMessages returns history visible to userID in ascending
	// (createdAt, insertion) order
	GetMessages(ctx context.Context, userID string, filter types.MessageFilter) ([]*types.Message, error)

	// GetUser returns ErrUserNotFound for unknown ids
	GetUser(ctx context.Context, userID string) (*types.User, error)

	// CourseMemberIDs returns the instructor and enrolled students of a course
	CourseMemberIDs(ctx context.Context, courseID string) ([]string, error)
}

// DatabaseManager is the full store used by the REST surface
type DatabaseManager interface {
	PersistenceGateway

	UpsertUser(ctx context.Context, user *types.User) error

	CreateCourse(ctx context.Context, course *types.Course) error
	GetCourse(ctx context.Context, courseID string) (*types.Course, error)
	EnrollStudent(ctx context.Context, courseID, studentID string) (*types.Enrollment, error)
	UnenrollStudent(ctx context.Context, courseID, studentID string) error

	// MarkMessageRead only succeeds for the message's receiver
	MarkMessageRead(ctx context.Context, messageID, userID string) error
	UnreadMessageCount(ctx context.Context, userID string) (int, error)

	CreateEvent(ctx context.Context, event *types.CalendarEvent) error
	ListEvents(ctx context.Context, courseID string) ([]*types.CalendarEvent, error)

	// CheckEventConflicts returns events overlapping [start, end], skipping excludeID
	CheckEventConflicts(ctx context.Context, start, end time.Time, excludeID string) ([]*types.CalendarEvent, error)

	// HealthCheck verifies database connectivity and basic operations
	HealthCheck(ctx context.Context) error

	// Close closes the database connection and cleans up resources
	// TECHNICAL DISCOVERY: Synchronous close ensures all pending writes
	// complete before application shutdown
	Close() error
}
