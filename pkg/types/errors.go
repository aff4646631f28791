package types

import "errors"

// Specific error types enable proper error handling and user-friendly
// messages on both the real-time and HTTP surfaces
var (
	ErrEmptyContent       = errors.New("message content cannot be empty")
	ErrInvalidMessageType = errors.New("message type must be one of direct, course, group")
	ErrDirectTarget       = errors.New("direct message requires receiverId and no courseId")
	ErrCourseTarget       = errors.New("course message requires courseId and no receiverId")
	ErrGroupTarget        = errors.New("group message requires exactly one of receiverId or courseId")
)
