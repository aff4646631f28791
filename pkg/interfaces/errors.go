package interfaces

import "errors"

// Common persistence errors used across components
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrAlreadyEnrolled  = errors.New("student already enrolled in course")
	ErrNotEnrolled      = errors.New("student not enrolled in course")
	ErrScheduleConflict = errors.New("schedule conflict detected")
)
