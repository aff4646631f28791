package types

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Regex compiled once at package initialization
var identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report JSON field names so errors match what clients sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return IsValidID(fl.Field().String())
	})
	_ = v.RegisterValidation("message_type", func(fl validator.FieldLevel) bool {
		return IsValidMessageType(fl.Field().String())
	})
	return v
}

// Validator exposes the shared validator so the API layer binds requests
// with the same custom tags.
func Validator() *validator.Validate {
	return validate
}

// IsValidID checks user, course and message identifiers. 1-64 characters
// covers both uuids and provider subject ids.
func IsValidID(id string) bool {
	if len(id) < 1 || len(id) > 64 {
		return false
	}
	return identifierRegex.MatchString(id)
}

// IsValidMessageType checks the message type against the three fan-out kinds
func IsValidMessageType(msgType string) bool {
	switch msgType {
	case MessageTypeDirect, MessageTypeCourse, MessageTypeGroup:
		return true
	default:
		return false
	}
}

// Validate checks field constraints and the target invariant: a direct
// message names exactly a receiver, a course message exactly a course, and a
// group message exactly one of the two.
func (m *NewMessage) Validate() error {
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	if err := validate.Struct(m); err != nil {
		return err
	}

	hasReceiver := m.ReceiverID != ""
	hasCourse := m.CourseID != ""

	switch m.Type {
	case MessageTypeDirect:
		if !hasReceiver || hasCourse {
			return ErrDirectTarget
		}
	case MessageTypeCourse:
		if !hasCourse || hasReceiver {
			return ErrCourseTarget
		}
	case MessageTypeGroup:
		if hasReceiver == hasCourse {
			return ErrGroupTarget
		}
	default:
		return ErrInvalidMessageType
	}

	return nil
}

func (u *User) Validate() error {
	return validate.Struct(u)
}

func (c *Course) Validate() error {
	return validate.Struct(c)
}

func (e *CalendarEvent) Validate() error {
	return validate.Struct(e)
}

// Overlaps reports whether two closed intervals intersect. It matches the
// three conflict conditions of the calendar: b contains a's start, b contains
// a's end, or a contains b.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	containsStart := !bStart.After(aStart) && !bEnd.Before(aStart)
	containsEnd := !bStart.After(aEnd) && !bEnd.Before(aEnd)
	encloses := !bStart.Before(aStart) && !bEnd.After(aEnd)
	return containsStart || containsEnd || encloses
}
