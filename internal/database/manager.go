package database

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	dbconfig "portal/pkg/database"
	"portal/pkg/interfaces"
	"portal/pkg/logger"
	"portal/pkg/types"
)

const defaultRetryDelay = 5 * time.Second

// Manager implements interfaces.DatabaseManager over sqlx
type Manager struct {
	db           *sqlx.DB
	config       *dbconfig.Config
	writeChannel chan writeOperation // TECHNICAL: Single-writer pattern for SQLite
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex // TECHNICAL: Protect closed status
	retryDelay   time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

type writeOperation struct {
	ctx       context.Context
	operation func(*sqlx.DB) error
	result    chan error
}

// NewManager opens the configured database and starts the writer goroutine
func NewManager(config *dbconfig.Config) (*Manager, error) {
	db, err := dbconfig.Open(config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
		retryDelay:   defaultRetryDelay,
		now:          time.Now,
		log:          logger.Component("database"),
	}

	// ARCHITECTURAL DISCOVERY: Single-writer goroutine prevents SQLite write contention
	manager.wg.Add(1)
	go manager.writeLoop()

	return manager, nil
}

// writeLoop processes all write operations in a single goroutine
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			op.result <- m.runWrite(op)

		case <-m.shutdown:
			m.log.Debug().Msg("database write loop shutting down")
			return
		}
	}
}

// runWrite executes one operation, retrying once after retryDelay when the
// failure is lock contention
func (m *Manager) runWrite(op writeOperation) error {
	if err := op.ctx.Err(); err != nil {
		return err
	}

	err := op.operation(m.db)
	if err == nil || !isTransient(err) {
		return err
	}

	m.log.Warn().Err(err).Dur("retry_in", m.retryDelay).Msg("database write failed, retrying")
	select {
	case <-time.After(m.retryDelay):
	case <-op.ctx.Done():
		return op.ctx.Err()
	}

	if err = op.operation(m.db); err != nil {
		m.log.Error().Err(err).Msg("database write failed after retry")
	}
	return err
}

// executeWrite queues a write operation and waits for completion
func (m *Manager) executeWrite(ctx context.Context, operation func(*sqlx.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrManagerClosed
	}
	m.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case m.writeChannel <- writeOperation{ctx: ctx, operation: operation, result: result}:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return ErrWriteTimeout
	case <-m.shutdown:
		return ErrShuttingDown
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.shutdown:
		return ErrShuttingDown
	}
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

const messageColumns = `id, seq, sender_id, receiver_id, course_id, content, type, is_read, client_message_id, created_at, updated_at`

// CreateMessage persists a message, collapsing repeats of the same
// (sender, clientMessageId) onto the first row
func (m *Manager) CreateMessage(ctx context.Context, in *types.NewMessage) (*types.Message, bool, error) {
	if err := in.Validate(); err != nil {
		return nil, false, err
	}

	var (
		out     *types.Message
		created bool
	)
	err := m.executeWrite(ctx, func(db *sqlx.DB) error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "failed to begin transaction")
		}
		defer func() { _ = tx.Rollback() }()

		if in.ClientMessageID != "" {
			existing, err := messageByClientKey(ctx, tx, in.SenderID, in.ClientMessageID)
			if err == nil {
				out, created = existing, false
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return errors.Wrap(err, "failed to look up client message id")
			}
		}

		now := m.timestamp()
		msg := &types.Message{
			ID:              uuid.NewString(),
			SenderID:        in.SenderID,
			ReceiverID:      optional(in.ReceiverID),
			CourseID:        optional(in.CourseID),
			Content:         in.Content,
			Type:            in.Type,
			ClientMessageID: optional(in.ClientMessageID),
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		// seq is assigned inside the writer transaction so ties on created_at
		// still order by insertion
		if err := tx.GetContext(ctx, &msg.Seq, "SELECT COALESCE(MAX(seq), 0) + 1 FROM messages"); err != nil {
			return errors.Wrap(err, "failed to allocate sequence")
		}

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO messages (`+messageColumns+`)
			VALUES (:id, :seq, :sender_id, :receiver_id, :course_id, :content, :type, :is_read, :client_message_id, :created_at, :updated_at)
		`, msg)
		if err != nil {
			if in.ClientMessageID != "" && isUniqueViolation(err) {
				// Another writer won the race for this key
				_ = tx.Rollback()
				existing, lookupErr := messageByClientKey(ctx, db, in.SenderID, in.ClientMessageID)
				if lookupErr != nil {
					return errors.Wrap(lookupErr, "failed to load concurrent duplicate")
				}
				out, created = existing, false
				return nil
			}
			return errors.Wrap(err, "failed to insert message")
		}

		if err := tx.Commit(); err != nil {
			return errors.Wrap(err, "failed to commit message")
		}
		out, created = msg, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

type rebindQueryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func messageByClientKey(ctx context.Context, q rebindQueryer, senderID, clientMessageID string) (*types.Message, error) {
	var msg types.Message
	err := sqlx.GetContext(ctx, q, &msg, q.Rebind(
		`SELECT `+messageColumns+` FROM messages WHERE sender_id = ? AND client_message_id = ?`),
		senderID, clientMessageID)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages returns the history visible to userID ordered by
// (created_at, seq) ascending
// FUNCTIONAL DISCOVERY: courseId wins over receiverId; with neither set the
// caller sees everything they sent or received
func (m *Manager) GetMessages(ctx context.Context, userID string, filter types.MessageFilter) ([]*types.Message, error) {
	var (
		where string
		args  []interface{}
	)
	switch {
	case filter.CourseID != "":
		where = "course_id = ?"
		args = []interface{}{filter.CourseID}
	case filter.ReceiverID != "":
		where = "(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)"
		args = []interface{}{userID, filter.ReceiverID, filter.ReceiverID, userID}
	default:
		where = "sender_id = ? OR receiver_id = ?"
		args = []interface{}{userID, userID}
	}

	query := m.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE ` + where + ` ORDER BY created_at ASC, seq ASC`)

	messages := []*types.Message{}
	if err := m.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to query messages")
	}
	return messages, nil
}

// MarkMessageRead flags a message read on behalf of its receiver
func (m *Manager) MarkMessageRead(ctx context.Context, messageID, userID string) error {
	return m.executeWrite(ctx, func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, db.Rebind(
			`UPDATE messages SET is_read = TRUE, updated_at = ? WHERE id = ? AND receiver_id = ?`),
			m.timestamp(), messageID, userID)
		if err != nil {
			return errors.Wrap(err, "failed to mark message read")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "failed to read affected rows")
		}
		if n == 0 {
			return interfaces.ErrMessageNotFound
		}
		return nil
	})
}

func (m *Manager) UnreadMessageCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := m.db.GetContext(ctx, &count, m.db.Rebind(
		`SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND is_read = FALSE`), userID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count unread messages")
	}
	return count, nil
}

const userColumns = `id, email, first_name, last_name, role, department, created_at, updated_at`

// GetUser returns interfaces.ErrUserNotFound for unknown ids
func (m *Manager) GetUser(ctx context.Context, userID string) (*types.User, error) {
	var user types.User
	err := m.db.GetContext(ctx, &user, m.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "failed to query user")
	}
	return &user, nil
}

// UpsertUser inserts the user or refreshes its profile fields, keeping created_at
func (m *Manager) UpsertUser(ctx context.Context, user *types.User) error {
	if user.Role == "" {
		user.Role = types.RoleStudent
	}
	if err := user.Validate(); err != nil {
		return err
	}

	return m.executeWrite(ctx, func(db *sqlx.DB) error {
		now := m.timestamp()
		user.UpdatedAt = now
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}

		_, err := db.NamedExecContext(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES (:id, :email, :first_name, :last_name, :role, :department, :created_at, :updated_at)
			ON CONFLICT (id) DO UPDATE SET
				email = excluded.email,
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				role = excluded.role,
				department = excluded.department,
				updated_at = excluded.updated_at
		`, user)
		if err != nil {
			return errors.Wrap(err, "failed to upsert user")
		}

		// Reload created_at for existing rows
		return errors.Wrap(db.GetContext(ctx, &user.CreatedAt,
			db.Rebind(`SELECT created_at FROM users WHERE id = ?`), user.ID), "failed to reload user")
	})
}

const courseColumns = `id, name, code, description, instructor_id, status, semester, year, max_students, created_at, updated_at`

func (m *Manager) CreateCourse(ctx context.Context, course *types.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.Status == "" {
		course.Status = "active"
	}
	if err := course.Validate(); err != nil {
		return err
	}

	return m.executeWrite(ctx, func(db *sqlx.DB) error {
		now := m.timestamp()
		course.CreatedAt, course.UpdatedAt = now, now

		_, err := db.NamedExecContext(ctx, `
			INSERT INTO courses (`+courseColumns+`)
			VALUES (:id, :name, :code, :description, :instructor_id, :status, :semester, :year, :max_students, :created_at, :updated_at)
		`, course)
		switch {
		case err == nil:
			return nil
		case isForeignKeyViolation(err):
			return interfaces.ErrUserNotFound
		default:
			return errors.Wrap(err, "failed to insert course")
		}
	})
}

func (m *Manager) GetCourse(ctx context.Context, courseID string) (*types.Course, error) {
	var course types.Course
	err := m.db.GetContext(ctx, &course, m.db.Rebind(`SELECT `+courseColumns+` FROM courses WHERE id = ?`), courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrCourseNotFound
		}
		return nil, errors.Wrap(err, "failed to query course")
	}
	return &course, nil
}

// CourseMemberIDs returns the instructor followed by enrolled students
func (m *Manager) CourseMemberIDs(ctx context.Context, courseID string) ([]string, error) {
	var instructorID string
	err := m.db.GetContext(ctx, &instructorID, m.db.Rebind(`SELECT instructor_id FROM courses WHERE id = ?`), courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrCourseNotFound
		}
		return nil, errors.Wrap(err, "failed to query course instructor")
	}

	var students []string
	err = m.db.SelectContext(ctx, &students, m.db.Rebind(
		`SELECT student_id FROM course_enrollments WHERE course_id = ? ORDER BY enrolled_at ASC`), courseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query enrollments")
	}

	return lo.Uniq(append([]string{instructorID}, students...)), nil
}

func (m *Manager) EnrollStudent(ctx context.Context, courseID, studentID string) (*types.Enrollment, error) {
	if _, err := m.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}

	enrollment := &types.Enrollment{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		StudentID: studentID,
	}
	err := m.executeWrite(ctx, func(db *sqlx.DB) error {
		enrollment.EnrolledAt = m.timestamp()
		_, err := db.NamedExecContext(ctx, `
			INSERT INTO course_enrollments (id, course_id, student_id, enrolled_at)
			VALUES (:id, :course_id, :student_id, :enrolled_at)
		`, enrollment)
		switch {
		case err == nil:
			return nil
		case isUniqueViolation(err):
			return interfaces.ErrAlreadyEnrolled
		case isForeignKeyViolation(err):
			return interfaces.ErrUserNotFound
		default:
			return errors.Wrap(err, "failed to insert enrollment")
		}
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (m *Manager) UnenrollStudent(ctx context.Context, courseID, studentID string) error {
	return m.executeWrite(ctx, func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, db.Rebind(
			`DELETE FROM course_enrollments WHERE course_id = ? AND student_id = ?`), courseID, studentID)
		if err != nil {
			return errors.Wrap(err, "failed to delete enrollment")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "failed to read affected rows")
		}
		if n == 0 {
			return interfaces.ErrNotEnrolled
		}
		return nil
	})
}

const eventColumns = `id, course_id, title, description, start_date, end_date, location, is_recurring, created_by, created_at, updated_at`

func (m *Manager) CreateEvent(ctx context.Context, event *types.CalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.StartDate = event.StartDate.UTC().Truncate(time.Microsecond)
	event.EndDate = event.EndDate.UTC().Truncate(time.Microsecond)
	if err := event.Validate(); err != nil {
		return err
	}

	return m.executeWrite(ctx, func(db *sqlx.DB) error {
		now := m.timestamp()
		event.CreatedAt, event.UpdatedAt = now, now

		_, err := db.NamedExecContext(ctx, `
			INSERT INTO events (`+eventColumns+`)
			VALUES (:id, :course_id, :title, :description, :start_date, :end_date, :location, :is_recurring, :created_by, :created_at, :updated_at)
		`, event)
		switch {
		case err == nil:
			return nil
		case isForeignKeyViolation(err):
			return interfaces.ErrCourseNotFound
		default:
			return errors.Wrap(err, "failed to insert event")
		}
	})
}

// ListEvents returns events ordered by start; an empty courseID lists all
func (m *Manager) ListEvents(ctx context.Context, courseID string) ([]*types.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var args []interface{}
	if courseID != "" {
		query += ` WHERE course_id = ?`
		args = append(args, courseID)
	}
	query += ` ORDER BY start_date ASC`

	events := []*types.CalendarEvent{}
	if err := m.db.SelectContext(ctx, &events, m.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}
	return events, nil
}

// CheckEventConflicts returns events whose closed interval overlaps [start, end]
func (m *Manager) CheckEventConflicts(ctx context.Context, start, end time.Time, excludeID string) ([]*types.CalendarEvent, error) {
	start = start.UTC().Truncate(time.Microsecond)
	end = end.UTC().Truncate(time.Microsecond)

	// Anything starting after end cannot overlap
	candidates := []*types.CalendarEvent{}
	err := m.db.SelectContext(ctx, &candidates, m.db.Rebind(
		`SELECT `+eventColumns+` FROM events WHERE start_date <= ? AND id <> ? ORDER BY start_date ASC`),
		end, excludeID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}

	return lo.Filter(candidates, func(e *types.CalendarEvent, _ int) bool {
		return types.Overlaps(e.StartDate, e.EndDate, start, end)
	}), nil
}

// HealthCheck validates database connectivity
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "database ping failed")
	}

	var n int
	if err := m.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM messages"); err != nil {
		return errors.Wrap(err, "database read test failed")
	}
	return nil
}

// GetDB returns the underlying connection for migrations
func (m *Manager) GetDB() *sqlx.DB {
	return m.db
}

// Close stops the writer and closes the pool
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close database")
	}
	return nil
}
