package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

// requiredColumns is the column set the database manager reads and writes
var requiredColumns = map[string][]string{
	"users":              {"id", "email", "first_name", "last_name", "role", "department", "created_at", "updated_at"},
	"courses":            {"id", "name", "code", "description", "instructor_id", "status", "semester", "year", "max_students", "created_at", "updated_at"},
	"course_enrollments": {"id", "course_id", "student_id", "enrolled_at"},
	"messages":           {"id", "seq", "sender_id", "receiver_id", "course_id", "content", "type", "is_read", "client_message_id", "created_at", "updated_at"},
	"events":             {"id", "course_id", "title", "description", "start_date", "end_date", "location", "is_recurring", "created_by", "created_at", "updated_at"},
	"schema_migrations":  {"version", "applied_at"},
}

// requiredIndexes back the idempotency key, history ordering and membership lookups
var requiredIndexes = []string{
	"idx_messages_seq",
	"idx_messages_client_key",
	"idx_messages_sender_time",
	"idx_messages_receiver_time",
	"idx_messages_course_time",
	"idx_enrollments_student",
	"idx_events_start",
}

// SchemaValidator provides database schema validation functionality
// ARCHITECTURAL DISCOVERY: Separate validation component enables testing
// and deployment verification without coupling to migration system
type SchemaValidator struct {
	db *sqlx.DB
}

func NewSchemaValidator(db *sqlx.DB) *SchemaValidator {
	return &SchemaValidator{db: db}
}

// ValidateAll runs every check
func (v *SchemaValidator) ValidateAll() error {
	if err := v.ValidateTableStructure(); err != nil {
		return err
	}
	return v.ValidateIndexes()
}

// ValidateTableStructure verifies each table exists with the expected columns.
// TECHNICAL DISCOVERY: Reading the column list of an empty result set works the
// same on sqlite and postgres, unlike their catalog tables.
func (v *SchemaValidator) ValidateTableStructure() error {
	for table, expected := range requiredColumns {
		columns, err := v.columns(table)
		if err != nil {
			return fmt.Errorf("required table %s is not readable: %w", table, err)
		}
		if missing, _ := lo.Difference(expected, columns); len(missing) > 0 {
			return fmt.Errorf("table %s is missing columns %v", table, missing)
		}
	}
	return nil
}

// ValidateIndexes verifies the required indexes exist
func (v *SchemaValidator) ValidateIndexes() error {
	for _, index := range requiredIndexes {
		exists, err := v.indexExists(index)
		if err != nil {
			return fmt.Errorf("error checking index %s: %w", index, err)
		}
		if !exists {
			return fmt.Errorf("required index %s does not exist", index)
		}
	}
	return nil
}

func (v *SchemaValidator) columns(table string) ([]string, error) {
	// table names come from requiredColumns, never from input
	rows, err := v.db.Query(fmt.Sprintf("SELECT * FROM %s LIMIT 0", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

func (v *SchemaValidator) indexExists(name string) (bool, error) {
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?"
	if v.db.DriverName() == DriverPostgres {
		query = "SELECT COUNT(*) FROM pg_indexes WHERE indexname = ?"
	}

	var count int
	if err := v.db.Get(&count, v.db.Rebind(query), name); err != nil {
		return false, err
	}
	return count > 0, nil
}
