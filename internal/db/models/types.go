package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PlatformResourceID is the synthetic root of the resource hierarchy.
// Role assignments at this scope apply platform-wide.
const PlatformResourceID = "platform"

// StringSlice stores an ordered string set as a JSON column, portable
// across PostgreSQL and SQLite.
type StringSlice []string

// Scan implements sql.Scanner for reading from database
func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan StringSlice: expected []byte or string, got %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements driver.Valuer for writing to database
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Contains reports whether the slice holds the given element.
func (s StringSlice) Contains(v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// Metadata stores free-form key/value annotations as a JSON column.
type Metadata map[string]any

// Scan implements sql.Scanner for reading from database
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan Metadata: expected []byte or string, got %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer for writing to database
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}
