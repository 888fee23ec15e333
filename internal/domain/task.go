package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Task is the persisted todo record. The JSON shape is the on-disk format.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// NewTask is the input for creating a task. A zero CreatedAt means "now".
type NewTask struct {
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
}

// TaskPatch is a partial update: nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// IsEmpty reports whether the patch carries no field at all.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// TaskFilter narrows List results. Zero value matches everything.
type TaskFilter struct {
	Completed *bool
	Query     string
}

// Timestamp normalises t to UTC with second precision, the stored form.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp reads RFC 3339 as well as the looser ISO 8601 forms older
// files contain: space separator, missing zone, date only.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: use RFC3339 or YYYY-MM-DD", s)
}

// UnmarshalJSON decodes a stored task. Timestamps that match no known layout
// decode as zero (created_at) or absent (completed_at) so one odd record does
// not make the whole file unreadable.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var raw struct {
		plain
		CreatedAt   *string `json:"created_at"`
		CompletedAt *string `json:"completed_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task(raw.plain)
	t.CreatedAt = time.Time{}
	t.CompletedAt = nil
	if raw.CreatedAt != nil {
		t.CreatedAt, _ = ParseTimestamp(*raw.CreatedAt)
	}
	if raw.CompletedAt != nil {
		if ts, err := ParseTimestamp(*raw.CompletedAt); err == nil {
			t.CompletedAt = &ts
		}
	}
	return nil
}
