package task

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireTime is the layout used for every timestamp on the wire.
const wireTime = "2006-01-02T15:04:05.000Z07:00"

// Accepted dueDate layouts, tried in order. A bare date is midnight UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatTime renders t in UTC with millisecond precision. The zero time
// renders as the empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(wireTime)
}

// ParseTime parses an ISO-8601 date or date-time.
func ParseTime(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = normalizeTime(t)
			// The zero time means "unset" everywhere else.
			if t.IsZero() {
				return time.Time{}, fmt.Errorf("%q is out of range", v)
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 date", v)
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// CreateTask is the accepted shape for a new task. Status may be empty;
// stores apply DefaultStatus.
type CreateTask struct {
	Title       string
	Description string
	DueDate     time.Time
	Status      Status
}

// Validate checks required fields and the status enumeration.
func (c CreateTask) Validate() error {
	if c.Title == "" {
		return missing("title")
	}
	if c.DueDate.IsZero() {
		return missing("dueDate")
	}
	if c.Status != "" && !c.Status.Valid() {
		return invalidStatus(string(c.Status))
	}
	return nil
}

type createWire struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	DueDate     string  `json:"dueDate"`
	Status      *string `json:"status,omitempty"`
}

func (c *CreateTask) UnmarshalJSON(b []byte) error {
	var w createWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*c = CreateTask{Title: w.Title, Description: w.Description}
	if w.DueDate != "" {
		d, err := ParseTime(w.DueDate)
		if err != nil {
			return &ValidationError{Field: "dueDate", Reason: err.Error()}
		}
		c.DueDate = d
	}
	if w.Status != nil {
		c.Status = Status(*w.Status)
	}
	return nil
}

func (c CreateTask) MarshalJSON() ([]byte, error) {
	w := createWire{
		Title:       c.Title,
		Description: c.Description,
		DueDate:     FormatTime(c.DueDate),
	}
	if c.Status != "" {
		s := string(c.Status)
		w.Status = &s
	}
	return json.Marshal(w)
}

// UpdateTask is a partial patch. Nil fields are left untouched.
type UpdateTask struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Status      *Status
}

// IsEmpty reports whether the patch changes no field.
func (u UpdateTask) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.DueDate == nil && u.Status == nil
}

// Validate rejects a patch that would break a task invariant.
func (u UpdateTask) Validate() error {
	if u.Title != nil && *u.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if u.DueDate != nil && u.DueDate.IsZero() {
		return &ValidationError{Field: "dueDate", Reason: "must not be empty"}
	}
	if u.Status != nil && !u.Status.Valid() {
		return invalidStatus(string(*u.Status))
	}
	return nil
}

// Apply merges the patch into t.
func (u UpdateTask) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.DueDate != nil {
		t.DueDate = normalizeTime(*u.DueDate)
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
}

type updateWire struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (u *UpdateTask) UnmarshalJSON(b []byte) error {
	var w updateWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*u = UpdateTask{Title: w.Title, Description: w.Description}
	if w.DueDate != nil {
		d, err := ParseTime(*w.DueDate)
		if err != nil {
			return &ValidationError{Field: "dueDate", Reason: err.Error()}
		}
		u.DueDate = &d
	}
	if w.Status != nil {
		s := Status(*w.Status)
		u.Status = &s
	}
	return nil
}

func (u UpdateTask) MarshalJSON() ([]byte, error) {
	w := updateWire{Title: u.Title, Description: u.Description}
	if u.DueDate != nil {
		d := FormatTime(*u.DueDate)
		w.DueDate = &d
	}
	if u.Status != nil {
		s := string(*u.Status)
		w.Status = &s
	}
	return json.Marshal(w)
}
