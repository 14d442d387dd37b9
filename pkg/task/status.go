package task

// Status is the lifecycle label of a task. The string values are the wire
// and storage representation; every tier uses this one type.
type Status string

const (
	StatusTodo       Status = "To-Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// DefaultStatus is applied by stores when a task is created without one.
const DefaultStatus = StatusTodo

var statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Statuses returns the enumeration in declaration order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// Valid reports whether s is one of the enumerated values.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus matches v exactly against the enumeration.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", invalidStatus(v)
	}
	return s, nil
}
