package docbuilder

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the aggregate state of a subsection.
type Status int

// Subsection statuses.
const (
	StatusPending       Status = 10
	StatusReady         Status = 20
	StatusExcluding     Status = 30
	StatusNotApplicable Status = 40
)

// Statuses lists every status in ascending order.
var Statuses = []Status{StatusPending, StatusReady, StatusExcluding, StatusNotApplicable}

// String returns the upper-case status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusReady:
		return "READY"
	case StatusExcluding:
		return "EXCLUDING"
	case StatusNotApplicable:
		return "NOT_APPLICABLE"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Resolved reports whether the status no longer needs user input.
func (s Status) Resolved() bool {
	return s == StatusReady || s == StatusExcluding || s == StatusNotApplicable
}

// ParseStatus accepts a status name or its numeric code.
func ParseStatus(value string) (Status, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	for _, status := range Statuses {
		if trimmed == status.String() || trimmed == fmt.Sprintf("%d", int(status)) {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown subsection status: %s", value)
}

// MarshalJSON encodes the numeric code.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}

// UnmarshalJSON accepts either the numeric code or the name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		parsed, err := ParseStatus(fmt.Sprintf("%d", code))
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("invalid subsection status %s", string(data))
	}
	parsed, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
