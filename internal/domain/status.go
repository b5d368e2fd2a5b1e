package domain

import "strings"

// Status represents where a card sits in its lifecycle.
type Status string

const (
	StatusUnknown Status = ""
	StatusIdea    Status = "idea"
	StatusActive  Status = "active"
	StatusDone    Status = "done"
)

// DefaultStatus is assigned to new cards and to persisted cards with a missing
// or unrecognised status.
const DefaultStatus = StatusIdea

var statusCycle = []Status{StatusIdea, StatusActive, StatusDone}

var validStatuses = map[Status]struct{}{
	StatusIdea:   {},
	StatusActive: {},
	StatusDone:   {},
}

// ParseStatus normalises and validates an incoming status string.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if status == StatusUnknown {
		return StatusUnknown, invalidStatusError("blank")
	}
	if _, ok := validStatuses[status]; !ok {
		return StatusUnknown, invalidStatusError(raw)
	}
	return status, nil
}

// Validate ensures the status is one of idea, active or done.
func (s Status) Validate() error {
	if _, ok := validStatuses[s]; !ok {
		return invalidStatusError(string(s))
	}
	return nil
}

// Next returns the status that follows s in the idea -> active -> done cycle.
// Invalid statuses restart the cycle.
func (s Status) Next() Status {
	for i, candidate := range statusCycle {
		if candidate == s {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return DefaultStatus
}

// Statuses returns the supported statuses in display order.
func Statuses() []Status {
	return append([]Status(nil), statusCycle...)
}
