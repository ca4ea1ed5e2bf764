package fmi2

import "fmt"

// Status is the fmi2Status code returned to the host.
type Status int

const (
	OK Status = iota
	Warning
	Discard
	Error
	Fatal
	Pending
)

var statusNames = [...]string{"ok", "warning", "discard", "error", "fatal", "pending"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus parses a status name such as "warning".
func ParseStatus(s string) (Status, error) {
	n := Normalize(s)
	if n == "" {
		return OK, nil
	}
	for i, name := range statusNames {
		if name == n {
			return Status(i), nil
		}
	}
	return 0, &ParseError{Kind: "status", Token: s}
}

// Worse returns the more severe of two statuses. Pending ranks below
// Discard since it only signals an asynchronous step in progress.
func Worse(a, b Status) Status {
	if severity(b) > severity(a) {
		return b
	}
	return a
}

func severity(s Status) int {
	switch s {
	case OK:
		return 0
	case Warning:
		return 1
	case Pending:
		return 2
	case Discard:
		return 3
	case Error:
		return 4
	case Fatal:
		return 5
	}
	return 5
}
