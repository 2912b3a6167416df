package domain

// Status is the tri-state outcome of a simulated transaction.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusReverted Status = "reverted"
	StatusUnknown  Status = "unknown"
)

// String returns the string representation of Status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s Status) IsValid() bool {
	return s == StatusSuccess || s == StatusReverted || s == StatusUnknown
}
