package user

// Status is the lifecycle state of an account. Only active accounts pass
// authorization, whatever their role grants.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
	StatusLocked    Status = "locked"
	StatusDeleted   Status = "deleted"
)

func (s Status) IsActive() bool {
	return s == StatusActive
}

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusSuspended, StatusLocked, StatusDeleted:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Statuses lists every known status.
func Statuses() []string {
	return []string{
		string(StatusActive),
		string(StatusPending),
		string(StatusSuspended),
		string(StatusLocked),
		string(StatusDeleted),
	}
}
