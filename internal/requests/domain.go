package requests

import "time"

// Status tracks a service request through the back-office.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

// Request is a persisted property service request submitted through the
// public intake form.
type Request struct {
	ID            int64
	Token         string
	Service       string
	PropertyUsage string
	PropertyType  string
	FacilityName  string
	ActivityType  string
	Name          string
	Phone         string
	Email         string
	ContactMethod string
	City          string
	Notes         string
	Status        Status
	AssignedTo    *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ListFilters narrows the staff request listing.
type ListFilters struct {
	Status     Status
	AssignedTo int64
	Page       int
	PerPage    int
}
