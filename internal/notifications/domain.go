package notifications

import "time"

// Kind classifies a notification for rendering.
type Kind string

const (
	KindRequestReceived  Kind = "request.received"
	KindRequestAssigned  Kind = "request.assigned"
	KindContactMessage   Kind = "contact.message"
	KindAccountEvent     Kind = "account.event"
	KindPropertyApproved Kind = "property.approved"
)

// Notification is a row in a user's in-app inbox.
type Notification struct {
	ID        int64
	UserID    int64
	Kind      Kind
	Title     string
	Body      string
	Link      string
	ReadAt    *time.Time
	CreatedAt time.Time
}

// ListFilters narrows a user's inbox listing.
type ListFilters struct {
	UnreadOnly bool
	Page       int
	PerPage    int
}
