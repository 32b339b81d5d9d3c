package clients

import "time"

// Client is a CRM record for a buyer, seller or tenant the brokerage works
// with. It may link to a portal account but usually does not.
type Client struct {
	ID        int64
	Name      string
	Phone     string
	Email     string
	City      string
	Notes     string
	AgentID   *int64
	UserID    *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilters narrows the directory listing.
type ListFilters struct {
	Query   string
	AgentID int64
	Page    int
	PerPage int
}

// Input carries the editable fields through create and update.
type Input struct {
	Name  string `validate:"required,min=2,max=200"`
	Phone string `validate:"required"`
	Email string `validate:"omitempty,email"`
	City  string `validate:"max=120"`
	Notes string `validate:"max=5000"`
}
