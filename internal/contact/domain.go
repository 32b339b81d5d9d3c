package contact

import "time"

// Message is a note sent through the public contact form.
type Message struct {
	ID        int64
	Name      string
	Phone     string
	Email     string
	Subject   string
	Body      string
	HandledBy *int64
	HandledAt *time.Time
	CreatedAt time.Time
}

// Input carries the public form fields.
type Input struct {
	Name    string `validate:"required,min=2,max=200"`
	Phone   string `validate:"required"`
	Email   string `validate:"omitempty,email"`
	Subject string `validate:"required,min=3,max=200"`
	Body    string `validate:"required,max=5000"`
}

// ListFilters narrows the staff inbox.
type ListFilters struct {
	UnhandledOnly bool
	Page          int
	PerPage       int
}
