package properties

import "time"

// Status tracks a listing through its lifecycle. Only published listings
// appear on the public site.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Property is a listing managed by the back-office.
type Property struct {
	ID          int64
	Title       string
	Description string
	Service     string
	Usage       string
	Type        string
	City        string
	District    string
	Price       int64
	AreaSqm     float64
	Bedrooms    int16
	Bathrooms   int16
	Status      Status
	AgentID     *int64
	Photos      []Photo
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Photo is a stored media object attached to a listing.
type Photo struct {
	ID         int64
	PropertyID int64
	URL        string
	SortOrder  int16
	CreatedAt  time.Time
}

// ListFilters narrows listing queries. PublicOnly restricts results to
// published listings regardless of the other filters.
type ListFilters struct {
	Status     Status
	Usage      string
	Type       string
	City       string
	AgentID    int64
	MinPrice   int64
	MaxPrice   int64
	PublicOnly bool
	Page       int
	PerPage    int
}

// Input carries the editable listing fields through create and update.
type Input struct {
	Title       string `validate:"required,min=3,max=200"`
	Description string `validate:"max=5000"`
	Service     string `validate:"required,oneof=sale rent"`
	Usage       string `validate:"required,oneof=residential commercial"`
	Type        string `validate:"required"`
	City        string `validate:"required"`
	District    string `validate:"max=120"`
	Price       int64  `validate:"required,gt=0"`
	AreaSqm     float64
	Bedrooms    int16
	Bathrooms   int16
}
