package domain

// Gym is one gym search result.
type Gym struct {
	ID            string
	Slug          string
	Name          string
	BoulderCount  *int64
	RouteCount    *int64
	Address       *string
	City          *string
	PostalCode    *string
	Region        *string
	Country       *string
	FollowerCount *int64
	IsOfficial    bool
	Website       *string
}
