package domain

// Ascent is one normalized send record in the domain layer. SendID is the
// natural key and is unique across the whole persisted collection; every other
// field may be absent upstream, hence the pointers.
type Ascent struct {
	SendID  string
	Date    *string
	GymID   string
	Gym     *string
	Comment *string

	Rating    *int64
	Stiffness *int64
	Grade     *string
	Color     *string
	ClimbType *string

	UserID               *string
	Username             *string
	FirstName            *string
	LastName             *string
	Height               *float64
	ApeIndex             *float64
	PhotoURL             *string
	Bio                  *string
	LimitGradeBouldering *string
	LimitGradeRoutes     *string
	IsPrivate            bool // persisted as 0/1, absent means 0
	IsPremium            bool // persisted as 0/1, absent means 0

	ClimbID     *string // tail segment of the climb slug
	ClimbName   *string
	AscentCount *int64
}
