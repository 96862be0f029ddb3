package kaya

import (
	"strings"

	"kaya-scraper/internal/domain"
)

// rawAscent mirrors the WebAscentFields fragment.
type rawAscent struct {
	ID        string    `json:"id"`
	User      *rawUser  `json:"user"`
	Climb     *rawClimb `json:"climb"`
	Date      *string   `json:"date"`
	Comment   *string   `json:"comment"`
	Rating    *float64  `json:"rating"`
	Stiffness *float64  `json:"stiffness"`
	Grade     *rawNamed `json:"grade"`
}

type rawUser struct {
	ID                   *string   `json:"id"`
	Username             *string   `json:"username"`
	Fname                *string   `json:"fname"`
	Lname                *string   `json:"lname"`
	PhotoURL             *string   `json:"photo_url"`
	IsPrivate            *bool     `json:"is_private"`
	Bio                  *string   `json:"bio"`
	Height               *float64  `json:"height"`
	ApeIndex             *float64  `json:"ape_index"`
	LimitGradeBouldering *rawNamed `json:"limit_grade_bouldering"`
	LimitGradeRoutes     *rawNamed `json:"limit_grade_routes"`
	IsPremium            *bool     `json:"is_premium"`
}

type rawClimb struct {
	Slug        *string   `json:"slug"`
	Name        *string   `json:"name"`
	Rating      *float64  `json:"rating"`
	AscentCount *float64  `json:"ascent_count"`
	Grade       *rawNamed `json:"grade"`
	ClimbType   *rawNamed `json:"climb_type"`
	Color       *rawNamed `json:"color"`
	Gym         *rawNamed `json:"gym"`
}

// rawNamed covers the nested {id, name} sub-objects; only the name survives
// normalization.
type rawNamed struct {
	ID   any     `json:"id"`
	Name *string `json:"name"`
}

type rawGym struct {
	ID            string   `json:"id"`
	Slug          string   `json:"slug"`
	Name          string   `json:"name"`
	BoulderCount  *float64 `json:"boulder_count"`
	RouteCount    *float64 `json:"route_count"`
	Address       *string  `json:"address"`
	City          *string  `json:"city"`
	PostalCode    *string  `json:"postal_code"`
	Region        *string  `json:"region"`
	Country       *string  `json:"country"`
	FollowerCount *float64 `json:"follower_count"`
	IsOfficial    *bool    `json:"is_official"`
	Website       *string  `json:"website"`
}

// normalizeAscent flattens one raw entry into the tabular ascent shape:
// user/climb sub-objects become prefixed scalar fields, nested {id, name}
// objects collapse to their name, and numeric fields are coerced to integers.
func normalizeAscent(r rawAscent, gymID string) domain.Ascent {
	a := domain.Ascent{
		SendID:    r.ID,
		Date:      r.Date,
		GymID:     gymID,
		Comment:   r.Comment,
		Rating:    toInt(r.Rating),
		Stiffness: toInt(r.Stiffness),
		Grade:     nameOf(r.Grade),
	}
	if u := r.User; u != nil {
		a.UserID = u.ID
		a.Username = u.Username
		a.FirstName = u.Fname
		a.LastName = u.Lname
		a.Height = u.Height
		a.ApeIndex = u.ApeIndex
		a.PhotoURL = u.PhotoURL
		a.Bio = u.Bio
		a.LimitGradeBouldering = nameOf(u.LimitGradeBouldering)
		a.LimitGradeRoutes = nameOf(u.LimitGradeRoutes)
		a.IsPrivate = u.IsPrivate != nil && *u.IsPrivate
		a.IsPremium = u.IsPremium != nil && *u.IsPremium
	}
	if c := r.Climb; c != nil {
		a.ClimbName = c.Name
		a.AscentCount = toInt(c.AscentCount)
		a.ClimbType = nameOf(c.ClimbType)
		a.Color = nameOf(c.Color)
		a.Gym = nameOf(c.Gym)
		a.ClimbID = climbIDFromSlug(c.Slug)
	}
	return a
}

func normalizeGym(r rawGym) domain.Gym {
	return domain.Gym{
		ID:            r.ID,
		Slug:          r.Slug,
		Name:          r.Name,
		BoulderCount:  toInt(r.BoulderCount),
		RouteCount:    toInt(r.RouteCount),
		Address:       r.Address,
		City:          r.City,
		PostalCode:    r.PostalCode,
		Region:        r.Region,
		Country:       r.Country,
		FollowerCount: toInt(r.FollowerCount),
		IsOfficial:    r.IsOfficial != nil && *r.IsOfficial,
		Website:       r.Website,
	}
}

func nameOf(n *rawNamed) *string {
	if n == nil {
		return nil
	}
	return n.Name
}

func toInt(f *float64) *int64 {
	if f == nil {
		return nil
	}
	v := int64(*f)
	return &v
}

// climbIDFromSlug extracts the numeric tail of a climb slug, e.g.
// "the-prow-12345" -> "12345".
func climbIDFromSlug(slug *string) *string {
	if slug == nil {
		return nil
	}
	parts := strings.Split(*slug, "-")
	id := parts[len(parts)-1]
	return &id
}
