package handler

import (
	"time"

	"cubby/internal/children/models"
	id "cubby/pkg/domain"
)

// ChildResponse is the public view of a child profile.
type ChildResponse struct {
	ID        id.ChildID `json:"id"`
	Nickname  string     `json:"nickname"`
	Birthdate string     `json:"birthdate"` // YYYY-MM-DD
	CreatedAt time.Time  `json:"created_at"`
}

// ChildListResponse wraps the list endpoint payload.
type ChildListResponse struct {
	Children []*ChildResponse `json:"children"`
}

// FromChild converts a child model to its public view.
func FromChild(c *models.Child) *ChildResponse {
	return &ChildResponse{
		ID:        c.ID,
		Nickname:  c.Nickname,
		Birthdate: c.Birthdate.Format(birthdateLayout),
		CreatedAt: c.CreatedAt,
	}
}

// FromChildren converts a list of child models.
func FromChildren(children []*models.Child) *ChildListResponse {
	out := make([]*ChildResponse, 0, len(children))
	for _, c := range children {
		out = append(out, FromChild(c))
	}
	return &ChildListResponse{Children: out}
}
