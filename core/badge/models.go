package badge

import (
	"time"

	"github.com/eduhive/backend/core"
)

// Badge is an achievement learners can be awarded. Winners holds the
// usernames of everyone who has earned it; Awarded counts every grant,
// including repeats.
type Badge struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	ImageURL  string    `json:"image_url" db:"image_url"`
	Awarded   int       `json:"awarded" db:"awarded"`
	Winners   []string  `json:"winners" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewBadge contains information needed to create a badge.
type NewBadge struct {
	Title    string   `json:"title" validate:"required,max=100"`
	ImageURL string   `json:"image_url" validate:"required,url,max=255"`
	Winners  []string `json:"winners"`
}

func (nb *NewBadge) Validate() error {
	nb.Title = core.CleanString(nb.Title)
	nb.ImageURL = core.CleanString(nb.ImageURL)
	return core.Validate.Struct(nb)
}

// UpdateBadge defines what information may be provided to modify a Badge.
// A non-nil Winners replaces the whole list.
type UpdateBadge struct {
	Title    string    `json:"title" validate:"omitempty,max=100"`
	ImageURL string    `json:"image_url" validate:"omitempty,url,max=255"`
	Winners  *[]string `json:"winners"`
}

func (ub *UpdateBadge) Validate() error {
	ub.Title = core.CleanString(ub.Title)
	ub.ImageURL = core.CleanString(ub.ImageURL)
	return core.Validate.Struct(ub)
}
