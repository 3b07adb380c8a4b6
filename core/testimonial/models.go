package testimonial

import (
	"time"

	"github.com/eduhive/backend/core"
)

type Testimonial struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Role       string    `json:"role" db:"role"`
	ImageURL   string    `json:"image_url,omitempty" db:"image_url"`
	Rating     int       `json:"rating" db:"rating"`
	Text       string    `json:"text" db:"text"`
	IsApproved bool      `json:"is_approved" db:"is_approved"`
	IsFeatured bool      `json:"is_featured" db:"is_featured"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// NewTestimonial contains information needed to submit a testimonial.
// Submissions await admin approval before they are listed publicly.
type NewTestimonial struct {
	Name     string `json:"name" validate:"required,max=100"`
	Role     string `json:"role" validate:"required,max=100"`
	ImageURL string `json:"image_url" validate:"omitempty,url,max=255"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Text     string `json:"text" validate:"required,max=1000"`
}

func (nt *NewTestimonial) Validate() error {
	nt.Name = core.CleanString(nt.Name)
	nt.Role = core.CleanString(nt.Role)
	nt.Text = core.CleanString(nt.Text)
	return core.Validate.Struct(nt)
}
