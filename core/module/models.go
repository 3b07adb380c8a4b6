package module

import (
	"time"

	"github.com/eduhive/backend/core"
)

// Module statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// Module is a contributor-authored course module. Submissions start out
// pending and only reach learners once an admin approves them.
type Module struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Content     string    `json:"content,omitempty" db:"content"`
	ImageURL    string    `json:"image_url,omitempty" db:"image_url"`
	MediaURL    string    `json:"media_url,omitempty" db:"media_url"`
	Status      string    `json:"status" db:"status"`
	CreatedBy   string    `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (m Module) IsApproved() bool { return m.Status == StatusApproved }

// NewModule contains information needed to submit a course module.
type NewModule struct {
	Title       string `json:"title" validate:"required,min=3,max=150"`
	Description string `json:"description" validate:"required,max=2000"`
	Content     string `json:"content"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=255"`
	MediaURL    string `json:"media_url" validate:"omitempty,url,max=255"`
}

func (nm *NewModule) Validate() error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	return core.Validate.Struct(nm)
}

// UpdateModule defines what information may be provided to modify a Module.
type UpdateModule struct {
	Title       string  `json:"title" validate:"omitempty,min=3,max=150"`
	Description string  `json:"description" validate:"omitempty,max=2000"`
	Content     *string `json:"content"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url,max=255"`
	MediaURL    *string `json:"media_url" validate:"omitempty,url,max=255"`
}

func (um *UpdateModule) Validate() error {
	um.Title = core.CleanString(um.Title)
	um.Description = core.CleanString(um.Description)
	return core.Validate.Struct(um)
}
