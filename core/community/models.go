package community

import (
	"time"

	"github.com/eduhive/backend/core"
)

type Post struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Forum     string    `json:"forum" db:"forum"`
	Likes     int       `json:"likes" db:"likes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Comments  []Comment `json:"comments,omitempty" db:"-"`
}

type Comment struct {
	ID        string    `json:"id" db:"id"`
	PostID    string    `json:"post_id" db:"post_id"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPost contains information needed to create a community post.
type NewPost struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"omitempty,max=5000"`
	Forum   string `json:"forum" validate:"omitempty,max=50"`
}

func (np *NewPost) Validate() error {
	np.Title = core.CleanString(np.Title)
	np.Content = core.CleanString(np.Content)
	np.Forum = core.CleanString(np.Forum, true /* lower */)
	return core.Validate.Struct(np)
}

// NewComment contains information needed to comment on a post.
type NewComment struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (nc *NewComment) Validate() error {
	nc.Content = core.CleanString(nc.Content)
	return core.Validate.Struct(nc)
}
