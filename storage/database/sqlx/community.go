package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/community"
)

const (
	postColumns    = `id, title, content, author_id, forum, likes, created_at`
	commentColumns = `id, post_id, author_id, content, created_at`
)

type communityRepository struct {
	db *sqlx.DB
}

var _ community.Repository = (*communityRepository)(nil)

func NewCommunityRepository(db *sqlx.DB) *communityRepository {
	return &communityRepository{db: db}
}

func (repo communityRepository) CreatePost(ctx context.Context, p community.Post) (community.Post, error) {
	p.ID = uuid.New().String()
	query := `
		INSERT INTO community_post (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := repo.db.ExecContext(ctx, query,
		p.ID, p.Title, p.Content, p.AuthorID, p.Forum, p.Likes, p.CreatedAt,
	); err != nil {
		return community.Post{}, errors.Wrap(err, "inserting post")
	}
	return p, nil
}

func (repo communityRepository) GetPostByID(ctx context.Context, id string) (community.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return community.Post{}, community.ErrPostNotFound
	}
	var p community.Post
	query := `SELECT ` + postColumns + ` FROM community_post WHERE id = $1`
	if err := repo.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return community.Post{}, community.ErrPostNotFound
		}
		return community.Post{}, errors.Wrap(err, "finding post")
	}

	query = `SELECT ` + commentColumns + ` FROM community_comment WHERE post_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &p.Comments, query, p.ID); err != nil {
		return community.Post{}, errors.Wrap(err, "querying post comments")
	}
	return p, nil
}

// QueryPosts returns posts (with comments) for a forum, newest first;
// an empty forum matches all.
func (repo communityRepository) QueryPosts(ctx context.Context, forum string) ([]community.Post, error) {
	query := `SELECT ` + postColumns + ` FROM community_post`
	var args []interface{}
	if forum != "" {
		query += ` WHERE forum = $1`
		args = append(args, forum)
	}
	query += ` ORDER BY created_at DESC`

	var posts []community.Post
	if err := repo.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]string, 0, len(posts))
	byID := make(map[string]*community.Post, len(posts))
	for i := range posts {
		ids = append(ids, posts[i].ID)
		byID[posts[i].ID] = &posts[i]
	}

	cQuery, cArgs, err := sqlx.In(`SELECT `+commentColumns+` FROM community_comment WHERE post_id IN (?) ORDER BY created_at`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying post comments")
	}
	var comments []community.Comment
	if err = repo.db.SelectContext(ctx, &comments, repo.db.Rebind(cQuery), cArgs...); err != nil {
		return nil, errors.Wrap(err, "querying post comments")
	}
	for _, c := range comments {
		if p, ok := byID[c.PostID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	return posts, nil
}

// LikePost atomically increments the post's like counter.
func (repo communityRepository) LikePost(ctx context.Context, id string) (community.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return community.Post{}, community.ErrPostNotFound
	}
	var p community.Post
	query := `
		UPDATE community_post SET likes = likes + 1
		WHERE id = $1
		RETURNING ` + postColumns
	if err := repo.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return community.Post{}, community.ErrPostNotFound
		}
		return community.Post{}, errors.Wrap(err, "liking post")
	}
	return p, nil
}

func (repo communityRepository) CreateComment(ctx context.Context, c community.Comment) (community.Comment, error) {
	c.ID = uuid.New().String()
	query := `
		INSERT INTO community_comment (` + commentColumns + `)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.db.ExecContext(ctx, query,
		c.ID, c.PostID, c.AuthorID, c.Content, c.CreatedAt,
	); err != nil {
		return community.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return c, nil
}
