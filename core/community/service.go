package community

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/eduhive/backend/core"
)

var ErrPostNotFound = errors.New("post not found")

// DefaultForum is where posts land when no forum is given.
const DefaultForum = "general"

type (
	Repository interface {
		CreatePost(ctx context.Context, p Post) (Post, error)
		GetPostByID(ctx context.Context, id string) (Post, error)
		// QueryPosts returns posts (with comments) for a forum,
		// newest first; an empty forum matches all.
		QueryPosts(ctx context.Context, forum string) ([]Post, error)
		// LikePost atomically increments the post's like counter.
		LikePost(ctx context.Context, id string) (Post, error)
		CreateComment(ctx context.Context, c Comment) (Comment, error)
	}

	Service struct {
		repo        Repository
		broadcaster core.Broadcaster
	}
)

func NewService(repo Repository, broadcaster core.Broadcaster) *Service {
	return &Service{repo: repo, broadcaster: broadcaster}
}

func forumTopic(forum string) string { return "community:" + forum }

func (svc *Service) CreatePost(ctx context.Context, authorID string, np NewPost) (Post, error) {
	p := Post{
		Title:     np.Title,
		Content:   np.Content,
		AuthorID:  authorID,
		Forum:     np.Forum,
		CreatedAt: time.Now().UTC(),
	}
	if p.Forum == "" {
		p.Forum = DefaultForum
	}
	p, err := svc.repo.CreatePost(ctx, p)
	if err != nil {
		return Post{}, err
	}
	svc.broadcaster.Publish(forumTopic(p.Forum), map[string]interface{}{"event": "post_created", "post": p})
	return p, nil
}

func (svc *Service) QueryPosts(ctx context.Context, forum string) ([]Post, error) {
	return svc.repo.QueryPosts(ctx, core.CleanString(forum, true /* lower */))
}

func (svc *Service) LikePost(ctx context.Context, id string) (Post, error) {
	p, err := svc.repo.LikePost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	svc.broadcaster.Publish(forumTopic(p.Forum), map[string]interface{}{"event": "post_liked", "post_id": p.ID, "likes": p.Likes})
	return p, nil
}

func (svc *Service) AddComment(ctx context.Context, postID, authorID string, nc NewComment) (Comment, error) {
	p, err := svc.repo.GetPostByID(ctx, postID)
	if err != nil {
		return Comment{}, err
	}
	c := Comment{
		PostID:    p.ID,
		AuthorID:  authorID,
		Content:   nc.Content,
		CreatedAt: time.Now().UTC(),
	}
	c, err = svc.repo.CreateComment(ctx, c)
	if err != nil {
		return Comment{}, err
	}
	svc.broadcaster.Publish(forumTopic(p.Forum), map[string]interface{}{"event": "comment_added", "post_id": p.ID, "comment": c})
	return c, nil
}
