package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/eduhive/backend/core/community"
)

type communityRepository struct {
	db *communityTable
}

var _ community.Repository = (*communityRepository)(nil)

func NewCommunityRepository(db *DB) community.Repository {
	return &communityRepository{db: db.community}
}

func (repo *communityRepository) CreatePost(ctx context.Context, p community.Post) (community.Post, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p.ID = uuid.New().String()
	repo.db.posts[p.ID] = &p
	return p, nil
}

func (repo *communityRepository) comments(postID string) []community.Comment {
	var comments []community.Comment
	for _, c := range repo.db.comments {
		if c.PostID == postID {
			comments = append(comments, *c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments
}

func (repo *communityRepository) GetPostByID(ctx context.Context, id string) (community.Post, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	p, ok := repo.db.posts[id]
	if !ok {
		return community.Post{}, community.ErrPostNotFound
	}
	post := *p
	post.Comments = repo.comments(id)
	return post, nil
}

func (repo *communityRepository) QueryPosts(ctx context.Context, forum string) ([]community.Post, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var posts []community.Post
	for _, p := range repo.db.posts {
		if forum != "" && p.Forum != forum {
			continue
		}
		post := *p
		post.Comments = repo.comments(p.ID)
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (repo *communityRepository) LikePost(ctx context.Context, id string) (community.Post, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.posts[id]
	if !ok {
		return community.Post{}, community.ErrPostNotFound
	}
	p.Likes++
	return *p, nil
}

func (repo *communityRepository) CreateComment(ctx context.Context, c community.Comment) (community.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.posts[c.PostID]; !ok {
		return community.Comment{}, community.ErrPostNotFound
	}
	c.ID = uuid.New().String()
	repo.db.comments[c.ID] = &c
	return c, nil
}
