package badge

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("badge not found")

type (
	Repository interface {
		CreateBadge(ctx context.Context, b Badge) (Badge, error)
		GetBadgeByID(ctx context.Context, id string) (Badge, error)
		// QueryBadges returns all badges, newest first.
		QueryBadges(ctx context.Context) ([]Badge, error)
		UpdateBadge(ctx context.Context, b Badge) (Badge, error)
		DeleteBadgesByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nb NewBadge) (Badge, error) {
	b := Badge{
		Title:     nb.Title,
		ImageURL:  nb.ImageURL,
		Winners:   nb.Winners,
		Awarded:   len(nb.Winners),
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateBadge(ctx, b)
}

func (svc *Service) Query(ctx context.Context) ([]Badge, error) {
	return svc.repo.QueryBadges(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Badge, error) {
	return svc.repo.GetBadgeByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ub UpdateBadge) (Badge, error) {
	b, err := svc.repo.GetBadgeByID(ctx, id)
	if err != nil {
		return Badge{}, err
	}

	if ub.Title != "" {
		b.Title = ub.Title
	}
	if ub.ImageURL != "" {
		b.ImageURL = ub.ImageURL
	}
	if ub.Winners != nil {
		b.Winners = *ub.Winners
	}
	return svc.repo.UpdateBadge(ctx, b)
}

// Award grants the badge to a winner. The award counter always increments;
// the winner list stays free of duplicates.
func (svc *Service) Award(ctx context.Context, id, winner string) (Badge, error) {
	b, err := svc.repo.GetBadgeByID(ctx, id)
	if err != nil {
		return Badge{}, err
	}

	b.Awarded++
	var listed bool
	for _, w := range b.Winners {
		if w == winner {
			listed = true
			break
		}
	}
	if !listed {
		b.Winners = append(b.Winners, winner)
	}
	return svc.repo.UpdateBadge(ctx, b)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteBadgesByID(ctx, ids...)
}
