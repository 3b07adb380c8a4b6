package testimonial

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("testimonial not found")

type (
	Repository interface {
		CreateTestimonial(ctx context.Context, t Testimonial) (Testimonial, error)
		GetTestimonialByID(ctx context.Context, id string) (Testimonial, error)
		// QueryTestimonials returns approved entries only unless all is set.
		QueryTestimonials(ctx context.Context, all bool) ([]Testimonial, error)
		UpdateTestimonial(ctx context.Context, t Testimonial) (Testimonial, error)
		DeleteTestimonialsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Submit(ctx context.Context, nt NewTestimonial) (Testimonial, error) {
	t := Testimonial{
		Name:      nt.Name,
		Role:      nt.Role,
		ImageURL:  nt.ImageURL,
		Rating:    nt.Rating,
		Text:      nt.Text,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateTestimonial(ctx, t)
}

// QueryApproved lists the public testimonials.
func (svc *Service) QueryApproved(ctx context.Context) ([]Testimonial, error) {
	return svc.repo.QueryTestimonials(ctx, false)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Testimonial, error) {
	return svc.repo.QueryTestimonials(ctx, true)
}

func (svc *Service) Approve(ctx context.Context, id string, featured bool) (Testimonial, error) {
	t, err := svc.repo.GetTestimonialByID(ctx, id)
	if err != nil {
		return Testimonial{}, err
	}
	t.IsApproved = true
	t.IsFeatured = featured
	return svc.repo.UpdateTestimonial(ctx, t)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteTestimonialsByID(ctx, ids...)
}
