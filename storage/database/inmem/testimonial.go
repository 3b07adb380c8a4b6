package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/eduhive/backend/core/testimonial"
)

type testimonialRepository struct {
	db *testimonialTable
}

var _ testimonial.Repository = (*testimonialRepository)(nil)

func NewTestimonialRepository(db *DB) testimonial.Repository {
	return &testimonialRepository{db: db.testimonial}
}

func (repo *testimonialRepository) CreateTestimonial(ctx context.Context, t testimonial.Testimonial) (testimonial.Testimonial, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.ID = uuid.New().String()
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *testimonialRepository) GetTestimonialByID(ctx context.Context, id string) (testimonial.Testimonial, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return *t, nil
	}
	return testimonial.Testimonial{}, testimonial.ErrNotFound
}

func (repo *testimonialRepository) QueryTestimonials(ctx context.Context, all bool) ([]testimonial.Testimonial, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ts []testimonial.Testimonial
	for _, t := range repo.db.table {
		if all || t.IsApproved {
			ts = append(ts, *t)
		}
	}
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].IsFeatured != ts[j].IsFeatured {
			return ts[i].IsFeatured
		}
		return ts[i].CreatedAt.After(ts[j].CreatedAt)
	})
	return ts, nil
}

func (repo *testimonialRepository) UpdateTestimonial(ctx context.Context, t testimonial.Testimonial) (testimonial.Testimonial, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[t.ID]; !ok {
		return testimonial.Testimonial{}, testimonial.ErrNotFound
	}
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *testimonialRepository) DeleteTestimonialsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
