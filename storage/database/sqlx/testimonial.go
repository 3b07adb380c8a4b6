package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/testimonial"
)

const testimonialColumns = `id, name, role, image_url, rating, text, is_approved, is_featured, created_at`

type testimonialRepository struct {
	db *sqlx.DB
}

var _ testimonial.Repository = (*testimonialRepository)(nil)

func NewTestimonialRepository(db *sqlx.DB) *testimonialRepository {
	return &testimonialRepository{db: db}
}

func (repo testimonialRepository) CreateTestimonial(ctx context.Context, t testimonial.Testimonial) (testimonial.Testimonial, error) {
	t.ID = uuid.New().String()
	query := `
		INSERT INTO testimonial (` + testimonialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := repo.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Role, t.ImageURL, t.Rating, t.Text, t.IsApproved, t.IsFeatured, t.CreatedAt,
	); err != nil {
		return testimonial.Testimonial{}, errors.Wrap(err, "inserting testimonial")
	}
	return t, nil
}

func (repo testimonialRepository) GetTestimonialByID(ctx context.Context, id string) (testimonial.Testimonial, error) {
	if _, err := uuid.Parse(id); err != nil {
		return testimonial.Testimonial{}, testimonial.ErrNotFound
	}
	var t testimonial.Testimonial
	query := `SELECT ` + testimonialColumns + ` FROM testimonial WHERE id = $1`
	if err := repo.db.GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return testimonial.Testimonial{}, testimonial.ErrNotFound
		}
		return testimonial.Testimonial{}, errors.Wrap(err, "finding testimonial")
	}
	return t, nil
}

func (repo testimonialRepository) QueryTestimonials(ctx context.Context, all bool) ([]testimonial.Testimonial, error) {
	query := `SELECT ` + testimonialColumns + ` FROM testimonial`
	if !all {
		query += ` WHERE is_approved`
	}
	query += ` ORDER BY is_featured DESC, created_at DESC`

	var ts []testimonial.Testimonial
	if err := repo.db.SelectContext(ctx, &ts, query); err != nil {
		return nil, errors.Wrap(err, "querying testimonials")
	}
	return ts, nil
}

func (repo testimonialRepository) UpdateTestimonial(ctx context.Context, t testimonial.Testimonial) (testimonial.Testimonial, error) {
	query := `
		UPDATE testimonial
		SET name = $2, role = $3, image_url = $4, rating = $5, text = $6, is_approved = $7, is_featured = $8
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Role, t.ImageURL, t.Rating, t.Text, t.IsApproved, t.IsFeatured,
	)
	if err != nil {
		return testimonial.Testimonial{}, errors.Wrap(err, "updating testimonial")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return testimonial.Testimonial{}, testimonial.ErrNotFound
	}
	return t, nil
}

func (repo testimonialRepository) DeleteTestimonialsByID(ctx context.Context, ids ...string) error {
	query, args, err := sqlx.In(`DELETE FROM testimonial WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting testimonials")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting testimonials")
	}
	return nil
}
