package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/module"
)

const moduleColumns = `id, title, description, content, image_url, media_url, status,
	created_by, created_at, updated_at`

type moduleRepository struct {
	db *sqlx.DB
}

var _ module.Repository = (*moduleRepository)(nil)

func NewModuleRepository(db *sqlx.DB) *moduleRepository {
	return &moduleRepository{db: db}
}

func (repo moduleRepository) CreateModule(ctx context.Context, m module.Module) (module.Module, error) {
	m.ID = uuid.New().String()
	query := `
		INSERT INTO course_module (` + moduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := repo.db.ExecContext(ctx, query,
		m.ID, m.Title, m.Description, m.Content, m.ImageURL, m.MediaURL, m.Status,
		m.CreatedBy, m.CreatedAt, m.UpdatedAt,
	); err != nil {
		return module.Module{}, errors.Wrap(err, "inserting module")
	}
	return m, nil
}

func (repo moduleRepository) GetModuleByID(ctx context.Context, id string) (module.Module, error) {
	if _, err := uuid.Parse(id); err != nil {
		return module.Module{}, module.ErrNotFound
	}
	var m module.Module
	query := `SELECT ` + moduleColumns + ` FROM course_module WHERE id = $1`
	if err := repo.db.GetContext(ctx, &m, query, id); err != nil {
		if err == sql.ErrNoRows {
			return module.Module{}, module.ErrNotFound
		}
		return module.Module{}, errors.Wrap(err, "finding module")
	}
	return m, nil
}

func (repo moduleRepository) QueryModules(ctx context.Context, filter module.Filter) ([]module.Module, error) {
	query := `SELECT ` + moduleColumns + ` FROM course_module`
	var clauses []string
	var args []interface{}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		clauses = append(clauses, `created_by = ?`)
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, `status = ?`)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}
	query += ` ORDER BY created_at DESC`

	var ms []module.Module
	if err := repo.db.SelectContext(ctx, &ms, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	return ms, nil
}

func (repo moduleRepository) UpdateModule(ctx context.Context, m module.Module) (module.Module, error) {
	query := `
		UPDATE course_module
		SET title = $2, description = $3, content = $4, image_url = $5, media_url = $6,
			status = $7, updated_at = $8
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		m.ID, m.Title, m.Description, m.Content, m.ImageURL, m.MediaURL, m.Status, m.UpdatedAt,
	)
	if err != nil {
		return module.Module{}, errors.Wrap(err, "updating module")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return module.Module{}, module.ErrNotFound
	}
	return m, nil
}

func (repo moduleRepository) DeleteModulesByID(ctx context.Context, ids ...string) error {
	query, args, err := sqlx.In(`DELETE FROM course_module WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting modules")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting modules")
	}
	return nil
}
