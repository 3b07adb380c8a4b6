package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/eduhive/backend/core/module"
)

type moduleRepository struct {
	db *moduleTable
}

var _ module.Repository = (*moduleRepository)(nil)

func NewModuleRepository(db *DB) module.Repository {
	return &moduleRepository{db: db.module}
}

func (repo *moduleRepository) CreateModule(ctx context.Context, m module.Module) (module.Module, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m.ID = uuid.New().String()
	repo.db.table[m.ID] = &m
	return m, nil
}

func (repo *moduleRepository) GetModuleByID(ctx context.Context, id string) (module.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return *m, nil
	}
	return module.Module{}, module.ErrNotFound
}

func (repo *moduleRepository) QueryModules(ctx context.Context, filter module.Filter) ([]module.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ms []module.Module
	for _, m := range repo.db.table {
		if filter.CreatedBy != "" && m.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		ms = append(ms, *m)
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].CreatedAt.After(ms[j].CreatedAt) })
	return ms, nil
}

func (repo *moduleRepository) UpdateModule(ctx context.Context, m module.Module) (module.Module, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[m.ID]; !ok {
		return module.Module{}, module.ErrNotFound
	}
	repo.db.table[m.ID] = &m
	return m, nil
}

func (repo *moduleRepository) DeleteModulesByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
