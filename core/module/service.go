package module

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("module not found")

type (
	Repository interface {
		CreateModule(ctx context.Context, m Module) (Module, error)
		GetModuleByID(ctx context.Context, id string) (Module, error)
		// QueryModules applies AND operation on available Filter fields,
		// newest first; zero values match all.
		QueryModules(ctx context.Context, filter Filter) ([]Module, error)
		UpdateModule(ctx context.Context, m Module) (Module, error)
		DeleteModulesByID(ctx context.Context, ids ...string) error
	}

	Filter struct {
		CreatedBy string
		Status    string
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, createdBy string, nm NewModule) (Module, error) {
	now := time.Now().UTC()
	m := Module{
		Title:       nm.Title,
		Description: nm.Description,
		Content:     nm.Content,
		ImageURL:    nm.ImageURL,
		MediaURL:    nm.MediaURL,
		Status:      StatusPending,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateModule(ctx, m)
}

// QueryApproved lists the modules visible to learners.
func (svc *Service) QueryApproved(ctx context.Context) ([]Module, error) {
	return svc.repo.QueryModules(ctx, Filter{Status: StatusApproved})
}

// QueryOwn lists a contributor's own submissions, whatever their status.
func (svc *Service) QueryOwn(ctx context.Context, userID string) ([]Module, error) {
	return svc.repo.QueryModules(ctx, Filter{CreatedBy: userID})
}

// QueryPending lists the submissions awaiting moderation.
func (svc *Service) QueryPending(ctx context.Context) ([]Module, error) {
	return svc.repo.QueryModules(ctx, Filter{Status: StatusPending})
}

// GetVisible fetches a module the caller is allowed to see: approved modules
// are visible to everyone, pending ones only to their owner and admins.
// Someone else's pending module reads the same as a missing one.
func (svc *Service) GetVisible(ctx context.Context, userID, id string, admin bool) (Module, error) {
	m, err := svc.repo.GetModuleByID(ctx, id)
	if err != nil {
		return Module{}, err
	}
	if !m.IsApproved() && !admin && m.CreatedBy != userID {
		return Module{}, ErrNotFound
	}
	return m, nil
}

// getOwn fetches a module for mutation; only the owner and admins qualify,
// and an owner mismatch reads the same as absence.
func (svc *Service) getOwn(ctx context.Context, userID, id string, admin bool) (Module, error) {
	m, err := svc.repo.GetModuleByID(ctx, id)
	if err != nil {
		return Module{}, err
	}
	if !admin && m.CreatedBy != userID {
		return Module{}, ErrNotFound
	}
	return m, nil
}

func (svc *Service) Update(ctx context.Context, userID, id string, admin bool, um UpdateModule) (Module, error) {
	m, err := svc.getOwn(ctx, userID, id, admin)
	if err != nil {
		return Module{}, err
	}

	if um.Title != "" {
		m.Title = um.Title
	}
	if um.Description != "" {
		m.Description = um.Description
	}
	if um.Content != nil {
		m.Content = *um.Content
	}
	if um.ImageURL != nil {
		m.ImageURL = *um.ImageURL
	}
	if um.MediaURL != nil {
		m.MediaURL = *um.MediaURL
	}
	m.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateModule(ctx, m)
}

func (svc *Service) Delete(ctx context.Context, userID, id string, admin bool) error {
	m, err := svc.getOwn(ctx, userID, id, admin)
	if err != nil {
		return err
	}
	return svc.repo.DeleteModulesByID(ctx, m.ID)
}

// Approve publishes a pending module.
func (svc *Service) Approve(ctx context.Context, id string) (Module, error) {
	m, err := svc.repo.GetModuleByID(ctx, id)
	if err != nil {
		return Module{}, err
	}
	m.Status = StatusApproved
	m.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateModule(ctx, m)
}
