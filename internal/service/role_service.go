package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/apperr"
	"github.com/gatehouse/gatehouse/internal/events"
	"github.com/gatehouse/gatehouse/internal/models"
	"github.com/gatehouse/gatehouse/internal/repository"
)

// RoleService is the admin-side role management surface. Permission lists
// are synchronized wholesale: whatever the command carries becomes the
// role's complete permission set.
type RoleService struct {
	roles   repository.RoleRepository
	bus     *events.Bus
	perPage int
	logger  *logrus.Logger
}

func NewRoleService(roles repository.RoleRepository, bus *events.Bus, perPage int, logger *logrus.Logger) *RoleService {
	return &RoleService{
		roles:   roles,
		bus:     bus,
		perPage: perPage,
		logger:  logger,
	}
}

func (s *RoleService) List(ctx context.Context, page int) ([]models.Role, Pagination, error) {
	roles, total, err := s.roles.List(ctx, page, s.perPage)
	if err != nil {
		return nil, Pagination{}, err
	}
	return roles, paginationFor(total, page, s.perPage), nil
}

func (s *RoleService) Get(ctx context.Context, id string) (*models.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.Deleted() {
		return nil, apperr.ErrNotFound
	}
	return role, nil
}

func (s *RoleService) Create(ctx context.Context, actorID string, cmd RoleCommand) (*models.Role, error) {
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	role := &models.Role{
		ID:          uuid.New().String(),
		Name:        cmd.Name,
		Description: cmd.Description,
		Permissions: cmd.Permissions,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, roleNameToValidation(err)
	}

	s.bus.Publish(events.Event{
		Name:      events.RoleCreated,
		ActorID:   actorID,
		SubjectID: role.ID,
		Detail:    map[string]string{"name": role.Name},
	})
	return role, nil
}

func (s *RoleService) Update(ctx context.Context, actorID, id string, cmd RoleCommand) (*models.Role, error) {
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	role.Name = cmd.Name
	role.Description = cmd.Description
	// Replace-all semantics: the stored list is overwritten, not merged.
	role.Permissions = cmd.Permissions

	if err := s.roles.Update(ctx, role); err != nil {
		return nil, roleNameToValidation(err)
	}

	s.bus.Publish(events.Event{
		Name:      events.RoleUpdated,
		ActorID:   actorID,
		SubjectID: role.ID,
		Detail:    map[string]string{"name": role.Name},
	})
	return role, nil
}

func (s *RoleService) Delete(ctx context.Context, actorID, id string, force bool) error {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.Deleted() && !force {
		return apperr.ErrNotFound
	}

	if force {
		if err := s.roles.HardDelete(ctx, id); err != nil {
			return err
		}
	} else {
		if err := s.roles.SoftDelete(ctx, id, time.Now()); err != nil {
			return err
		}
	}

	s.bus.Publish(events.Event{
		Name:      events.RoleDeleted,
		ActorID:   actorID,
		SubjectID: id,
		Detail:    map[string]string{"name": role.Name, "force": fmt.Sprintf("%t", force)},
	})
	return nil
}

func (s *RoleService) Restore(ctx context.Context, actorID, id string) (*models.Role, error) {
	if err := s.roles.Restore(ctx, id); err != nil {
		return nil, roleNameToValidation(err)
	}
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{
		Name:      events.RoleRestored,
		ActorID:   actorID,
		SubjectID: id,
		Detail:    map[string]string{"name": role.Name},
	})
	return role, nil
}

func roleNameToValidation(err error) error {
	if errors.Is(err, apperr.ErrRoleNameTaken) {
		v := apperr.NewValidationError()
		v.Add("name", "A role with this name already exists")
		return v
	}
	return err
}
