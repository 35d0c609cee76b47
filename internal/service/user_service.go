package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse/gatehouse/internal/apperr"
	"github.com/gatehouse/gatehouse/internal/events"
	"github.com/gatehouse/gatehouse/internal/models"
	"github.com/gatehouse/gatehouse/internal/repository"
)

// Pagination is the page envelope returned with every listing.
type Pagination struct {
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

func paginationFor(total, page, perPage int) Pagination {
	if page < 1 {
		page = 1
	}
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	return Pagination{
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}
}

// UserService is the admin-side user management surface. Authorization is
// the caller's job (the admin gate sits in the router); the service only
// enforces data rules.
type UserService struct {
	users   repository.UserRepository
	roles   repository.RoleRepository
	tokens  *TokenService
	bus     *events.Bus
	perPage int
	logger  *logrus.Logger
}

func NewUserService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	tokens *TokenService,
	bus *events.Bus,
	perPage int,
	logger *logrus.Logger,
) *UserService {
	return &UserService{
		users:   users,
		roles:   roles,
		tokens:  tokens,
		bus:     bus,
		perPage: perPage,
		logger:  logger,
	}
}

func (s *UserService) List(ctx context.Context, page int) ([]models.User, Pagination, error) {
	users, total, err := s.users.List(ctx, page, s.perPage)
	if err != nil {
		return nil, Pagination{}, err
	}
	return users, paginationFor(total, page, s.perPage), nil
}

// Get resolves a live user; soft-deleted users are not found.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Deleted() {
		return nil, apperr.ErrNotFound
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, actorID string, cmd CreateUserCommand) (*models.User, error) {
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	roles := []string{DefaultRole}
	if cmd.Role != "" {
		if _, err := s.roles.GetByName(ctx, cmd.Role); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				v := apperr.NewValidationError()
				v.Add("role", "Role does not exist")
				return nil, v
			}
			return nil, err
		}
		roles = []string{cmd.Role}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         cmd.Name,
		Email:        cmd.Email,
		Phone:        cmd.Phone,
		PasswordHash: string(hash),
		Roles:        roles,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, uniquenessToValidation(err)
	}

	s.bus.Publish(events.Event{
		Name:      events.UserCreated,
		ActorID:   actorID,
		SubjectID: user.ID,
		Detail:    map[string]string{"email": user.Email},
	})
	return user, nil
}

func (s *UserService) Update(ctx context.Context, actorID, id string, cmd UpdateUserCommand) (*models.User, error) {
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Name = cmd.Name
	user.Email = cmd.Email
	user.Phone = cmd.Phone
	if cmd.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, uniquenessToValidation(err)
	}

	s.bus.Publish(events.Event{
		Name:      events.UserUpdated,
		ActorID:   actorID,
		SubjectID: user.ID,
	})
	return user, nil
}

// Delete soft-deletes by default; force removes the item permanently.
// Either way every token the user holds is revoked.
func (s *UserService) Delete(ctx context.Context, actorID, id string, force bool) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Deleted() && !force {
		return apperr.ErrNotFound
	}

	if err := s.tokens.RevokeAll(ctx, id); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}

	if force {
		if err := s.users.HardDelete(ctx, id); err != nil {
			return err
		}
	} else {
		if err := s.users.SoftDelete(ctx, id, time.Now()); err != nil {
			return err
		}
	}

	s.bus.Publish(events.Event{
		Name:      events.UserDeleted,
		ActorID:   actorID,
		SubjectID: id,
		Detail:    map[string]string{"force": fmt.Sprintf("%t", force)},
	})
	return nil
}

func (s *UserService) Restore(ctx context.Context, actorID, id string) (*models.User, error) {
	if err := s.users.Restore(ctx, id); err != nil {
		return nil, uniquenessToValidation(err)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{
		Name:      events.UserRestored,
		ActorID:   actorID,
		SubjectID: id,
	})
	return user, nil
}
