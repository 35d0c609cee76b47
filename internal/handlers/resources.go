package handlers

import (
	"time"

	"github.com/gatehouse/gatehouse/internal/masking"
	"github.com/gatehouse/gatehouse/internal/models"
	"github.com/gatehouse/gatehouse/internal/service"
)

// Resources shapes models for API output. Password hashes never appear;
// email and phone go through the masking policy.
type Resources struct {
	masker *masking.Masker
}

func NewResources(masker *masking.Masker) *Resources {
	return &Resources{masker: masker}
}

type UserResource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RoleResource struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CollectionResponse struct {
	Data       interface{}        `json:"data"`
	Pagination service.Pagination `json:"pagination"`
}

func (r *Resources) User(u *models.User) UserResource {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserResource{
		ID:        u.ID,
		Name:      u.Name,
		Email:     r.masker.Email(u.Email),
		Phone:     r.masker.Phone(u.Phone),
		Roles:     roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (r *Resources) Users(users []models.User) []UserResource {
	out := make([]UserResource, 0, len(users))
	for i := range users {
		out = append(out, r.User(&users[i]))
	}
	return out
}

func (r *Resources) Role(role *models.Role) RoleResource {
	permissions := role.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	return RoleResource{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: permissions,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

func (r *Resources) Roles(roles []models.Role) []RoleResource {
	out := make([]RoleResource, 0, len(roles))
	for i := range roles {
		out = append(out, r.Role(&roles[i]))
	}
	return out
}
