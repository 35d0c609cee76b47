// Package memory provides in-memory implementations of the repository
// interfaces. They back the test suites and local development without
// DynamoDB or Redis, and mirror the production semantics: uniqueness among
// live records only, soft delete releasing reservations, per-user token
// indexes for revoke-everywhere.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gatehouse/gatehouse/internal/apperr"
	"github.com/gatehouse/gatehouse/internal/models"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]models.User)}
}

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Deleted() {
			continue
		}
		if u.Email == user.Email {
			return apperr.ErrEmailTaken
		}
		if u.Phone == user.Phone {
			return apperr.ErrPhoneTaken
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if !u.Deleted() && u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *UserRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	for _, u := range r.users {
		if u.ID == user.ID || u.Deleted() {
			continue
		}
		if u.Email == user.Email {
			return apperr.ErrEmailTaken
		}
		if u.Phone == user.Phone {
			return apperr.ErrPhoneTaken
		}
	}

	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) List(_ context.Context, page, perPage int) ([]models.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var live []models.User
	for _, u := range r.users {
		if !u.Deleted() {
			live = append(live, u)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].ID < live[j].ID
		}
		return live[i].CreatedAt.Before(live[j].CreatedAt)
	})
	return paginate(live, page, perPage), len(live), nil
}

func (r *UserRepository) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if u.Deleted() {
		return nil
	}
	u.DeletedAt = &at
	u.UpdatedAt = at
	r.users[id] = u
	return nil
}

func (r *UserRepository) Restore(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if !u.Deleted() {
		return nil
	}
	for _, other := range r.users {
		if other.ID == id || other.Deleted() {
			continue
		}
		if other.Email == u.Email {
			return apperr.ErrEmailTaken
		}
		if other.Phone == u.Phone {
			return apperr.ErrPhoneTaken
		}
	}
	u.DeletedAt = nil
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return nil
}

func (r *UserRepository) HardDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type RoleRepository struct {
	mu    sync.RWMutex
	roles map[string]models.Role
}

func NewRoleRepository() *RoleRepository {
	return &RoleRepository{roles: make(map[string]models.Role)}
}

func (r *RoleRepository) Create(_ context.Context, role *models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.roles {
		if !existing.Deleted() && existing.Name == role.Name {
			return apperr.ErrRoleNameTaken
		}
	}
	now := time.Now()
	role.CreatedAt = now
	role.UpdatedAt = now
	r.roles[role.ID] = *role
	return nil
}

func (r *RoleRepository) GetByID(_ context.Context, id string) (*models.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	role, ok := r.roles[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return cloneRole(role), nil
}

func (r *RoleRepository) GetByName(_ context.Context, name string) (*models.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, role := range r.roles {
		if !role.Deleted() && role.Name == name {
			return cloneRole(role), nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *RoleRepository) Update(_ context.Context, role *models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.roles[role.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	for _, existing := range r.roles {
		if existing.ID == role.ID || existing.Deleted() {
			continue
		}
		if existing.Name == role.Name {
			return apperr.ErrRoleNameTaken
		}
	}
	role.CreatedAt = current.CreatedAt
	role.UpdatedAt = time.Now()
	r.roles[role.ID] = *role
	return nil
}

func (r *RoleRepository) List(_ context.Context, page, perPage int) ([]models.Role, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var live []models.Role
	for _, role := range r.roles {
		if !role.Deleted() {
			live = append(live, role)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].ID < live[j].ID
		}
		return live[i].CreatedAt.Before(live[j].CreatedAt)
	})
	return paginate(live, page, perPage), len(live), nil
}

func (r *RoleRepository) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	role, ok := r.roles[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if role.Deleted() {
		return nil
	}
	role.DeletedAt = &at
	role.UpdatedAt = at
	r.roles[id] = role
	return nil
}

func (r *RoleRepository) Restore(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	role, ok := r.roles[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if !role.Deleted() {
		return nil
	}
	for _, existing := range r.roles {
		if existing.ID != id && !existing.Deleted() && existing.Name == role.Name {
			return apperr.ErrRoleNameTaken
		}
	}
	role.DeletedAt = nil
	role.UpdatedAt = time.Now()
	r.roles[id] = role
	return nil
}

func (r *RoleRepository) HardDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

type SessionStore struct {
	mu      sync.RWMutex
	records map[string]models.TokenRecord
	byUser  map[string][]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		records: make(map[string]models.TokenRecord),
		byUser:  make(map[string][]string),
	}
}

func (s *SessionStore) Save(_ context.Context, rec *models.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.JTI] = *rec
	s.byUser[rec.UserID] = append(s.byUser[rec.UserID], rec.JTI)
	return nil
}

func (s *SessionStore) Get(_ context.Context, jti string) (*models.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[jti]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	out := rec
	return &out, nil
}

func (s *SessionStore) Revoke(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[jti]
	if !ok {
		return nil
	}
	rec.Revoked = true
	s.records[jti] = rec
	return nil
}

func (s *SessionStore) RevokeAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, jti := range s.byUser[userID] {
		if rec, ok := s.records[jti]; ok {
			rec.Revoked = true
			s.records[jti] = rec
		}
	}
	delete(s.byUser, userID)
	return nil
}

type AuditRepository struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Record(_ context.Context, entry *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// Entries returns a snapshot of everything recorded so far.
func (r *AuditRepository) Entries() []models.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func cloneUser(u models.User) *models.User {
	out := u
	out.Roles = append([]string(nil), u.Roles...)
	if u.DeletedAt != nil {
		at := *u.DeletedAt
		out.DeletedAt = &at
	}
	return &out
}

func cloneRole(r models.Role) *models.Role {
	out := r
	out.Permissions = append([]string(nil), r.Permissions...)
	if r.DeletedAt != nil {
		at := *r.DeletedAt
		out.DeletedAt = &at
	}
	return &out
}

func paginate[T any](all []T, page, perPage int) []T {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(all) {
		return []T{}
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
