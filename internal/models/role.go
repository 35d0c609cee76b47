package models

import (
	"time"
)

// Role groups permission names under a unique name. Permissions are
// synchronized wholesale on create/update: the stored list is always
// replaced, never merged.
type Role struct {
	ID          string     `json:"id" dynamodbav:"id"`
	Name        string     `json:"name" dynamodbav:"name"`
	Description string     `json:"description" dynamodbav:"description"`
	Permissions []string   `json:"permissions" dynamodbav:"permissions"`
	CreatedAt   time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" dynamodbav:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at,omitempty"`
}

func (r *Role) GetPK() string {
	return "ROLE#" + r.ID
}

func (r *Role) GetSK() string {
	return "METADATA"
}

func (r *Role) Deleted() bool {
	return r.DeletedAt != nil
}

func (r *Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
