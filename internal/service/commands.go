package service

import (
	"net/mail"
	"strings"

	"github.com/gatehouse/gatehouse/internal/apperr"
)

const (
	maxNameLength     = 255
	minPasswordLength = 8
)

// RegisterCommand is the typed input for self-service registration.
// Confirmation must repeat the password exactly.
type RegisterCommand struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Phone                string `json:"phone"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Normalize trims whitespace and lowercases the email so uniqueness checks
// and logins agree on the canonical form.
func (c *RegisterCommand) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
}

func (c *RegisterCommand) Validate() error {
	v := apperr.NewValidationError()
	validateName(v, c.Name)
	validateEmail(v, c.Email)
	validatePhone(v, c.Phone)
	validatePassword(v, c.Password, true)
	if c.Password != c.PasswordConfirmation {
		v.Add("password_confirmation", "Password confirmation does not match")
	}
	return v.AsError()
}

// CreateUserCommand is the admin-side creation input. Role is optional and
// must name an existing role when present.
type CreateUserCommand struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (c *CreateUserCommand) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Role = strings.TrimSpace(c.Role)
}

func (c *CreateUserCommand) Validate() error {
	v := apperr.NewValidationError()
	validateName(v, c.Name)
	validateEmail(v, c.Email)
	validatePhone(v, c.Phone)
	validatePassword(v, c.Password, true)
	return v.AsError()
}

// UpdateUserCommand updates a user. An empty password keeps the current
// one; a non-empty password must meet the minimum length.
type UpdateUserCommand struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (c *UpdateUserCommand) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
}

func (c *UpdateUserCommand) Validate() error {
	v := apperr.NewValidationError()
	validateName(v, c.Name)
	validateEmail(v, c.Email)
	validatePhone(v, c.Phone)
	validatePassword(v, c.Password, false)
	return v.AsError()
}

// RoleCommand covers role create and update. Permissions replace the
// stored list wholesale.
type RoleCommand struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func (c *RoleCommand) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	cleaned := make([]string, 0, len(c.Permissions))
	seen := make(map[string]bool, len(c.Permissions))
	for _, p := range c.Permissions {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		cleaned = append(cleaned, p)
	}
	c.Permissions = cleaned
}

func (c *RoleCommand) Validate() error {
	v := apperr.NewValidationError()
	if c.Name == "" {
		v.Add("name", "Role name is required")
	} else if len(c.Name) > maxNameLength {
		v.Add("name", "Role name must not exceed 255 characters")
	}
	if c.Description == "" {
		v.Add("description", "Role description is required")
	}
	return v.AsError()
}

func validateName(v *apperr.ValidationError, name string) {
	if name == "" {
		v.Add("name", "Name is required")
	} else if len(name) > maxNameLength {
		v.Add("name", "Name must not exceed 255 characters")
	}
}

func validateEmail(v *apperr.ValidationError, email string) {
	if email == "" {
		v.Add("email", "Email is required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		v.Add("email", "Please provide a valid email address")
	}
}

func validatePhone(v *apperr.ValidationError, phone string) {
	if phone == "" {
		v.Add("phone", "Phone number is required")
	}
}

func validatePassword(v *apperr.ValidationError, password string, required bool) {
	if password == "" {
		if required {
			v.Add("password", "Password is required")
		}
		return
	}
	if len(password) < minPasswordLength {
		v.Add("password", "Password must be at least 8 characters")
	}
}
