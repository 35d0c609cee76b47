package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/apperr"
)

func TestRegisterCommand_Normalize(t *testing.T) {
	cmd := RegisterCommand{
		Name:  "  John Doe  ",
		Email: " John@Example.COM ",
		Phone: " 1234567890 ",
	}
	cmd.Normalize()

	assert.Equal(t, "John Doe", cmd.Name)
	assert.Equal(t, "john@example.com", cmd.Email)
	assert.Equal(t, "1234567890", cmd.Phone)
}

func TestRegisterCommand_Validate(t *testing.T) {
	valid := func() RegisterCommand {
		return RegisterCommand{
			Name:                 "John Doe",
			Email:                "john@example.com",
			Phone:                "1234567890",
			Password:             "password123",
			PasswordConfirmation: "password123",
		}
	}

	t.Run("valid", func(t *testing.T) {
		cmd := valid()
		assert.NoError(t, cmd.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*RegisterCommand)
		field  string
	}{
		{"missing name", func(c *RegisterCommand) { c.Name = "" }, "name"},
		{"name too long", func(c *RegisterCommand) { c.Name = strings.Repeat("a", 256) }, "name"},
		{"missing email", func(c *RegisterCommand) { c.Email = "" }, "email"},
		{"malformed email", func(c *RegisterCommand) { c.Email = "not-an-email" }, "email"},
		{"missing phone", func(c *RegisterCommand) { c.Phone = "" }, "phone"},
		{"missing password", func(c *RegisterCommand) { c.Password = ""; c.PasswordConfirmation = "" }, "password"},
		{"short password", func(c *RegisterCommand) { c.Password = "short"; c.PasswordConfirmation = "short" }, "password"},
		{"confirmation mismatch", func(c *RegisterCommand) { c.PasswordConfirmation = "different123" }, "password_confirmation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := valid()
			tt.mutate(&cmd)
			err := cmd.Validate()

			var v *apperr.ValidationError
			require.ErrorAs(t, err, &v)
			assert.Contains(t, v.Fields, tt.field)
		})
	}
}

func TestUpdateUserCommand_PasswordOptional(t *testing.T) {
	cmd := UpdateUserCommand{
		Name:  "John Doe",
		Email: "john@example.com",
		Phone: "1234567890",
	}
	assert.NoError(t, cmd.Validate())

	cmd.Password = "short"
	err := cmd.Validate()
	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "password")
}

func TestRoleCommand_NormalizeDedupesPermissions(t *testing.T) {
	cmd := RoleCommand{
		Name:        " editor ",
		Description: " Can edit content ",
		Permissions: []string{"a", " a ", "b", "", "a"},
	}
	cmd.Normalize()

	assert.Equal(t, "editor", cmd.Name)
	assert.Equal(t, "Can edit content", cmd.Description)
	assert.Equal(t, []string{"a", "b"}, cmd.Permissions)
}
