package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse/gatehouse/internal/apperr"
	"github.com/gatehouse/gatehouse/internal/events"
	"github.com/gatehouse/gatehouse/internal/models"
	"github.com/gatehouse/gatehouse/internal/repository"
)

// DefaultRole is assigned to every self-registered account.
const DefaultRole = "user"

// dummyHash is compared against when the email is unknown, so a login miss
// costs the same as a password mismatch.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthService orchestrates the session lifecycle: registration, credential
// verification, token issuance, and revocation.
type AuthService struct {
	users  repository.UserRepository
	tokens *TokenService
	bus    *events.Bus
	logger *logrus.Logger
}

func NewAuthService(users repository.UserRepository, tokens *TokenService, bus *events.Bus, logger *logrus.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		bus:    bus,
		logger: logger,
	}
}

// Register creates an account with the default role. The user and its
// uniqueness reservations land in one transaction; side effects (audit
// trail, welcome email) fire afterwards and never block the response.
func (s *AuthService) Register(ctx context.Context, cmd RegisterCommand) (*models.User, error) {
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
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
		Roles:        []string{DefaultRole},
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, uniquenessToValidation(err)
	}

	s.bus.Publish(events.Event{
		Name:      events.UserRegistered,
		ActorID:   user.ID,
		SubjectID: user.ID,
		Detail:    map[string]string{"email": user.Email},
	})

	return user, nil
}

// Login verifies credentials and returns the account. Unknown email and
// wrong password produce the identical error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}

	return user, nil
}

// IssueToken mints a fresh access token for the user. Used by login,
// registration, explicit refresh, and the session guard's silent renewal.
func (s *AuthService) IssueToken(ctx context.Context, userID string) (*models.IssuedToken, error) {
	return s.tokens.Issue(ctx, userID)
}

// Logout revokes every token the user holds, across all devices. This is
// the deliberate "log out everywhere" policy.
func (s *AuthService) Logout(ctx context.Context, user *models.User) error {
	if err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

// RefreshToken issues a brand-new access token with the configured
// lifetime. The token being replaced stays valid until its own expiry.
func (s *AuthService) RefreshToken(ctx context.Context, user *models.User) (*models.IssuedToken, error) {
	return s.tokens.Issue(ctx, user.ID)
}

// uniquenessToValidation downgrades duplicate-email/phone to field-level
// validation errors, matching the registration response contract.
func uniquenessToValidation(err error) error {
	v := apperr.NewValidationError()
	switch {
	case errors.Is(err, apperr.ErrEmailTaken):
		v.Add("email", "This email address is already registered")
	case errors.Is(err, apperr.ErrPhoneTaken):
		v.Add("phone", "This phone number is already registered")
	default:
		return err
	}
	return v
}

// WelcomeMailer sends the welcome email when a registration event arrives.
type WelcomeMailer struct {
	users    repository.UserRepository
	notifier Notifier
	logger   *logrus.Logger
}

func NewWelcomeMailer(users repository.UserRepository, notifier Notifier, logger *logrus.Logger) *WelcomeMailer {
	return &WelcomeMailer{users: users, notifier: notifier, logger: logger}
}

func (w *WelcomeMailer) Register(bus *events.Bus) {
	bus.Subscribe(events.UserRegistered, w.Handle)
}

func (w *WelcomeMailer) Handle(ctx context.Context, e events.Event) {
	user, err := w.users.GetByID(ctx, e.SubjectID)
	if err != nil {
		w.logger.WithError(err).WithField("user_id", e.SubjectID).Error("Failed to load user for welcome email")
		return
	}
	if err := w.notifier.SendWelcome(ctx, user); err != nil {
		w.logger.WithError(err).WithField("user_id", user.ID).Error("Failed to send welcome email")
	}
}
