package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/apperr"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/models"
	"github.com/gatehouse/gatehouse/internal/repository"
)

// TokenService issues and verifies bearer access tokens. A token is an
// HS256 JWT whose JTI points at a server-side record holding the access
// window, the longer session window, and the revocation flag. The JWT
// alone never authorizes anything: the record must exist and be live.
type TokenService struct {
	secretKey  []byte
	accessTTL  time.Duration
	sessionTTL time.Duration
	store      repository.SessionStore
	logger     *logrus.Logger
}

func NewTokenService(cfg *config.JWTConfig, store repository.SessionStore, logger *logrus.Logger) (*TokenService, error) {
	secretKey := []byte(cfg.SecretKey)
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 bytes")
	}

	return &TokenService{
		secretKey:  secretKey,
		accessTTL:  cfg.AccessExpiry,
		sessionTTL: cfg.SessionExpiry,
		store:      store,
		logger:     logger,
	}, nil
}

type Claims struct {
	jwt.RegisteredClaims
}

// Authentication describes a verified bearer token. AccessExpired is true
// when the access window has lapsed but the session window still holds;
// such requests proceed and the session guard mints a replacement token.
type Authentication struct {
	UserID        string
	JTI           string
	AccessExpired bool
}

// Issue mints a new access token for the user without touching any
// previously issued token. Multi-device sessions coexist until logout.
func (s *TokenService) Issue(ctx context.Context, userID string) (*models.IssuedToken, error) {
	now := time.Now()
	jti := uuid.New().String()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign access token")
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	rec := &models.TokenRecord{
		JTI:              jti,
		UserID:           userID,
		IssuedAt:         now,
		ExpiresAt:        now.Add(s.accessTTL),
		SessionExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store token record: %w", err)
	}

	return &models.IssuedToken{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		JTI:         jti,
	}, nil
}

// Authenticate verifies a bearer string. Signature and issuer state are
// hard requirements; access expiry is not, as long as the session window
// still holds. Returns apperr.ErrUnauthenticated, ErrTokenRevoked, or
// ErrSessionExpired for the respective failures.
func (s *TokenService) Authenticate(ctx context.Context, tokenString string) (*Authentication, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, apperr.ErrUnauthenticated
	}

	rec, err := s.store.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// Unknown to the issuer: either never issued here or the
			// session window lapsed and the record aged out.
			return nil, apperr.ErrSessionExpired
		}
		return nil, err
	}

	now := time.Now()
	if rec.Revoked {
		return nil, apperr.ErrTokenRevoked
	}
	if !rec.SessionValid(now) {
		return nil, apperr.ErrSessionExpired
	}

	return &Authentication{
		UserID:        claims.Subject,
		JTI:           claims.ID,
		AccessExpired: rec.Expired(now),
	}, nil
}

// Inspect reloads the server-side record for a previously authenticated
// token. The session guard uses it after the handler ran, so the expiry
// decision reflects that instant, not request entry.
func (s *TokenService) Inspect(ctx context.Context, jti string) (*models.TokenRecord, error) {
	return s.store.Get(ctx, jti)
}

func (s *TokenService) Revoke(ctx context.Context, jti string) error {
	return s.store.Revoke(ctx, jti)
}

// RevokeAll invalidates every token the user holds, across all sessions.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	return s.store.RevokeAllForUser(ctx, userID)
}

// parse checks the signature and shape of the JWT without validating the
// exp claim; access expiry is judged against the issuer record instead so
// expired-but-in-session tokens remain identifiable.
func (s *TokenService) parse(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("token missing required claims")
	}
	return claims, nil
}
