package middleware

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/models"
	"github.com/gatehouse/gatehouse/internal/repository"
	"github.com/gatehouse/gatehouse/internal/service"
)

// Renewal headers surfaced when the session guard silently reissues an
// access token. Clients swap their stored token whenever these appear.
const (
	HeaderNewAccessToken = "X-New-Access-Token"
	HeaderTokenExpiresIn = "X-Token-Expires-In"
)

type contextKey string

const (
	userContextKey contextKey = "user"
	authContextKey contextKey = "auth"
)

// UserFromContext returns the authenticated user set by RequireAuth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

// AuthFromContext returns the verified token details for this request.
func AuthFromContext(ctx context.Context) (*service.Authentication, bool) {
	auth, ok := ctx.Value(authContextKey).(*service.Authentication)
	return auth, ok
}

// AuthMiddleware authenticates bearer tokens and performs silent renewal:
// a request entering on an access-expired but session-valid token runs
// normally, and the response carries a freshly minted token out-of-band.
type AuthMiddleware struct {
	tokens *service.TokenService
	users  repository.UserRepository
	logger *logrus.Logger
}

func NewAuthMiddleware(tokens *service.TokenService, users repository.UserRepository, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w, "Missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.respondUnauthorized(w, "Invalid authorization header format")
			return
		}

		auth, err := m.tokens.Authenticate(r.Context(), parts[1])
		if err != nil {
			m.logger.WithError(err).Debug("Token verification failed")
			m.respondUnauthorized(w, "Invalid or expired token")
			return
		}

		user, err := m.users.GetByID(r.Context(), auth.UserID)
		if err != nil || user.Deleted() {
			m.respondUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, authContextKey, auth)

		// Buffer the response so renewal headers decided after the
		// handler ran can still be attached.
		buf := newResponseBuffer()
		next.ServeHTTP(buf, r.WithContext(ctx))

		m.renewIfExpired(r.Context(), buf, auth, user)
		buf.flush(w)
	})
}

// renewIfExpired re-inspects the request's token after the handler
// finished. Expired access window + live session window means a new token
// is minted and attached; any failure on this path is logged and skipped,
// never surfaced to the caller.
func (m *AuthMiddleware) renewIfExpired(ctx context.Context, buf *responseBuffer, auth *service.Authentication, user *models.User) {
	rec, err := m.tokens.Inspect(ctx, auth.JTI)
	if err != nil {
		m.logger.WithError(err).Debug("Token re-inspection failed, skipping renewal")
		return
	}

	now := time.Now()
	if !rec.Expired(now) || !rec.SessionValid(now) {
		return
	}

	issued, err := m.tokens.Issue(ctx, user.ID)
	if err != nil {
		m.logger.WithError(err).WithField("user_id", user.ID).Warn("Silent token renewal failed")
		return
	}

	buf.Header().Set(HeaderNewAccessToken, issued.AccessToken)
	buf.Header().Set(HeaderTokenExpiresIn, strconv.FormatInt(issued.ExpiresIn, 10))
}

// RequireRole gates a subtree on role membership. Runs inside RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				m.respondUnauthorized(w, "Missing authentication")
				return
			}
			if !user.HasRole(role) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":{"code":"FORBIDDEN","message":"Insufficient permissions"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"` + message + `"}}`))
}

// responseBuffer holds the handler's response until the renewal decision
// is made, so headers can still change after the handler returned.
type responseBuffer struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: make(http.Header)}
}

func (b *responseBuffer) Header() http.Header {
	return b.header
}

func (b *responseBuffer) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *responseBuffer) flush(w http.ResponseWriter) {
	for key, values := range b.header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write(b.body.Bytes())
}
