package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Token constants                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	// DefaultTTL is how long an issued token stays valid.
	DefaultTTL = 7 * 24 * time.Hour

	// MinSecretLength is the shortest signing secret NewManager accepts.
	MinSecretLength = 32

	bearerPrefix = "Bearer "
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// TokenUser is the identity carried by a verified token and injected into
// r.Context(). It is a snapshot taken at login; handlers reload the user
// when they need current family or role data.
type TokenUser struct {
	ID       string
	Username string
	IsAdmin  bool
}

// ObjectID parses u.ID. ok is false for a malformed id.
func (u *TokenUser) ObjectID() (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*TokenUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*TokenUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context. Tests use it to skip
// token issuance.
func WithTestUser(r *http.Request, u *TokenUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Manager                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// Claims is the signed token payload.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// ErrorWriter renders an error response. RequireAuth uses it for 401/403.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Manager issues and verifies HS256 tokens.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	log      *zap.Logger
	writeErr ErrorWriter
	now      func() time.Time
}

// NewManager builds a Manager. ttl <= 0 selects DefaultTTL.
func NewManager(secret string, ttl time.Duration, logger *zap.Logger) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty; provide ≥%d random chars", MinSecretLength)
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret is too short (%d chars); provide ≥%d", len(secret), MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		secret:   []byte(secret),
		ttl:      ttl,
		log:      logger,
		writeErr: plainError,
		now:      time.Now,
	}, nil
}

// SetErrorWriter replaces the default plain-text error writer.
func (m *Manager) SetErrorWriter(fn ErrorWriter) {
	if fn != nil {
		m.writeErr = fn
	}
}

// SetClock overrides the time source used for issuing and verifying.
func (m *Manager) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a token for the given identity.
func (m *Manager) Issue(id primitive.ObjectID, username string, isAdmin bool) (string, error) {
	now := m.now()
	claims := Claims{
		ID:       id.Hex(),
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}

// Verify checks signature and expiry. A missing token is Unauthorized; any
// other failure is InvalidToken.
func (m *Manager) Verify(token string) (*TokenUser, error) {
	if token == "" {
		return nil, apperr.Unauthorized("access token required")
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.InvalidToken("token expired")
		}
		return nil, apperr.InvalidToken("invalid token")
	}
	if _, perr := primitive.ObjectIDFromHex(claims.ID); perr != nil {
		return nil, apperr.InvalidToken("invalid token")
	}

	return &TokenUser{ID: claims.ID, Username: claims.Username, IsAdmin: claims.IsAdmin}, nil
}

// RequireAuth verifies the Authorization header and injects the TokenUser.
//   - no token: 401
//   - bad, expired or forged token: 403
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := m.Verify(BearerToken(r))
		if err != nil {
			if apperr.IsKind(err, apperr.KindInvalidToken) {
				m.log.Debug("token rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err))
			}
			m.writeErr(w, r, err)
			return
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(bearerPrefix):])
}

// helpers

func withUser(r *http.Request, u *TokenUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func plainError(w http.ResponseWriter, _ *http.Request, err error) {
	e := apperr.As(err)
	http.Error(w, e.Message, e.HTTPStatus())
}
