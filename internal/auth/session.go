package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldline/crm-api/internal/config"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrNoSession    = errors.New("no session")
)

const sessionIssuer = "fieldline-crm"

// SessionClaims are carried in the session cookie
type SessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	BranchID string `json:"branch,omitempty"`
}

// SessionManager issues and validates HS256 session tokens and the cookie carrying them
type SessionManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

// NewSessionManager creates a SessionManager from auth configuration
func NewSessionManager(cfg *config.AuthConfig) *SessionManager {
	name := cfg.CookieName
	if name == "" {
		name = "session"
	}
	return &SessionManager{
		secret:     []byte(cfg.SessionSecret),
		ttl:        cfg.SessionTTLDuration(),
		cookieName: name,
		secure:     cfg.CookieSecure,
		now:        time.Now,
	}
}

// CookieName returns the session cookie name
func (s *SessionManager) CookieName() string {
	return s.cookieName
}

// Issue signs a session token for user
func (s *SessionManager) Issue(user *domain.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Username: user.Username,
		Name:     user.FullName(),
		Email:    user.Email,
		Role:     string(user.Role),
	}
	if user.BranchID != nil {
		claims.BranchID = user.BranchID.String()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, expiresAt, nil
}

// Validate parses a session token into a user context
func (s *SessionManager) Validate(tokenString string) (*UserContext, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject", ErrInvalidToken)
	}
	role := domain.UserRole(claims.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role", ErrInvalidToken)
	}

	userCtx := &UserContext{
		UserID:   userID,
		Username: claims.Username,
		FullName: claims.Name,
		Email:    claims.Email,
		Role:     role,
	}
	if claims.BranchID != "" {
		if branchID, err := uuid.Parse(claims.BranchID); err == nil {
			userCtx.BranchID = &branchID
		}
	}
	return userCtx, nil
}

// FromRequest validates the session cookie of r
func (s *SessionManager) FromRequest(r *http.Request) (*UserContext, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	return s.Validate(cookie.Value)
}

// SetCookie writes the session cookie
func (s *SessionManager) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie
func (s *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
