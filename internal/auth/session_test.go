package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/config"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret-0123456789"

func newSessionManager() *auth.SessionManager {
	return auth.NewSessionManager(&config.AuthConfig{
		SessionSecret: testSecret,
		CookieName:    "session",
		SessionTTL:    60,
		CookieSecure:  true,
	})
}

func testUser(role domain.UserRole) *domain.User {
	branchID := uuid.New()
	user := &domain.User{
		FirstName: "Ola",
		LastName:  "Hansen",
		Username:  "ola",
		Email:     "ola@example.com",
		Role:      role,
		BranchID:  &branchID,
	}
	user.ID = uuid.New()
	return user
}

func TestSessionManager_IssueAndValidate(t *testing.T) {
	sessions := newSessionManager()
	user := testUser(domain.RoleManager)

	token, expiresAt, err := sessions.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	userCtx, err := sessions.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userCtx.UserID)
	assert.Equal(t, "ola", userCtx.Username)
	assert.Equal(t, "Ola Hansen", userCtx.FullName)
	assert.Equal(t, domain.RoleManager, userCtx.Role)
	require.NotNil(t, userCtx.BranchID)
	assert.Equal(t, *user.BranchID, *userCtx.BranchID)
}

func TestSessionManager_Rejects(t *testing.T) {
	sessions := newSessionManager()

	sign := func(claims auth.SessionClaims, secret string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	valid := func() auth.SessionClaims {
		return auth.SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				Issuer:    "fieldline-crm",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Role: string(domain.RoleTechnician),
		}
	}

	_, err := sessions.Validate(sign(valid(), testSecret))
	require.NoError(t, err, "baseline claims must validate")

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = sessions.Validate(sign(expired, testSecret))
	assert.ErrorIs(t, err, auth.ErrExpiredToken)

	_, err = sessions.Validate(sign(valid(), "another-secret"))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"
	_, err = sessions.Validate(sign(wrongIssuer, testSecret))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	badRole := valid()
	badRole.Role = "superuser"
	_, err = sessions.Validate(sign(badRole, testSecret))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = sessions.Validate("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSessionManager_Cookies(t *testing.T) {
	sessions := newSessionManager()
	token, expiresAt, err := sessions.Issue(testUser(domain.RoleTechnician))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	sessions.SetCookie(w, token, expiresAt)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookies[0])
	userCtx, err := sessions.FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnician, userCtx.Role)

	_, err = sessions.FromRequest(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.ErrorIs(t, err, auth.ErrNoSession)

	cleared := httptest.NewRecorder()
	sessions.ClearCookie(cleared)
	require.Len(t, cleared.Result().Cookies(), 1)
	assert.Equal(t, -1, cleared.Result().Cookies()[0].MaxAge)
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct-horse", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", hash)

	assert.NoError(t, auth.CheckPassword(hash, "correct-horse"))
	assert.ErrorIs(t, auth.CheckPassword(hash, "wrong"), auth.ErrInvalidCredentials)
}
