package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alvarodevdoo/erp/internal/auth"
	"github.com/alvarodevdoo/erp/internal/shared"
	_ "github.com/alvarodevdoo/erp/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, shared.NotFound("user")
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, companyID, id uuid.UUID) (*auth.User, error) {
	if s.user == nil || s.user.ID != id || s.user.CompanyID != companyID {
		return nil, shared.NotFound("user")
	}
	return s.user, nil
}

type stubPerms struct{ perms []string }

func (s stubPerms) EffectivePermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error) {
	return s.perms, nil
}

func newUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{
		ID:           uuid.New(),
		CompanyID:    uuid.New(),
		Name:         "Ana",
		Email:        "ana@grafica.test",
		PasswordHash: string(hash),
		IsActive:     true,
	}
}

func newService(t *testing.T, user *auth.User) *auth.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	tokens, err := auth.NewTokenIssuer("secret", "erp-test", time.Hour)
	require.NoError(t, err)
	return auth.NewService(&stubRepo{user: user}, tokens, auth.NewRevocationList(client), stubPerms{perms: []string{"quotes.view"}})
}

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := auth.NewTokenIssuer("secret", "erp-test", time.Hour)
	require.NoError(t, err)
	user := newUser(t, "secret123")

	raw, issued, err := tokens.Issue(user)
	require.NoError(t, err)

	parsed, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed.UserID)
	assert.Equal(t, user.CompanyID, parsed.CompanyID)
	assert.Equal(t, issued.TokenID, parsed.TokenID)
	assert.Equal(t, user.Email, parsed.Email)
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	issuer, err := auth.NewTokenIssuer("secret", "erp-test", time.Hour)
	require.NoError(t, err)
	other, err := auth.NewTokenIssuer("other", "erp-test", time.Hour)
	require.NoError(t, err)

	raw, _, err := other.Issue(newUser(t, "secret123"))
	require.NoError(t, err)

	_, err = issuer.Parse(raw)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, shared.StatusOf(err))
}

func TestNewTokenIssuerValidates(t *testing.T) {
	_, err := auth.NewTokenIssuer("", "erp", time.Hour)
	assert.Error(t, err)
	_, err = auth.NewTokenIssuer("secret", "erp", 0)
	assert.Error(t, err)
}

func TestLoginAndLogout(t *testing.T) {
	user := newUser(t, "secret123")
	svc := newService(t, user)
	ctx := context.Background()

	session, err := svc.Login(ctx, "ana@grafica.test", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, []string{"quotes.view"}, session.User.Permissions)

	principal, err := svc.Verify(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)

	require.NoError(t, svc.Logout(ctx, principal))

	_, err = svc.Verify(ctx, session.Token)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, shared.StatusOf(err))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	user := newUser(t, "secret123")
	svc := newService(t, user)

	_, err := svc.Login(context.Background(), "ana@grafica.test", "wrong-pass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@grafica.test", "secret123")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	user.IsActive = false
	_, err = svc.Login(context.Background(), "ana@grafica.test", "secret123")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func newRouter(svc *auth.Service) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", auth.NewHandler(nil, svc).MountRoutes)
	return r
}

func TestLoginHandler(t *testing.T) {
	user := newUser(t, "secret123")
	router := newRouter(newService(t, user))

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"ana@grafica.test","password":"secret123"}`))
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Success bool         `json:"success"`
		Data    auth.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.NotEmpty(t, body.Data.Token)

	res = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+body.Data.Token)
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"email":"ana@grafica.test"`)
}

func TestLoginHandlerInvalidCredentials(t *testing.T) {
	router := newRouter(newService(t, newUser(t, "secret123")))

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"ana@grafica.test","password":"nope-nope"}`))
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.JSONEq(t, `{"success":false,"error":{"message":"invalid credentials","status":401}}`, res.Body.String())
}

func TestLoginHandlerValidation(t *testing.T) {
	router := newRouter(newService(t, nil))

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "email must be a valid email")
	assert.Contains(t, res.Body.String(), "password is required")
}

func TestMiddlewareRequiresBearer(t *testing.T) {
	router := newRouter(newService(t, nil))

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer garbage"} {
		res := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(res, req)
		assert.Equal(t, http.StatusUnauthorized, res.Code, header)
	}
}
