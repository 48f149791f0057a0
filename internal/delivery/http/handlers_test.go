package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopfloor/backend/internal/auth"
	"github.com/shopfloor/backend/internal/domain"
	"github.com/shopfloor/backend/internal/middleware"
	"github.com/shopfloor/backend/internal/usecase"
)

// --- in-memory fakes ---

type fakeUserRepo struct {
	seq   int64
	users map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*domain.User{}}
}

func (r *fakeUserRepo) Create(user *domain.User) error {
	r.seq++
	user.ID = r.seq
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(id int64) (*domain.User, error) { return r.users[id], nil }

func (r *fakeUserRepo) GetByEmail(email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) List() ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) Update(user *domain.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdatePassword(id int64, hash string) error {
	if u, ok := r.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (r *fakeUserRepo) UpdateRole(id, roleID int64) error {
	if u, ok := r.users[id]; ok {
		u.RoleID = roleID
	}
	return nil
}

func (r *fakeUserRepo) Delete(id int64) error {
	delete(r.users, id)
	return nil
}

type fakeRoleRepo struct {
	roles map[int64]*domain.Role
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: map[int64]*domain.Role{
		1: {ID: 1, Name: domain.RoleUser},
		2: {ID: 2, Name: domain.RoleAdmin},
	}}
}

func (r *fakeRoleRepo) GetByID(id int64) (*domain.Role, error) { return r.roles[id], nil }

func (r *fakeRoleRepo) GetByName(name string) (*domain.Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return nil, nil
}

func (r *fakeRoleRepo) List() ([]*domain.Role, error) {
	var out []*domain.Role
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

type fakeTokenRepo struct {
	seq    int64
	tokens map[string]*domain.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]*domain.RefreshToken{}}
}

func (r *fakeTokenRepo) Create(token *domain.RefreshToken) error {
	r.seq++
	token.ID = r.seq
	stored := *token
	r.tokens[token.TokenHash] = &stored
	return nil
}

func (r *fakeTokenRepo) GetByUserID(userID int64) (*domain.RefreshToken, error) {
	for _, t := range r.tokens {
		if t.UserID == userID {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTokenRepo) Consume(tokenHash string) (*domain.RefreshToken, error) {
	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, nil
	}
	delete(r.tokens, tokenHash)
	return token, nil
}

func (r *fakeTokenRepo) DeleteByUserID(userID int64) error {
	for hash, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, hash)
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteExpired() error { return nil }

// --- test server ---

func newTestServer(t *testing.T) (http.Handler, *fakeUserRepo, *fakeTokenRepo) {
	t.Helper()
	userRepo := newFakeUserRepo()
	roleRepo := newFakeRoleRepo()
	tokenRepo := newFakeTokenRepo()

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	signer := auth.NewJWTSigner("test-secret", time.Minute)

	authUsecase := usecase.NewAuthUsecase(userRepo, tokenRepo, hasher, signer, time.Hour)
	userUsecase := usecase.NewUserUsecase(userRepo, roleRepo, hasher)

	handler := NewHandler(authUsecase, userUsecase, nil)
	authMiddleware := middleware.NewAuthMiddleware(authUsecase, userUsecase, roleRepo)
	return NewRouter(handler, authMiddleware, zap.NewNop(), []string{"*"}), userRepo, tokenRepo
}

func seedUser(t *testing.T, repo *fakeUserRepo, email, password string, roleID int64) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{Email: email, PasswordHash: string(hash), RoleID: roleID}
	require.NoError(t, repo.Create(user))
	return user
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- login ---

func TestLoginHandler_Success(t *testing.T) {
	router, userRepo, tokenRepo := newTestServer(t)
	seedUser(t, userRepo, "a@b.com", "secret", 1)

	rec := doJSON(t, router, "POST", "/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "secret",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		Role         string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "user", resp.Role)
	assert.Len(t, tokenRepo.tokens, 1)
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	router, userRepo, _ := newTestServer(t)
	seedUser(t, userRepo, "a@b.com", "secret", 1)

	rec := doJSON(t, router, "POST", "/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "wrong",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler_UnknownEmailSameStatus(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := doJSON(t, router, "POST", "/auth/login", map[string]string{
		"email":    "nobody@b.com",
		"password": "secret",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler_ValidationFields(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := doJSON(t, router, "POST", "/auth/login", map[string]string{}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "email")
	assert.Contains(t, resp.Fields, "password")
}

// --- refresh ---

func login(t *testing.T, router http.Handler, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	rec := doJSON(t, router, "POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken, resp.RefreshToken
}

func TestRefreshHandler_MissingHeader(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := doJSON(t, router, "POST", "/auth/token/refresh", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshHandler_UnknownToken(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := doJSON(t, router, "POST", "/auth/token/refresh", nil, map[string]string{
		"refresh_token": "never-issued",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshHandler_RotatesToken(t *testing.T) {
	router, userRepo, tokenRepo := newTestServer(t)
	seedUser(t, userRepo, "a@b.com", "secret", 1)
	_, refreshToken := login(t, router, "a@b.com", "secret")

	rec := doJSON(t, router, "POST", "/auth/token/refresh", nil, map[string]string{
		"refresh_token": refreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var pair domain.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, refreshToken, pair.RefreshToken)
	assert.Len(t, tokenRepo.tokens, 1)

	// The consumed value is single-use.
	rec = doJSON(t, router, "POST", "/auth/token/refresh", nil, map[string]string{
		"refresh_token": refreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Len(t, tokenRepo.tokens, 1)
}

func TestRefreshHandler_ExpiredSession(t *testing.T) {
	router, userRepo, tokenRepo := newTestServer(t)
	seedUser(t, userRepo, "a@b.com", "secret", 1)
	_, refreshToken := login(t, router, "a@b.com", "secret")

	for _, record := range tokenRepo.tokens {
		record.ExpiresAt = time.Now().Add(-time.Minute)
	}

	rec := doJSON(t, router, "POST", "/auth/token/refresh", nil, map[string]string{
		"refresh_token": refreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Session expired", resp.Error)
	assert.Empty(t, tokenRepo.tokens)
}

// --- register / users ---

func TestRegisterHandler_CreatesUserWithDefaultRole(t *testing.T) {
	router, userRepo, _ := newTestServer(t)

	rec := doJSON(t, router, "POST", "/auth/register", map[string]string{
		"email":      "new@b.com",
		"password":   "secret",
		"first_name": "Ada",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
		Tokens domain.TokenPair `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "new@b.com", resp.User.Email)
	assert.Equal(t, "user", resp.User.Role)
	assert.NotEmpty(t, resp.Tokens.AccessToken)

	// No password material in the response body.
	assert.NotContains(t, rec.Body.String(), "password")

	stored, err := userRepo.GetByEmail("new@b.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestRegisterHandler_DuplicateEmail(t *testing.T) {
	router, userRepo, _ := newTestServer(t)
	seedUser(t, userRepo, "dup@b.com", "secret", 1)

	rec := doJSON(t, router, "POST", "/auth/register", map[string]string{
		"email":    "dup@b.com",
		"password": "secret",
	}, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCurrentUserHandler(t *testing.T) {
	router, userRepo, _ := newTestServer(t)
	seedUser(t, userRepo, "a@b.com", "secret", 1)
	accessToken, _ := login(t, router, "a@b.com", "secret")

	rec := doJSON(t, router, "GET", "/users/me", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var view domain.UserView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "a@b.com", view.Email)
	assert.Equal(t, "user", view.Role)
}

func TestListUsersHandler_RequiresAdmin(t *testing.T) {
	router, userRepo, _ := newTestServer(t)
	seedUser(t, userRepo, "plain@b.com", "secret", 1)
	seedUser(t, userRepo, "admin@b.com", "secret", 2)

	accessToken, _ := login(t, router, "plain@b.com", "secret")
	rec := doJSON(t, router, "GET", "/users/", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken, _ := login(t, router, "admin@b.com", "secret")
	rec = doJSON(t, router, "GET", "/users/", nil, map[string]string{
		"Authorization": "Bearer " + adminToken,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
