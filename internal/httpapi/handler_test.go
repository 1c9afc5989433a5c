package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"inventory/api/internal/auth"
	"inventory/api/internal/models"
	"inventory/api/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeAuth struct {
	registerFn  func(ctx context.Context, input auth.RegisterInput) (models.User, error)
	loginFn     func(ctx context.Context, email, password string) (auth.LoginResult, error)
	authorizeFn func(ctx context.Context, token string) (models.User, error)
	validateFn  func(ctx context.Context, token string) (models.User, error)
}

func (f fakeAuth) Register(ctx context.Context, input auth.RegisterInput) (models.User, error) {
	if f.registerFn == nil {
		return models.User{}, nil
	}
	return f.registerFn(ctx, input)
}

func (f fakeAuth) Login(ctx context.Context, email, password string) (auth.LoginResult, error) {
	if f.loginFn == nil {
		return auth.LoginResult{}, auth.ErrInvalidCredentials
	}
	return f.loginFn(ctx, email, password)
}

func (f fakeAuth) Authorize(ctx context.Context, token string) (models.User, error) {
	if f.authorizeFn == nil {
		return models.User{}, auth.ErrTokenMissing
	}
	return f.authorizeFn(ctx, token)
}

func (f fakeAuth) Validate(ctx context.Context, token string) (models.User, error) {
	if f.validateFn == nil {
		return models.User{}, auth.ErrTokenMissing
	}
	return f.validateFn(ctx, token)
}

// memUsers is a locked in-memory UserStore for exercising the real gateway.
type memUsers struct {
	mu    sync.Mutex
	users []models.User
}

func (m *memUsers) CreateUser(_ context.Context, input store.NewUser) (models.User, error) {
	if err := input.Validate(); err != nil {
		return models.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == input.Email {
			return models.User{}, store.ErrDuplicateEmail
		}
	}
	user := models.User{
		UserID:       uuid.NewString(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Created:      time.Now().UTC(),
	}
	m.users = append(m.users, user)
	return user, nil
}

func (m *memUsers) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrUserNotFound
}

func (m *memUsers) FindUserByID(_ context.Context, userID string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UserID == userID {
			return u, nil
		}
	}
	return models.User{}, store.ErrUserNotFound
}

func newGatewayHandler(t *testing.T) http.Handler {
	t.Helper()
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService([]byte("handler-test-secret"))
	require.NoError(t, err)
	logger := slog.New(slog.DiscardHandler)
	gw := auth.NewGateway(&memUsers{}, hasher, tokens, logger)
	return NewHandler(gw, fakeProducts{}, Options{Logger: logger}).Routes()
}

func newFakeHandler(a fakeAuth, p fakeProducts) http.Handler {
	return NewHandler(a, p, Options{Logger: slog.New(slog.DiscardHandler)}).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, payload interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), "body: %s", resp.Body.String())
	return out
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, resp)
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "no error object in %s", resp.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

func TestUserFlow_RegisterLoginValidate(t *testing.T) {
	h := newGatewayHandler(t)

	resp := doJSON(t, h, http.MethodPost, "/users/register", map[string]string{
		"firstname": "Ada",
		"lastname":  "Lovelace",
		"email":     "ada@example.com",
		"password":  "sekret123",
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["message"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", user["email"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, resp.Body.String(), "$2a$")

	resp = doJSON(t, h, http.MethodPost, "/users/login", map[string]string{
		"email":    "ada@example.com",
		"password": "sekret123",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body = decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.NotEmpty(t, body["message"])
	assert.NotContains(t, resp.Body.String(), "$2a$")

	resp = doJSON(t, h, http.MethodGet, "/users/validate", nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	user = decodeBody(t, resp)["user"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", user["email"])

	resp = doJSON(t, h, http.MethodGet, "/users/validate", nil, token+"x")
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRegister_ValidationAndDuplicateAreDistinct(t *testing.T) {
	h := newGatewayHandler(t)
	ada := map[string]string{"firstname": "Ada", "lastname": "Lovelace", "email": "ada@example.com", "password": "sekret123"}

	resp := doJSON(t, h, http.MethodPost, "/users/register", map[string]string{"firstname": "Ada", "email": "ada@example.com"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_request", errorCode(t, resp))

	resp = doJSON(t, h, http.MethodPost, "/users/register", ada, "")
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = doJSON(t, h, http.MethodPost, "/users/register", ada, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "email_taken", errorCode(t, resp))
}

func TestLogin_FailurePayloadsMatch(t *testing.T) {
	h := newGatewayHandler(t)
	resp := doJSON(t, h, http.MethodPost, "/users/register", map[string]string{
		"firstname": "Ada", "lastname": "Lovelace", "email": "ada@example.com", "password": "sekret123",
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code)

	unknown := doJSON(t, h, http.MethodPost, "/users/login", map[string]string{"email": "nobody@example.com", "password": "sekret123"}, "")
	wrong := doJSON(t, h, http.MethodPost, "/users/login", map[string]string{"email": "ada@example.com", "password": "nope"}, "")

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
}

func TestLogin_MissingFields(t *testing.T) {
	h := newGatewayHandler(t)

	resp := doJSON(t, h, http.MethodPost, "/users/login", map[string]string{"email": "ada@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_request", errorCode(t, resp))
}

func TestValidate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "missing", err: auth.ErrTokenMissing, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "malformed", err: auth.ErrTokenMalformed, wantStatus: http.StatusForbidden, wantCode: "token_malformed"},
		{name: "expired", err: auth.ErrTokenExpired, wantStatus: http.StatusForbidden, wantCode: "token_expired"},
		{name: "bad signature", err: auth.ErrTokenSignature, wantStatus: http.StatusForbidden, wantCode: "token_invalid_signature"},
		{name: "user gone", err: auth.ErrUserNotFound, wantStatus: http.StatusNotFound, wantCode: "user_not_found"},
		{name: "internal", err: auth.ErrInternal, wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newFakeHandler(fakeAuth{
				validateFn: func(ctx context.Context, token string) (models.User, error) {
					return models.User{}, tt.err
				},
			}, fakeProducts{})

			resp := doJSON(t, h, http.MethodGet, "/users/validate", nil, "some-token")
			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, resp))
		})
	}
}

func TestValidate_BearerParsing(t *testing.T) {
	var seen []string
	h := newFakeHandler(fakeAuth{
		validateFn: func(ctx context.Context, token string) (models.User, error) {
			seen = append(seen, token)
			if token == "" {
				return models.User{}, auth.ErrTokenMissing
			}
			return models.User{UserID: "u1", Email: "ada@example.com"}, nil
		},
	}, fakeProducts{})

	for _, header := range []string{"", "Bearer", "Token abc", "Bearer a b", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/users/validate", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code, "header %q", header)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/validate", nil)
	req.Header.Set("Authorization", "bearer abc")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "abc", seen[len(seen)-1])
}

func TestRegister_BadRequests(t *testing.T) {
	h := newFakeHandler(fakeAuth{}, fakeProducts{})

	req := httptest.NewRequest(http.MethodPost, "/users/register", bytes.NewBufferString("{not json"))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_json", errorCode(t, resp))

	req = httptest.NewRequest(http.MethodPost, "/users/register", bytes.NewBufferString(`{"firstname":"a","role":"admin"}`))
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/users/register", nil)
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}

func TestHealthz(t *testing.T) {
	h := newFakeHandler(fakeAuth{}, fakeProducts{})

	resp := doJSON(t, h, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}
