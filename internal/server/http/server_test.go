package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

type env struct {
	srv    *httptest.Server
	tokens *auth.TokenManager
	repo   users.Repository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	hasher, err := cryptox.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tm, err := auth.NewTokenManager([]byte("http-test-secret"))
	require.NoError(t, err)
	repo := users.NewMemoryRepository()
	m := metrics.New()

	svc := services.NewUserService(repo, hasher, tm, services.WithMetrics(m))
	s := NewHTTPServer("", logging.Nop(), svc, tm, m)

	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return &env{srv: ts, tokens: tm, repo: repo}
}

func (e *env) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		payload = b
	}

	req, err := http.NewRequest(method, e.srv.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

func (e *env) registerAndLogin(t *testing.T, email, role string) string {
	t.Helper()
	code, _ := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": "secret123", "role": role})
	require.Equal(t, http.StatusCreated, code)

	code, body := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, code)

	var tr tokenResponse
	require.NoError(t, json.Unmarshal(body, &tr))
	return tr.Token
}

// --- tests ---

func TestScenario_RegisterLoginProtectedAccess(t *testing.T) {
	e := newEnv(t)

	code, _ := e.do(t, http.MethodPost, "/auth/register", "",
		map[string]string{"email": "a@x.com", "password": "secret123", "role": "user"})
	assert.Equal(t, http.StatusCreated, code)

	code, body := e.do(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": "a@x.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, code)
	var tr tokenResponse
	require.NoError(t, json.Unmarshal(body, &tr))
	require.NotEmpty(t, tr.Token)

	code, _ = e.do(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = e.do(t, http.MethodGet, "/auth/me", tr.Token, nil)
	require.Equal(t, http.StatusOK, code)

	var id models.Identity
	require.NoError(t, json.Unmarshal(body, &id))
	stored, err := e.repo.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, id.SubjectID)
	assert.Equal(t, "user", id.Role)
}

func TestRegister_Responses(t *testing.T) {
	e := newEnv(t)
	body := map[string]string{"email": "a@x.com", "password": "secret123", "role": "user"}

	code, _ := e.do(t, http.MethodPost, "/auth/register", "", body)
	assert.Equal(t, http.StatusCreated, code)

	code, resp := e.do(t, http.MethodPost, "/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(resp), "email already registered")

	code, _ = e.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "bad", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodPost, "/auth/register", "", map[string]any{"email": "b@x.com", "password": "secret123", "admin": true})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRegister_ResponseCarriesNoHash(t *testing.T) {
	e := newEnv(t)
	code, body := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "a@x.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, code)
	assert.NotContains(t, string(body), "$2a$")
	assert.NotContains(t, string(body), "password")
}

func TestLogin_UnknownEmailIs404(t *testing.T) {
	e := newEnv(t)
	code, _ := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ghost@x.com", "password": "secret123"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLogin_MalformedJSON(t *testing.T) {
	e := newEnv(t)
	resp, err := e.srv.Client().Post(e.srv.URL+"/auth/login", "application/json", strings.NewReader(`{"email":`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGate_RejectsBadTokens(t *testing.T) {
	e := newEnv(t)
	good := e.registerAndLogin(t, "a@x.com", "user")

	other, err := auth.NewTokenManager([]byte("another-secret"))
	require.NoError(t, err)
	forged, err := other.Issue("someone", "admin")
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": forged,
		"tampered":     good[:len(good)-3] + "xyz",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			code, _ := e.do(t, http.MethodGet, "/users", tok, nil)
			assert.Equal(t, http.StatusUnauthorized, code)
		})
	}

	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/users", nil)
	require.NoError(t, err)
	req.Header.Set(common.AuthorizationHeaderName, "Basic "+good)
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

type recordingUsers struct {
	UserService
	called bool
}

func (p *recordingUsers) List(context.Context) ([]models.User, error) {
	p.called = true
	return nil, nil
}

func TestGate_HandlerNotReachedWithoutToken(t *testing.T) {
	tm, err := auth.NewTokenManager([]byte("k"))
	require.NoError(t, err)
	us := &recordingUsers{}
	s := NewHTTPServer("", logging.Nop(), us, tm, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, us.called)
}

func TestUsersCRUD(t *testing.T) {
	e := newEnv(t)
	tok := e.registerAndLogin(t, "admin@x.com", "admin")

	code, body := e.do(t, http.MethodPost, "/users", tok, map[string]string{"email": "b@x.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, code)
	var createdResp struct {
		Message string      `json:"message"`
		User    models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &createdResp))
	assert.Equal(t, "user created", createdResp.Message)
	assert.Equal(t, "user", createdResp.User.Role)
	assert.NotContains(t, string(body), "password")
	created := createdResp.User

	code, body = e.do(t, http.MethodGet, "/users", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var list []models.User
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 2)

	code, _ = e.do(t, http.MethodGet, "/users/"+created.ID, tok, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = e.do(t, http.MethodPut, "/users/"+created.ID, tok, map[string]string{"role": "editor"})
	require.Equal(t, http.StatusOK, code)
	var updated struct {
		Message string      `json:"message"`
		User    models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "user updated", updated.Message)
	assert.Equal(t, "editor", updated.User.Role)

	code, _ = e.do(t, http.MethodPut, "/users/"+created.ID, tok, map[string]string{"email": "admin@x.com"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodPut, "/users/nope", tok, map[string]string{"role": "x"})
	assert.Equal(t, http.StatusNotFound, code)

	code, body = e.do(t, http.MethodDelete, "/users/"+created.ID, tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"message":"user deleted"}`, string(body))

	code, _ = e.do(t, http.MethodDelete, "/users/"+created.ID, tok, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok","message":"server running"}`, string(body))

	e.registerAndLogin(t, "a@x.com", "user")
	_, _ = e.do(t, http.MethodGet, "/users", "", nil)

	code, body = e.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `gophauth_auth_requests_total{operation="login",outcome="ok"} 1`)
	assert.Contains(t, string(body), `gophauth_token_verifications_total{outcome="missing"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: bad", common.ErrorValidation), http.StatusBadRequest},
		{common.ErrEmailTaken, http.StatusBadRequest},
		{common.ErrUserNotFound, http.StatusNotFound},
		{common.ErrInvalidCredentials, http.StatusBadRequest},
		{common.ErrTokenExpired, http.StatusUnauthorized},
		{common.Internal("db", "login", errors.New("dsn=postgres://secret")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, msg := statusFor(tt.err)
		assert.Equal(t, tt.code, code)
		assert.NotContains(t, msg, "secret")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := NewHTTPServer("127.0.0.1:0", logging.Nop(), nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBusyAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := NewHTTPServer(ln.Addr().String(), logging.Nop(), nil, nil, nil)
	assert.Error(t, s.Run(context.Background()))
}
