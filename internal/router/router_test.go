package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-contacts-api/internal/auth"
	"go-contacts-api/internal/cache"
	"go-contacts-api/internal/config"
	"go-contacts-api/internal/handler"
	"go-contacts-api/internal/mailer"
	"go-contacts-api/internal/middleware"
	"go-contacts-api/internal/model"
	"go-contacts-api/internal/repository"
	"go-contacts-api/internal/service"
)

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (o *outbox) Enqueue(_ context.Context, msg mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) last(t *testing.T, kind mailer.Kind) mailer.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].Kind == kind {
			return o.sent[i]
		}
	}
	t.Fatalf("no %s message sent", kind)
	return mailer.Message{}
}

type testServer struct {
	*httptest.Server
	auth  *service.AuthService
	mail  *outbox
	users *repository.MemoryUserRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		RequestTimeout:       5 * time.Second,
		CORSOrigins:          []string{"*"},
		RateLimitRPM:         0,
		AuthRateLimitRPM:     1000,
		ContactsRateInterval: time.Hour,
	}

	codec, err := auth.NewTokenCodec("router-test-secret")
	require.NoError(t, err)

	users := repository.NewMemoryUserRepository()
	mail := &outbox{}
	authService := service.NewAuthService(users, auth.NewPasswordHasher(4), codec, cache.NewMemoryStore(), mail, service.AuthConfig{})
	contactService := service.NewContactService(repository.NewMemoryContactRepository())

	h := New(cfg, middleware.NewAuthMiddleware(authService), Handlers{
		Auth:    handler.NewAuthHandler(authService, ""),
		Contact: handler.NewContactHandler(contactService),
		Search:  handler.NewSearchHandler(contactService),
		Health:  handler.NewHealthHandler(nil),
		Docs:    handler.NewDocsHandler(),
	})

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	return &testServer{Server: server, auth: authService, mail: mail, users: users}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
	Meta    *model.Meta     `json:"meta"`
}

func (s *testServer) do(t *testing.T, method string, path string, token string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func (s *testServer) loginForm(t *testing.T, email string, password string) (int, model.TokenPair) {
	t.Helper()

	form := url.Values{"username": {email}, "password": {password}}
	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/auth/login", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, env := s.send(t, req)
	var pair model.TokenPair
	if status == http.StatusOK {
		require.NoError(t, json.Unmarshal(env.Data, &pair))
	}
	return status, pair
}

func (s *testServer) loginMultipart(t *testing.T, email string, password string) (int, model.TokenPair) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("username", email))
	require.NoError(t, mw.WriteField("password", password))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/auth/login", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	status, env := s.send(t, req)
	var pair model.TokenPair
	if status == http.StatusOK {
		require.NoError(t, json.Unmarshal(env.Data, &pair))
	}
	return status, pair
}

func TestLoginMultipartForm(t *testing.T) {
	s := newTestServer(t)

	_, err := s.auth.CreateUser(context.Background(), "frank", "frank@x.com", "secret1", model.RoleUser, true)
	require.NoError(t, err)

	status, pair := s.loginMultipart(t, "frank@x.com", "secret1")
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	status, _ = s.loginMultipart(t, "frank@x.com", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/api/auth/signup", "", model.SignupRequest{
		Username: "alice", Email: "alice@x.com", Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.NotContains(t, string(env.Data), "password")

	status, _ = s.do(t, http.MethodPost, "/api/auth/signup", "", model.SignupRequest{
		Username: "alice", Email: "alice@x.com", Password: "secret1",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.loginForm(t, "alice@x.com", "secret1")
	assert.Equal(t, http.StatusUnauthorized, status)

	confirm := s.mail.last(t, mailer.KindConfirmEmail)
	assert.Equal(t, s.URL+"/", confirm.BaseURL)

	status, env = s.do(t, http.MethodGet, "/api/auth/confirmed_email/"+confirm.Token, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), service.MsgEmailConfirmed)

	status, pair := s.loginForm(t, "alice@x.com", "secret1")
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodGet, "/api/auth/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "alice@x.com")

	status, env = s.do(t, http.MethodGet, "/api/auth/refresh_token", pair.RefreshToken, nil)
	require.Equal(t, http.StatusOK, status)
	var rotated model.TokenPair
	require.NoError(t, json.Unmarshal(env.Data, &rotated))

	status, _ = s.do(t, http.MethodGet, "/api/auth/refresh_token", pair.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.do(t, http.MethodGet, "/api/auth/refresh_token", rotated.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/auth/confirmed_email/not-a-token", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	_, err := s.auth.CreateUser(context.Background(), "bob", "bob@x.com", "secret1", model.RoleUser, true)
	require.NoError(t, err)

	status, unknown := s.do(t, http.MethodPost, "/api/auth/reset_password", "", model.EmailRequest{Email: "ghost@x.com"})
	require.Equal(t, http.StatusOK, status)
	status, known := s.do(t, http.MethodPost, "/api/auth/reset_password", "", model.EmailRequest{Email: "bob@x.com"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, string(unknown.Data), string(known.Data))

	token := s.mail.last(t, mailer.KindResetPassword).Token

	status, _ = s.do(t, http.MethodGet, "/api/auth/form_reset_password/"+token, "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/api/auth/form_reset_password/"+token, "", model.ResetPasswordRequest{Password1: "newpass1", Password2: "other12"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/api/auth/form_reset_password/"+token, "", model.ResetPasswordRequest{Password1: "newpass1", Password2: "newpass1"})
	require.Equal(t, http.StatusOK, status)

	status, _ = s.loginForm(t, "bob@x.com", "newpass1")
	assert.Equal(t, http.StatusOK, status)
}

func TestContactsFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.auth.CreateUser(ctx, "carol", "carol@x.com", "secret1", model.RoleUser, true)
	require.NoError(t, err)
	_, err = s.auth.CreateUser(ctx, "root", "root@x.com", "secret1", model.RoleAdmin, true)
	require.NoError(t, err)

	_, carol := s.loginForm(t, "carol@x.com", "secret1")
	_, root := s.loginForm(t, "root@x.com", "secret1")

	status, _ := s.do(t, http.MethodGet, "/contacts/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := s.do(t, http.MethodPost, "/contacts/", carol.AccessToken, model.ContactRequest{
		Name: "Ann", Surname: "Lee", Email: "ann@x.com", Phone: "+380501234567", Birthday: "2024-03-10",
	})
	require.Equal(t, http.StatusCreated, status)
	var created model.Contact
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// one create per interval per caller
	status, _ = s.do(t, http.MethodPost, "/contacts/", carol.AccessToken, model.ContactRequest{
		Name: "Ann", Surname: "Lee", Email: "other@x.com", Phone: "1",
	})
	assert.Equal(t, http.StatusTooManyRequests, status)

	status, env = s.do(t, http.MethodGet, "/contacts/?limit=10&offset=0", carol.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 1, env.Meta.Count)

	status, _ = s.do(t, http.MethodGet, "/contacts/?limit=5", root.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/contacts/all", carol.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, env = s.do(t, http.MethodGet, "/contacts/all", root.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, env.Meta.Count)

	path := "/contacts/" + jsonNumber(created.ID)
	status, _ = s.do(t, http.MethodGet, path, root.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = s.do(t, http.MethodGet, path, carol.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodGet, "/search/birthday?birthday=2024-03-08&n=5", carol.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "ann@x.com")

	status, env = s.do(t, http.MethodGet, "/search/birthday?birthday=2024-03-11&n=5", carol.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(env.Data))

	status, _ = s.do(t, http.MethodGet, "/search/email?email=ann@x.com", carol.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/search/name?name=ANN", carol.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPut, path, carol.AccessToken, model.ContactRequest{
		Name: "Anna", Surname: "Lee", Email: "ann@x.com", Phone: "1",
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodDelete, path, root.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = s.do(t, http.MethodDelete, path, carol.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = s.do(t, http.MethodDelete, path, carol.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthAndHeaders(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	docs, err := http.Get(s.URL + "/openapi.yaml")
	require.NoError(t, err)
	defer docs.Body.Close()
	assert.Equal(t, http.StatusOK, docs.StatusCode)
}

func jsonNumber(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
