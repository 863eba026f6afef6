package approvals_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	approvals "github.com/goliatone/go-approvals"
)

type httpFixture struct {
	app         *fiber.App
	repos       approvals.RepositoryManager
	tokens      *approvals.TokenServiceImpl
	broadcaster *approvals.Broadcaster
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()
	hasher := newTestHasher()
	repos := approvals.NewMemoryRepositoryManager()
	require.NoError(t, approvals.NewSeeder(repos, hasher, nopLogger{}).Seed(context.Background(), false))

	tokens := newTestTokenService()
	broadcaster := approvals.NewBroadcaster(approvals.WithBroadcasterLogger(nopLogger{}))

	auther := approvals.NewAuthenticator(
		approvals.NewRequesterProvider(repos.Requesters(), hasher),
		approvals.NewAdminProvider(repos.AdminUsers(), hasher),
		tokens,
	).WithLogger(nopLogger{})

	tasks := approvals.NewTaskService(repos.Tasks(),
		approvals.WithTaskPublisher(broadcaster),
		approvals.WithTaskLogger(nopLogger{}),
	)
	directory := approvals.NewAdminDirectory(repos.AdminUsers(), hasher,
		approvals.WithDirectoryPublisher(broadcaster),
		approvals.WithDirectoryLogger(nopLogger{}),
	)

	app := approvals.NewFiberApp(approvals.ServerOptions{Logger: nopLogger{}})
	controller := approvals.NewController(auther, approvals.NewHTTPAuthenticator(tokens, nopLogger{}), tasks, directory,
		approvals.WithControllerLogger(nopLogger{}),
		approvals.WithEventStream(approvals.NewEventStream(broadcaster, nopLogger{})),
	)
	controller.RegisterRoutes(app)

	return &httpFixture{app: app, repos: repos, tokens: tokens, broadcaster: broadcaster}
}

func (f *httpFixture) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any, []any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := f.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	_ = res.Body.Close()

	trimmed := strings.TrimSpace(string(raw))
	switch {
	case strings.HasPrefix(trimmed, "{"):
		obj := map[string]any{}
		require.NoError(t, json.Unmarshal(raw, &obj))
		return res, obj, nil
	case strings.HasPrefix(trimmed, "["):
		var list []any
		require.NoError(t, json.Unmarshal(raw, &list))
		return res, nil, list
	}
	return res, nil, nil
}

func (f *httpFixture) login(t *testing.T, kind, email, password string) string {
	t.Helper()
	res, body, _ := f.do(t, http.MethodPost, "/auth/"+kind+"/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHTTP_Health(t *testing.T) {
	f := newHTTPFixture(t)
	res, body, _ := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestHTTP_Login(t *testing.T) {
	f := newHTTPFixture(t)

	t.Run("user login returns token and user", func(t *testing.T) {
		res, body, _ := f.do(t, http.MethodPost, "/auth/user/login", "", map[string]string{"email": "user1@test.com", "password": "123456"})
		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.NotEmpty(t, body["token"])
		user := body["user"].(map[string]any)
		assert.Equal(t, "user1@test.com", user["email"])
		assert.NotContains(t, user, "passwordHash")
	})

	t.Run("admin login returns admin without hash", func(t *testing.T) {
		res, body, _ := f.do(t, http.MethodPost, "/auth/admin/login", "", map[string]string{"email": "moderator@test.com", "password": "mod123"})
		require.Equal(t, http.StatusOK, res.StatusCode)
		admin := body["admin"].(map[string]any)
		assert.Equal(t, "Moderator", admin["role"])
		assert.NotContains(t, admin, "passwordHash")
	})

	t.Run("bad credentials are 401", func(t *testing.T) {
		res, body, _ := f.do(t, http.MethodPost, "/auth/admin/login", "", map[string]string{"email": "admin@test.com", "password": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, approvals.TextCodeInvalidCredentials, body["textCode"])
	})

	t.Run("missing fields are 401", func(t *testing.T) {
		res, _, _ := f.do(t, http.MethodPost, "/auth/user/login", "", map[string]string{"email": "user1@test.com"})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})
}

func TestHTTP_Authentication(t *testing.T) {
	f := newHTTPFixture(t)
	userToken := f.login(t, "user", "user1@test.com", "123456")
	adminToken := f.login(t, "admin", "admin@test.com", "admin123")

	t.Run("missing token", func(t *testing.T) {
		res, body, _ := f.do(t, http.MethodGet, "/tasks", "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, approvals.TextCodeUnauthenticated, body["textCode"])
	})

	t.Run("garbage token", func(t *testing.T) {
		res, _, _ := f.do(t, http.MethodGet, "/tasks", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("user token on admin endpoint", func(t *testing.T) {
		res, body, _ := f.do(t, http.MethodGet, "/admin/tasks", userToken, nil)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
		assert.Equal(t, approvals.TextCodeWrongSubjectType, body["textCode"])
	})

	t.Run("admin token on user endpoint", func(t *testing.T) {
		res, body, _ := f.do(t, http.MethodGet, "/tasks", adminToken, nil)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
		assert.Equal(t, approvals.TextCodeWrongSubjectType, body["textCode"])
	})

	t.Run("session accepts either kind", func(t *testing.T) {
		res, body, _ := f.do(t, http.MethodGet, "/auth/session", userToken, nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "user", body["subjectType"])

		res, body, _ = f.do(t, http.MethodGet, "/auth/session", adminToken, nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "admin", body["subjectType"])
		assert.Equal(t, "Admin", body["role"])
	})
}

func TestHTTP_TaskLifecycle(t *testing.T) {
	f := newHTTPFixture(t)
	user1 := f.login(t, "user", "user1@test.com", "123456")
	user2 := f.login(t, "user", "user2@test.com", "123456")
	moderator := f.login(t, "admin", "moderator@test.com", "mod123")
	viewer := f.login(t, "admin", "viewer@test.com", "viewer123")

	res, created, _ := f.do(t, http.MethodPost, "/tasks", user1, map[string]string{
		"title":       "Monitor replacement",
		"description": "The office monitor is broken",
		"priority":    "high",
		"category":    "technical-support",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, created)
	assert.Equal(t, "pending", created["status"])
	taskID := created["id"].(string)

	_, _, mine := f.do(t, http.MethodGet, "/tasks", user1, nil)
	assert.Len(t, mine, 1)
	_, _, theirs := f.do(t, http.MethodGet, "/tasks", user2, nil)
	assert.Len(t, theirs, 0)

	res, _, all := f.do(t, http.MethodGet, "/admin/tasks", viewer, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, all, 1)

	res, body, _ := f.do(t, http.MethodPatch, "/tasks/"+taskID+"/approve", viewer, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, approvals.TextCodeForbidden, body["textCode"])

	res, body, _ = f.do(t, http.MethodPatch, "/tasks/"+taskID+"/reject", viewer, map[string]string{"rejectionReason": "no"})
	assert.Equal(t, http.StatusForbidden, res.StatusCode, body)

	res, body, _ = f.do(t, http.MethodPatch, "/tasks/"+taskID+"/reject", moderator, map[string]string{"rejectionReason": "   "})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, approvals.TextCodeValidation, body["textCode"])

	res, _, _ = f.do(t, http.MethodPatch, "/tasks/"+taskID+"/reject", moderator, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, body, _ = f.do(t, http.MethodPatch, "/tasks/"+taskID+"/reject", moderator, map[string]string{"rejectionReason": strings.Repeat("r", 501)})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode, body)

	res, body, _ = f.do(t, http.MethodPatch, "/tasks/"+taskID+"/reject", moderator, map[string]string{"rejectionReason": "Over budget"})
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Equal(t, "rejected", body["status"])
	assert.Equal(t, "Over budget", body["rejectionReason"])

	_, _, rejected := f.do(t, http.MethodGet, "/admin/tasks?status=rejected", viewer, nil)
	require.Len(t, rejected, 1)
	assert.Equal(t, "Over budget", rejected[0].(map[string]any)["rejectionReason"])

	res, _, _ = f.do(t, http.MethodGet, "/admin/tasks?status=archived", viewer, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, body, _ = f.do(t, http.MethodPatch, "/tasks/"+taskID+"/approve", moderator, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode, body)

	res, _, _ = f.do(t, http.MethodPatch, "/tasks/"+uuid.NewString()+"/approve", moderator, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _, _ = f.do(t, http.MethodPatch, "/tasks/not-a-uuid/approve", moderator, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, body, _ = f.do(t, http.MethodPost, "/tasks", user1, map[string]string{
		"title":       strings.Repeat("t", 201),
		"description": "d",
		"priority":    "low",
		"category":    "other",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode, body)

	_, _, mine = f.do(t, http.MethodGet, "/tasks", user1, nil)
	assert.Len(t, mine, 1)
}

func TestHTTP_AdminDirectory(t *testing.T) {
	f := newHTTPFixture(t)
	admin := f.login(t, "admin", "admin@test.com", "admin123")
	viewer := f.login(t, "admin", "viewer@test.com", "viewer123")
	user := f.login(t, "user", "user1@test.com", "123456")

	_, _, listed := f.do(t, http.MethodGet, "/admin-users", viewer, nil)
	assert.Len(t, listed, 3)
	for _, item := range listed {
		assert.NotContains(t, item.(map[string]any), "passwordHash")
	}

	payload := map[string]string{"name": "New Mod", "email": "newmod@test.com", "role": "Moderator", "password": "secret1"}

	res, _, _ := f.do(t, http.MethodPost, "/admin-users", viewer, payload)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, _, _ = f.do(t, http.MethodPost, "/admin-users", user, payload)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, created, _ := f.do(t, http.MethodPost, "/admin-users", admin, payload)
	require.Equal(t, http.StatusCreated, res.StatusCode, created)
	assert.NotContains(t, created, "passwordHash")
	id := created["id"].(string)

	res, body, _ := f.do(t, http.MethodPost, "/admin-users", admin, payload)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, approvals.TextCodeEmailConflict, body["textCode"])

	_, _, listed = f.do(t, http.MethodGet, "/admin-users", admin, nil)
	assert.Len(t, listed, 4)

	bad := map[string]string{"name": "x", "email": "x@test.com", "role": "Viewer", "password": "123"}
	res, _, _ = f.do(t, http.MethodPost, "/admin-users", admin, bad)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, updated, _ := f.do(t, http.MethodPut, "/admin-users/"+id, admin, map[string]string{"name": "Promoted", "email": "newmod@test.com", "role": "Admin"})
	require.Equal(t, http.StatusOK, res.StatusCode, updated)
	assert.Equal(t, "Admin", updated["role"])

	// update without a password keeps the stored credential
	f.login(t, "admin", "newmod@test.com", "secret1")

	res, _, _ = f.do(t, http.MethodPut, "/admin-users/"+uuid.NewString(), admin, map[string]string{"name": "x", "email": "ghost@test.com", "role": "Viewer"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _, _ = f.do(t, http.MethodDelete, "/admin-users/"+id, viewer, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, _, _ = f.do(t, http.MethodDelete, "/admin-users/"+id, admin, nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res, _, _ = f.do(t, http.MethodDelete, "/admin-users/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, body, _ = f.do(t, http.MethodPost, "/auth/admin/login", "", map[string]string{"email": "newmod@test.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, approvals.TextCodeInvalidCredentials, body["textCode"])
}
