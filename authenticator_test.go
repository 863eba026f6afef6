package approvals_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	approvals "github.com/goliatone/go-approvals"
)

type authFixture struct {
	repos  approvals.RepositoryManager
	tokens *approvals.TokenServiceImpl
	auther *approvals.Auther
	sink   *recordingSink
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	hasher := newTestHasher()
	repos := approvals.NewMemoryRepositoryManager()
	require.NoError(t, approvals.NewSeeder(repos, hasher, nopLogger{}).Seed(context.Background(), false))

	f := &authFixture{
		repos:  repos,
		tokens: newTestTokenService(),
		sink:   &recordingSink{},
	}
	f.auther = approvals.NewAuthenticator(
		approvals.NewRequesterProvider(repos.Requesters(), hasher),
		approvals.NewAdminProvider(repos.AdminUsers(), hasher),
		f.tokens,
	).WithLogger(nopLogger{}).WithActivitySink(f.sink)
	return f
}

func TestAuther_LoginRequester(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	t.Run("valid credentials mint a user token", func(t *testing.T) {
		session, err := f.auther.LoginRequester(ctx, approvals.LoginRequest{Email: "user1@test.com", Password: "123456"})
		require.NoError(t, err)
		require.NotNil(t, session.User)
		assert.Equal(t, "user1@test.com", session.User.Email)

		claims, err := f.tokens.ValidateFor(session.Token, approvals.SubjectUser)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID.String(), claims.UserID())

		raw, err := json.Marshal(session)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "$2a$")
	})

	t.Run("email is matched case insensitively", func(t *testing.T) {
		_, err := f.auther.LoginRequester(ctx, approvals.LoginRequest{Email: " USER2@test.com ", Password: "123456"})
		assert.NoError(t, err)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, wrongPassword := f.auther.LoginRequester(ctx, approvals.LoginRequest{Email: "user1@test.com", Password: "nope"})
		_, unknownEmail := f.auther.LoginRequester(ctx, approvals.LoginRequest{Email: "ghost@test.com", Password: "123456"})

		requireTextCode(t, wrongPassword, approvals.TextCodeInvalidCredentials)
		requireTextCode(t, unknownEmail, approvals.TextCodeInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
		assert.Equal(t, http.StatusUnauthorized, approvals.HTTPStatus(wrongPassword))
	})

	t.Run("missing fields are invalid credentials", func(t *testing.T) {
		_, err := f.auther.LoginRequester(ctx, approvals.LoginRequest{Email: "user1@test.com"})
		requireTextCode(t, err, approvals.TextCodeInvalidCredentials)
	})

	t.Run("admin accounts cannot use the requester login", func(t *testing.T) {
		_, err := f.auther.LoginRequester(ctx, approvals.LoginRequest{Email: "admin@test.com", Password: "admin123"})
		requireTextCode(t, err, approvals.TextCodeInvalidCredentials)
	})
}

func TestAuther_LoginAdmin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	cases := []struct {
		email    string
		password string
		role     approvals.AdminRole
	}{
		{"admin@test.com", "admin123", approvals.RoleAdmin},
		{"moderator@test.com", "mod123", approvals.RoleModerator},
		{"viewer@test.com", "viewer123", approvals.RoleViewer},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			session, err := f.auther.LoginAdmin(ctx, approvals.LoginRequest{Email: tc.email, Password: tc.password})
			require.NoError(t, err)
			require.NotNil(t, session.Admin)
			assert.Equal(t, tc.role, session.Admin.Role)

			claims, err := f.tokens.ValidateFor(session.Token, approvals.SubjectAdmin)
			require.NoError(t, err)
			assert.Equal(t, tc.role, claims.AdminRole())

			raw, err := json.Marshal(session)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), "passwordHash")
			assert.NotContains(t, string(raw), session.Admin.PasswordHash)
		})
	}

	t.Run("requester accounts cannot use the admin login", func(t *testing.T) {
		_, err := f.auther.LoginAdmin(ctx, approvals.LoginRequest{Email: "user1@test.com", Password: "123456"})
		requireTextCode(t, err, approvals.TextCodeInvalidCredentials)
	})
}

func TestAuther_ActivityEvents(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.auther.LoginAdmin(ctx, approvals.LoginRequest{Email: "admin@test.com", Password: "admin123"})
	require.NoError(t, err)
	_, err = f.auther.LoginAdmin(ctx, approvals.LoginRequest{Email: "admin@test.com", Password: "wrong"})
	require.Error(t, err)

	events := f.sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, approvals.ActivityEventLoginSuccess, events[0].EventType)
	assert.Equal(t, "admin", events[0].Actor.Type)
	assert.Equal(t, approvals.ActivityEventLoginFailure, events[1].EventType)
	assert.Equal(t, "admin@test.com", events[1].Metadata["identifier"])
}

func TestAuther_SessionFromToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	session, err := f.auther.LoginRequester(ctx, approvals.LoginRequest{Email: "user1@test.com", Password: "123456"})
	require.NoError(t, err)

	claims, err := f.auther.SessionFromToken(session.Token, "")
	require.NoError(t, err)
	assert.Equal(t, approvals.SubjectUser, claims.SubjectType())

	_, err = f.auther.SessionFromToken(session.Token, approvals.SubjectAdmin)
	requireTextCode(t, err, approvals.TextCodeWrongSubjectType)

	assert.Same(t, f.tokens, f.auther.TokenService())
}

func TestIdentityProviders_FindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	hasher := newTestHasher()

	requesters := approvals.NewRequesterProvider(f.repos.Requesters(), hasher)
	byEmail, err := requesters.FindIdentityByIdentifier(ctx, "user1@test.com")
	require.NoError(t, err)
	byID, err := requesters.FindIdentityByIdentifier(ctx, byEmail.ID())
	require.NoError(t, err)
	assert.Equal(t, byEmail.ID(), byID.ID())
	assert.Equal(t, approvals.SubjectUser, byID.SubjectType())

	admins := approvals.NewAdminProvider(f.repos.AdminUsers(), hasher)
	admin, err := admins.FindIdentityByIdentifier(ctx, "viewer@test.com")
	require.NoError(t, err)
	assert.Equal(t, "Viewer", admin.Role())

	_, err = admins.FindIdentityByIdentifier(ctx, "nobody@test.com")
	requireTextCode(t, err, approvals.TextCodeAdminUserNotFound)
}
