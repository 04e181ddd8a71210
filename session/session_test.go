package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/qeem-client/cache"
	"github.com/jrsteele09/qeem-client/credentials"
	"github.com/jrsteele09/qeem-client/devapi"
	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"github.com/jrsteele09/qeem-client/session"
	"github.com/jrsteele09/qeem-client/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Password123"

type testConfig struct{}

func (testConfig) GetEnv() string                   { return "TEST" }
func (testConfig) GetAppName() string               { return "qeem-devapi" }
func (testConfig) GetMetricsAddr() string           { return "" }
func (testConfig) GetDevAPIPort() string            { return ":0" }
func (testConfig) GetJWTSecret() string             { return "session-test-secret" }
func (testConfig) GetAccessTokenTTL() time.Duration { return time.Hour }
func (testConfig) GetRefreshTokenLength() int       { return 16 }

// recordingTransport remembers the Authorization header of every request per path
// and runs one-shot hooks before a request to a path is sent.
type recordingTransport struct {
	mu      sync.Mutex
	headers map[string][]string
	hooks   map[string]func()
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.headers[req.URL.Path] = append(rt.headers[req.URL.Path], req.Header.Get("Authorization"))
	hook := rt.hooks[req.URL.Path]
	delete(rt.hooks, req.URL.Path)
	rt.mu.Unlock()
	if hook != nil {
		hook()
	}
	return http.DefaultTransport.RoundTrip(req)
}

func (rt *recordingTransport) count(path string) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.headers[path])
}

// before runs fn once, just before the next request to path leaves.
func (rt *recordingTransport) before(path string, fn func()) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.hooks[path] = fn
}

func (rt *recordingTransport) last(path string) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	h := rt.headers[path]
	if len(h) == 0 {
		return ""
	}
	return h[len(h)-1]
}

type identityChange struct{ previous, current string }

type testFixture struct {
	api       *devapi.Server
	client    *session.Client
	store     *credentials.MemoryStore
	transport *recordingTransport
	expired   atomic.Int32

	mu      sync.Mutex
	changes []identityChange
}

func setupTestFixture(t *testing.T, apiOptions ...devapi.ServerOption) *testFixture {
	t.Helper()
	api, err := devapi.New(testConfig{}, apiOptions...)
	require.NoError(t, err)
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	f := &testFixture{
		api:       api,
		store:     credentials.NewMemoryStore(),
		transport: &recordingTransport{headers: make(map[string][]string), hooks: make(map[string]func())},
	}
	f.client = f.newClient(t, ts.URL)
	return f
}

func (f *testFixture) newClient(t *testing.T, baseURL string, options ...session.ClientOption) *session.Client {
	t.Helper()
	options = append([]session.ClientOption{
		session.WithHTTPClient(&http.Client{Transport: f.transport, Timeout: 5 * time.Second}),
		session.WithStore(f.store),
		session.WithOnExpired(func() { f.expired.Add(1) }),
		session.WithIdentityListener(func(previous, current string) {
			f.mu.Lock()
			f.changes = append(f.changes, identityChange{previous, current})
			f.mu.Unlock()
		}),
	}, options...)
	c, err := session.New(baseURL, options...)
	require.NoError(t, err)
	return c
}

func (f *testFixture) register(t *testing.T, email string) {
	t.Helper()
	_, err := f.client.Register(context.Background(), users.Registration{
		Email: email, Password: testPassword, FirstName: "Dina", LastName: "Farouk",
	})
	require.NoError(t, err)
}

func (f *testFixture) login(t *testing.T, email string) *users.User {
	t.Helper()
	f.register(t, email)
	user, err := f.client.Login(context.Background(), email, testPassword)
	require.NoError(t, err)
	return user
}

func (f *testFixture) profile(t *testing.T) (*users.Profile, error) {
	t.Helper()
	var p users.Profile
	err := f.client.Do(context.Background(), http.MethodGet, users.ProfilePath, nil, &p)
	return &p, err
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := session.New("localhost")
	require.Error(t, err)
	_, err = session.New("http://localhost:8000", session.WithStore(nil))
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	assert.Equal(t, session.Anonymous, f.client.State())

	user := f.login(t, "dina@example.com")
	assert.Equal(t, "dina@example.com", user.Email)
	assert.Equal(t, session.Authenticated, f.client.State())
	assert.Equal(t, user.IdentityID(), f.client.IdentityID())
	assert.NotEmpty(t, f.client.AccessToken())

	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.client.AccessToken(), stored.AccessToken())
	assert.Equal(t, user.IdentityID(), stored.UserID)
	assert.False(t, stored.Token.Expiry.IsZero())
}

func TestLogin_WrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t, "dina@example.com")

	_, err := f.client.Login(context.Background(), "dina@example.com", "Password124")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.Equal(t, session.Anonymous, f.client.State())
	assert.Empty(t, f.client.AccessToken())
	assert.Nil(t, f.client.CurrentUser())

	_, err = f.store.Load(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNoCredential)
}

func TestDo_AttachesMostRecentToken(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "dina@example.com")

	_, err := f.profile(t)
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+f.client.AccessToken(), f.transport.last(users.ProfilePath))

	before := f.client.AccessToken()
	require.NoError(t, f.client.Refresh(context.Background()))
	require.NotEqual(t, before, f.client.AccessToken())

	_, err = f.profile(t)
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+f.client.AccessToken(), f.transport.last(users.ProfilePath))
}

func TestDo_RefreshIsTransparent(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "dina@example.com")

	want, err := f.profile(t)
	require.NoError(t, err)

	f.api.ExpireAccessTokens()
	got, err := f.profile(t)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, f.api.RefreshCalls())
	assert.Equal(t, session.Authenticated, f.client.State())
	assert.Zero(t, f.expired.Load())
}

func TestDo_ConcurrentUnauthorisedShareOneRefresh(t *testing.T) {
	f := setupTestFixture(t, devapi.WithRefreshDelay(100*time.Millisecond))
	f.login(t, "dina@example.com")
	f.api.ExpireAccessTokens()

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.profile(t)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.api.RefreshCalls())
	assert.Equal(t, "Bearer "+f.client.AccessToken(), f.transport.last(users.ProfilePath))
	assert.Zero(t, f.expired.Load())
}

func TestDo_RefreshFailureExpiresSession(t *testing.T) {
	f := setupTestFixture(t)
	user := f.login(t, "dina@example.com")

	f.api.ExpireAccessTokens()
	f.api.RevokeRefreshTokens()

	_, err := f.profile(t)
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.Equal(t, session.Anonymous, f.client.State())
	assert.Empty(t, f.client.AccessToken())
	assert.Nil(t, f.client.CurrentUser())
	assert.Equal(t, int32(1), f.expired.Load())

	f.mu.Lock()
	last := f.changes[len(f.changes)-1]
	f.mu.Unlock()
	assert.Equal(t, identityChange{user.IdentityID(), ""}, last)

	_, err = f.store.Load(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNoCredential)

	_, err = f.profile(t)
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	assert.Equal(t, int32(1), f.expired.Load(), "expiry is reported once")
}

func TestDo_RebindDuringRequestStillRefreshes(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "dina@example.com")
	ctx := context.Background()

	// The identity is re-read while the profile request is in flight, then the
	// token that request carries is rejected.
	f.transport.before(users.ProfilePath, func() {
		_, err := f.client.FetchCurrentUser(ctx)
		assert.NoError(t, err)
		f.api.ExpireAccessTokens()
	})

	_, err := f.profile(t)
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.RefreshCalls())
	assert.Equal(t, session.Authenticated, f.client.State())
	assert.Zero(t, f.expired.Load())
}

func TestDo_RejectedAfterRefreshExpiresSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "dina@example.com")

	f.api.RejectAccessTokens(true)
	_, err := f.profile(t)
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.Equal(t, 1, f.api.RefreshCalls())
	assert.Equal(t, session.Anonymous, f.client.State())
	assert.Equal(t, int32(1), f.expired.Load())

	_, err = f.store.Load(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNoCredential)
}

func TestDo_HungRefreshTimesOut(t *testing.T) {
	f := setupTestFixture(t, devapi.WithRefreshDelay(2*time.Second))
	f.register(t, "dina@example.com")
	api := httptest.NewServer(f.api)
	t.Cleanup(api.Close)
	c := f.newClient(t, api.URL, session.WithRefreshTimeout(100*time.Millisecond))

	_, err := c.Login(context.Background(), "dina@example.com", testPassword)
	require.NoError(t, err)
	f.api.ExpireAccessTokens()

	start := time.Now()
	var p users.Profile
	err = c.Do(context.Background(), http.MethodGet, users.ProfilePath, nil, &p)
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, session.Anonymous, c.State())
	assert.Equal(t, int32(1), f.expired.Load())
}

func TestDo_ServerErrorIsNotRetried(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "dina@example.com")

	f.api.FailAuthenticatedRequests(http.StatusServiceUnavailable)
	_, err := f.profile(t)
	var se *apperrors.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	require.ErrorIs(t, err, apperrors.ErrServer)
	assert.Zero(t, f.api.RefreshCalls())
	assert.Equal(t, 1, f.transport.count(users.ProfilePath), "5xx responses are not retried")
	assert.Equal(t, session.Authenticated, f.client.State())
}

func TestDo_ProactiveRefreshWhenExpired(t *testing.T) {
	var offset atomic.Int64
	now := func() time.Time { return time.Now().Add(time.Duration(offset.Load())) }

	f := setupTestFixture(t)
	f.register(t, "dina@example.com")
	api := httptest.NewServer(f.api)
	t.Cleanup(api.Close)
	c := f.newClient(t, api.URL, session.WithNowTime(now))

	_, err := c.Login(context.Background(), "dina@example.com", testPassword)
	require.NoError(t, err)

	offset.Store(int64(2 * time.Hour))
	var p users.Profile
	require.NoError(t, c.Do(context.Background(), http.MethodGet, users.ProfilePath, nil, &p))
	assert.Equal(t, 1, f.api.RefreshCalls())
}

func TestDo_ErrorMapping(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "dina@example.com")
	ctx := context.Background()

	currency := "GBP"
	err := f.client.Do(ctx, http.MethodPut, users.ProfilePath, users.ProfileUpdate{PreferredCurrency: &currency}, nil)
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "preferred_currency", ve.Field)

	err = f.client.Do(ctx, http.MethodGet, "/api/v1/unknown", nil, nil)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, f.api.RefreshCalls(), "4xx responses never refresh")
}

func TestDo_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := session.New(url)
	require.NoError(t, err)
	_, err = c.Health(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.client.Register(ctx, users.Registration{Email: "dina@example.com", Password: "weak", FirstName: "Dina", LastName: "Farouk"})
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)

	f.register(t, "dina@example.com")
	assert.Equal(t, session.Anonymous, f.client.State(), "registering does not log in")

	_, err = f.client.Register(ctx, users.Registration{Email: "dina@example.com", Password: testPassword, FirstName: "Dina", LastName: "Farouk"})
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestVerifyEmail(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t, "dina@example.com")
	ctx := context.Background()

	require.NoError(t, f.client.ResendVerification(ctx, "dina@example.com"))
	token, ok := f.api.VerificationToken("dina@example.com")
	require.True(t, ok)

	err := f.client.VerifyEmail(ctx, "bogus")
	require.ErrorIs(t, err, apperrors.ErrValidation)
	require.NoError(t, f.client.VerifyEmail(ctx, token))

	user, err := f.client.Login(ctx, "dina@example.com", testPassword)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
}

func TestFetchCurrentUser(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.client.FetchCurrentUser(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	user := f.login(t, "dina@example.com")
	assert.False(t, user.IsVerified)

	token, ok := f.api.VerificationToken("dina@example.com")
	require.True(t, ok)
	require.NoError(t, f.client.VerifyEmail(ctx, token))

	user, err = f.client.FetchCurrentUser(ctx)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
	assert.True(t, f.client.CurrentUser().IsVerified)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "dina@example.com")
	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)

	f.client.Logout(context.Background())
	assert.Equal(t, session.Anonymous, f.client.State())
	assert.Empty(t, f.client.AccessToken())
	assert.Zero(t, f.expired.Load(), "logout is not an expiry")

	_, err = f.store.Load(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNoCredential)

	// The server no longer accepts the refresh token.
	require.NoError(t, f.store.Save(context.Background(), stored))
	f.api.ExpireAccessTokens()
	_, err = f.client.Restore(context.Background())
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
}

func TestLogout_NeverFails(t *testing.T) {
	c, err := session.New("http://127.0.0.1:1")
	require.NoError(t, err)
	c.Logout(context.Background())
	assert.Equal(t, session.Anonymous, c.State())
}

func TestRestore(t *testing.T) {
	f := setupTestFixture(t)
	user := f.login(t, "dina@example.com")

	api := httptest.NewServer(f.api)
	t.Cleanup(api.Close)
	restored := f.newClient(t, api.URL)

	got, err := restored.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, session.Authenticated, restored.State())

	// An expired access token is refreshed during restore.
	f.api.ExpireAccessTokens()
	again := f.newClient(t, api.URL)
	_, err = again.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.RefreshCalls())
}

func TestRestore_NothingStored(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.client.Restore(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	assert.Equal(t, session.Anonymous, f.client.State())
}

func TestIdentityChangePurgesCache(t *testing.T) {
	f := setupTestFixture(t)
	c := cache.New(16, time.Minute)
	api := httptest.NewServer(f.api)
	t.Cleanup(api.Close)
	client := f.newClient(t, api.URL, session.WithIdentityListener(c.IdentityChanged))
	svc := users.NewService(client, c)
	ctx := context.Background()

	f.register(t, "dina@example.com")
	f.register(t, "omar@example.com")

	_, err := client.Login(ctx, "dina@example.com", testPassword)
	require.NoError(t, err)
	_, err = svc.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = client.Login(ctx, "omar@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	_, err = svc.Profile(ctx)
	require.NoError(t, err)
	client.Logout(ctx)
	assert.Equal(t, 0, c.Len())
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)
	h, err := f.client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
}
