package devapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/qeem-client/devapi"
	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"github.com/jrsteele09/qeem-client/market"
	"github.com/jrsteele09/qeem-client/rates"
	"github.com/jrsteele09/qeem-client/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct{}

func (testConfig) GetEnv() string                   { return "TEST" }
func (testConfig) GetAppName() string               { return "qeem-devapi" }
func (testConfig) GetMetricsAddr() string           { return "" }
func (testConfig) GetDevAPIPort() string            { return ":0" }
func (testConfig) GetJWTSecret() string             { return "test-secret" }
func (testConfig) GetAccessTokenTTL() time.Duration { return time.Minute }
func (testConfig) GetRefreshTokenLength() int       { return 16 }

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type testFixture struct {
	api *devapi.Server
	ts  *httptest.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	api, err := devapi.New(testConfig{})
	require.NoError(t, err)
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)
	return &testFixture{api: api, ts: ts}
}

func (f *testFixture) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *testFixture) registerAndLogin(t *testing.T, email string) tokenPair {
	t.Helper()
	status := f.do(t, http.MethodPost, devapi.RouteRegister, "", users.Registration{
		Email: email, Password: "Password123", FirstName: "Dina", LastName: "Farouk",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var pair tokenPair
	status = f.do(t, http.MethodPost, devapi.RouteLogin, "", map[string]string{"email": email, "password": "Password123"}, &pair)
	require.Equal(t, http.StatusOK, status)
	return pair
}

type noSecretConfig struct{ testConfig }

func (noSecretConfig) GetJWTSecret() string { return "" }

func TestNew_RequiresSecret(t *testing.T) {
	_, err := devapi.New(noSecretConfig{})
	require.Error(t, err)
}

func TestRegisterVerifyAndLogin(t *testing.T) {
	f := setupTestFixture(t)

	var user users.User
	status := f.do(t, http.MethodPost, devapi.RouteRegister, "", users.Registration{
		Email: "Dina@Example.com", Password: "Password123", FirstName: "Dina", LastName: "Farouk",
	}, &user)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "dina@example.com", user.Email)
	assert.False(t, user.IsVerified)

	var apiErr apperrors.APIError
	status = f.do(t, http.MethodPost, devapi.RouteRegister, "", users.Registration{
		Email: "dina@example.com", Password: "Password123", FirstName: "D", LastName: "F",
	}, &apiErr)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "EMAIL_EXISTS", apiErr.Code)

	token, ok := f.api.VerificationToken("dina@example.com")
	require.True(t, ok)
	status = f.do(t, http.MethodPost, devapi.RouteVerifyEmail, "", map[string]string{"token": token}, nil)
	require.Equal(t, http.StatusOK, status)

	var pair tokenPair
	status = f.do(t, http.MethodPost, devapi.RouteLogin, "", map[string]string{"email": "dina@example.com", "password": "Password123"}, &pair)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(60), pair.ExpiresIn)

	status = f.do(t, http.MethodGet, devapi.RouteMe, pair.AccessToken, nil, &user)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, user.IsVerified)
}

func TestRegister_ValidationDetails(t *testing.T) {
	f := setupTestFixture(t)

	var apiErr apperrors.APIError
	status := f.do(t, http.MethodPost, devapi.RouteRegister, "", users.Registration{
		Email: "omar@example.com", Password: "short", FirstName: "Omar", LastName: "Said",
	}, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, "password", apiErr.Details["field"])
}

func TestLogin_WrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	f.registerAndLogin(t, "dina@example.com")

	var apiErr apperrors.APIError
	status := f.do(t, http.MethodPost, devapi.RouteLogin, "", map[string]string{"email": "dina@example.com", "password": "Password124"}, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.registerAndLogin(t, "dina@example.com")

	var next tokenPair
	status := f.do(t, http.MethodPost, devapi.RouteRefresh, "", map[string]string{"refresh_token": pair.RefreshToken}, &next)
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	status = f.do(t, http.MethodPost, devapi.RouteRefresh, "", map[string]string{"refresh_token": pair.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "rotated refresh token must not be reusable")
	assert.Equal(t, 2, f.api.RefreshCalls())
}

func TestExpireAccessTokens(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.registerAndLogin(t, "dina@example.com")

	f.api.ExpireAccessTokens()
	status := f.do(t, http.MethodGet, devapi.RouteMe, pair.AccessToken, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	var next tokenPair
	status = f.do(t, http.MethodPost, devapi.RouteRefresh, "", map[string]string{"refresh_token": pair.RefreshToken}, &next)
	require.Equal(t, http.StatusOK, status)
	status = f.do(t, http.MethodGet, devapi.RouteMe, next.AccessToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)

	f.api.RevokeRefreshTokens()
	status = f.do(t, http.MethodPost, devapi.RouteRefresh, "", map[string]string{"refresh_token": next.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRejectAccessTokens(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.registerAndLogin(t, "dina@example.com")

	f.api.RejectAccessTokens(true)
	var next tokenPair
	status := f.do(t, http.MethodPost, devapi.RouteRefresh, "", map[string]string{"refresh_token": pair.RefreshToken}, &next)
	require.Equal(t, http.StatusOK, status)

	var apiErr apperrors.APIError
	status = f.do(t, http.MethodGet, devapi.RouteMe, next.AccessToken, nil, &apiErr)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", apiErr.Code)

	f.api.RejectAccessTokens(false)
	status = f.do(t, http.MethodGet, devapi.RouteMe, next.AccessToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestFailAuthenticatedRequests(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.registerAndLogin(t, "dina@example.com")

	f.api.FailAuthenticatedRequests(http.StatusServiceUnavailable)
	status := f.do(t, http.MethodGet, devapi.RouteProfile, pair.AccessToken, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status = f.do(t, http.MethodGet, devapi.RouteProfile, "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	f.api.FailAuthenticatedRequests(0)
	status = f.do(t, http.MethodGet, devapi.RouteProfile, pair.AccessToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRequireAuth(t *testing.T) {
	f := setupTestFixture(t)

	var apiErr apperrors.APIError
	status := f.do(t, http.MethodGet, devapi.RouteProfile, "", nil, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "NOT_AUTHENTICATED", apiErr.Code)

	status = f.do(t, http.MethodGet, devapi.RouteProfile, "not-a-jwt", nil, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", apiErr.Code)
}

func TestProfileUpdate(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.registerAndLogin(t, "dina@example.com")

	city := "Alexandria"
	var profile users.Profile
	status := f.do(t, http.MethodPut, devapi.RouteProfile, pair.AccessToken, users.ProfileUpdate{City: &city}, &profile)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Alexandria", profile.City)
	assert.Equal(t, "Dina", profile.FirstName)

	currency := "GBP"
	status = f.do(t, http.MethodPut, devapi.RouteProfile, pair.AccessToken, users.ProfileUpdate{PreferredCurrency: &currency}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestRateCalculationAndHistory(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.registerAndLogin(t, "dina@example.com")

	req := rates.Request{
		ProjectType:       rates.Design,
		ProjectComplexity: rates.Moderate,
		EstimatedHours:    10,
		ExperienceYears:   0,
		SkillsCount:       0,
		Location:          "cairo",
		ClientRegion:      rates.RegionEgypt,
		Urgency:           rates.UrgencyNormal,
	}
	var resp rates.Response
	status := f.do(t, http.MethodPost, devapi.RouteRateCalculate, pair.AccessToken, req, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 300.0, resp.CompetitiveRate)
	assert.Equal(t, 240.0, resp.MinimumRate)
	assert.Equal(t, 390.0, resp.PremiumRate)
	assert.Equal(t, "EGP", resp.Currency)
	assert.Equal(t, rates.MethodRuleBased, resp.Method)

	var history []rates.HistoryEntry
	status = f.do(t, http.MethodGet, devapi.RouteRateHistory, pair.AccessToken, nil, &history)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, history, 1)
	assert.Equal(t, resp, history[0].Response)
}

func TestMarketStatistics(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.registerAndLogin(t, "dina@example.com")

	var stats market.StatisticsResponse
	status := f.do(t, http.MethodGet, devapi.RouteMarketStatistics+"?project_type=design&period_type=weekly&limit=20", pair.AccessToken, nil, &stats)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, stats.Items, 20)
	assert.Equal(t, 36, stats.Total) // 3 locations x 12 weeks
	for _, it := range stats.Items {
		assert.Equal(t, "design", it.ProjectType)
	}

	status = f.do(t, http.MethodGet, devapi.RouteMarketStatistics+"?limit=0", pair.AccessToken, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestMarketTrends(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.registerAndLogin(t, "dina@example.com")

	var trends market.TrendsResponse
	status := f.do(t, http.MethodGet, devapi.RouteMarketTrends+"?project_type=web_development&window=4", pair.AccessToken, nil, &trends)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, trends.Points, 4)
	for i := 1; i < len(trends.Points); i++ {
		assert.True(t, trends.Points[i].PeriodStart.After(trends.Points[i-1].PeriodStart))
		assert.Greater(t, trends.Points[i].AverageRate, trends.Points[i-1].AverageRate)
		assert.Equal(t, "trending_up", *trends.Points[i].MarketTrend)
	}
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)
	var health struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	status := f.do(t, http.MethodGet, devapi.RouteHealth, "", nil, &health)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", health.Status)
	assert.False(t, health.Timestamp.IsZero())
}
