package devapi

// Route path constants
const (
	// Auth
	RouteLogin              = "/api/v1/auth/login"
	RouteRegister           = "/api/v1/auth/register"
	RouteRefresh            = "/api/v1/auth/refresh"
	RouteLogout             = "/api/v1/auth/logout"
	RouteMe                 = "/api/v1/auth/me"
	RouteVerifyEmail        = "/api/v1/auth/verify-email"
	RouteResendVerification = "/api/v1/auth/resend-verification"

	// Users
	RouteProfile = "/api/v1/users/profile"

	// Rates
	RouteRateCalculate = "/api/v1/rates/calculate"
	RouteRateHistory   = "/api/v1/rates/history"

	// Market
	RouteMarketStatistics = "/api/v1/market/statistics"
	RouteMarketTrends     = "/api/v1/market/trends"

	RouteHealth = "/health"
)
