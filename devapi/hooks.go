package devapi

// Test hooks. They let integration tests force the situations a session client
// must recover from.

// ExpireAccessTokens makes every access token issued so far fail with 401.
func (s *Server) ExpireAccessTokens() {
	s.tokens.expireAccess()
}

// RevokeRefreshTokens makes every refresh token fail.
func (s *Server) RevokeRefreshTokens() {
	s.tokens.revokeAll()
}

// RejectAccessTokens makes authenticated routes answer 403 to every access
// token, including ones issued after the call, until called with false.
func (s *Server) RejectAccessTokens(reject bool) {
	s.rejectAccess.Store(reject)
}

// FailAuthenticatedRequests makes authenticated routes answer with status once
// the token is accepted. Zero turns it off.
func (s *Server) FailAuthenticatedRequests(status int) {
	s.failStatus.Store(int64(status))
}

// RefreshCalls returns how many refresh requests have been received.
func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// VerificationToken returns the pending verification token for email.
func (s *Server) VerificationToken(email string) (string, bool) {
	return s.accounts.VerificationToken(email)
}
