package auth

import (
	"github.com/sockbridge/sockbridge/internal/limiter"
)

// Rejection reasons returned by Authenticate.
const (
	ReasonAuthFailed  = "auth_failed"
	ReasonRateLimited = "rate_limited"
)

// Authenticator verifies request token hashes and drives the lockout
// limiter. A nil *Authenticator, or one built from disabled settings,
// accepts every request.
type Authenticator struct {
	settings Settings
	lockout  *limiter.AuthLimiter
}

// New builds an authenticator from resolved settings.
func New(settings Settings) *Authenticator {
	return &Authenticator{
		settings: settings,
		lockout:  limiter.NewAuthLimiter(settings.MaxAttempts, settings.Window, settings.BlockDuration),
	}
}

// Enabled reports whether authentication is enforced.
func (a *Authenticator) Enabled() bool {
	return a != nil && a.settings.Enabled
}

// Authenticate checks the request's token hash for clientID. The reason is
// empty on success, ReasonRateLimited when the client is locked out, and
// ReasonAuthFailed on a bad or missing hash.
//
// A locked-out client does not consume an attempt; a bad hash records a
// failure and may transition the client into the blocked state; a correct
// hash clears the failure counter but never cuts an active block short.
func (a *Authenticator) Authenticate(tokenHash, clientID string) (bool, string) {
	if !a.Enabled() {
		return true, ""
	}

	if a.lockout.Blocked(clientID) {
		return false, ReasonRateLimited
	}

	if tokenHash == "" || !hashesEqual(tokenHash, a.settings.TokenHash) {
		if a.lockout.RecordFailure(clientID) {
			return false, ReasonRateLimited
		}
		return false, ReasonAuthFailed
	}

	a.lockout.RecordSuccess(clientID)
	return true, ""
}
