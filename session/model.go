package session

// Session is one authenticated (or half-authenticated) browser session.
type Session struct {
	ID string

	// UserID is set once login fully completes.
	UserID string

	// PendingUserID names the principal awaiting a second factor. It is set
	// when a password-correct login hits an enabled, untrusted device and
	// cleared on successful verification or logout. It has no expiry of its
	// own: the session TTL is the only bound.
	PendingUserID string

	// TwoFactorVerified marks a session that passed verification. It is
	// independent of device trust, so a session whose fingerprint drifts
	// mid-session is not challenged again.
	TwoFactorVerified bool

	CreatedAt int64
	ExpiresAt int64
}
