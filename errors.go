package twofa

import "errors"

var (
	// ErrNotEnrolled is returned when a code is confirmed for a principal with
	// no pending enrollment secret.
	ErrNotEnrolled = errors.New("two-factor enrollment not started")
	// ErrAlreadyEnrolled is returned when enrollment is started for a
	// principal whose two-factor authentication is already enabled.
	ErrAlreadyEnrolled = errors.New("two-factor already enabled")
	// ErrInvalidCode is returned when a submitted code matches neither the
	// TOTP secret nor any stored recovery code. The two misses deliberately
	// collapse into one error so callers cannot distinguish them.
	ErrInvalidCode = errors.New("invalid two-factor code")
	// ErrNoPendingChallenge is returned by Verify when the session holds no
	// pending second-factor challenge.
	ErrNoPendingChallenge = errors.New("no pending two-factor challenge")
	// ErrInvalidRequest is returned by Verify when the challenged principal
	// cannot be resolved or has no enrolled secret.
	ErrInvalidRequest = errors.New("invalid two-factor request")
	// ErrPrincipalNotFound is returned by PrincipalStore implementations for
	// unknown principal IDs.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrPersistenceUnavailable is returned when the principal store fails a
	// read or write.
	ErrPersistenceUnavailable = errors.New("principal persistence unavailable")
	// ErrSessionUnavailable is returned when the session store fails a read
	// or write.
	ErrSessionUnavailable = errors.New("session backend unavailable")
	// ErrVaultEmpty is returned when an absent encrypted blob is opened.
	ErrVaultEmpty = errors.New("encrypted blob absent")
	// ErrVaultCorrupt is returned when a stored blob is present but cannot be
	// decrypted. Surfaced rather than treated as absent so operators can tell
	// key rotation mistakes from clean state.
	ErrVaultCorrupt = errors.New("encrypted blob undecryptable")
	// ErrTrustedDeviceNotFound is returned when revoking a fingerprint with
	// no matching trust record.
	ErrTrustedDeviceNotFound = errors.New("trusted device not found")
	// ErrEngineNotReady is returned when an Engine method is called before
	// the engine was fully built.
	ErrEngineNotReady = errors.New("engine not initialized")
)
