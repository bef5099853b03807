package twofa

import (
	"context"
	"time"

	"github.com/trustkit/twofa/session"
)

// Principal is the account record the engine operates on. The host
// application maps its own user model onto this type inside its
// [PrincipalStore] implementation.
type Principal struct {
	ID         string
	Identifier string // email or login name, used as the otpauth account label
	TwoFactor  TwoFactorState
}

// TwoFactorState is the group of fields the engine owns on a principal.
// The whole group transitions together: disablement and the recovery-code
// reset clear every field in a single [PrincipalStore.SaveTwoFactor] call.
//
// Invariant: RecoveryCodes is present only while ConfirmedAt is non-zero, and
// Secret is cleared whenever ConfirmedAt transitions back to zero.
type TwoFactorState struct {
	// Secret is the encrypted TOTP shared secret. Present as soon as
	// enrollment starts, before the first code is confirmed, so an abandoned
	// enrollment still shows a pending secret.
	Secret EncryptedBlob
	// ConfirmedAt is the Unix timestamp of enrollment confirmation.
	// Zero means two-factor authentication is not enabled.
	ConfirmedAt int64
	// RecoveryCodes is the encrypted one-time recovery code set.
	RecoveryCodes EncryptedBlob
	// TrustedDevices is ordered by insertion and pruned by expiry on read.
	TrustedDevices []TrustRecord
}

// Enrolled reports whether enrollment has started (a secret is stored).
func (s TwoFactorState) Enrolled() bool {
	return !s.Secret.Absent()
}

// Enabled reports whether enrollment completed and two-factor authentication
// is active for the principal.
func (s TwoFactorState) Enabled() bool {
	return s.ConfirmedAt != 0
}

// TrustRecord is a stored, expiring assertion that a device fingerprint may
// bypass the second-factor challenge. Records are never mutated in place:
// they are appended on trust, filtered out on revocation, and ignored once
// expired.
type TrustRecord struct {
	ID                string
	ServerFingerprint string
	ClientFingerprint string // optional, stored verbatim as supplied
	Label             string // user agent string, descriptive only
	AddedAt           int64
	ExpiresAt         int64
}

// Expired reports whether the record is past its expiry at the given time.
func (r TrustRecord) Expired(now time.Time) bool {
	return now.Unix() > r.ExpiresAt
}

// RequestContext carries the per-request signals the engine fingerprints and
// audits. It is passed explicitly rather than smuggled through ambient state
// so the gate and the flows stay pure functions of their inputs.
type RequestContext struct {
	IP                string
	UserAgent         string
	AcceptLanguage    string
	AcceptEncoding    string
	ClientFingerprint string // opaque client-computed hash, empty when absent
}

// PrincipalStore is the persistence collaborator. Implementations load
// principals from the host user database and persist the two-factor field
// group atomically.
//
// The engine assumes read-modify-write on a single principal row is
// effectively serialized per request. Concurrent logins for the same user
// racing on recovery-code consumption or trust-list append are an accepted
// risk window; the engine introduces no locking of its own.
type PrincipalStore interface {
	// GetPrincipal returns ErrPrincipalNotFound for unknown IDs.
	GetPrincipal(ctx context.Context, principalID string) (Principal, error)
	// SaveTwoFactor replaces the principal's entire two-factor field group
	// in one atomic write.
	SaveTwoFactor(ctx context.Context, principalID string, state TwoFactorState) error
}

// SessionStore is the session collaborator. It holds the pending challenge
// and the session-verified flag, and must regenerate the session identifier
// on login to prevent session fixation. The session sub-package provides the
// Redis-backed implementation.
type SessionStore interface {
	// Get returns session.ErrNotFound for unknown or expired session IDs.
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Save(ctx context.Context, s *session.Session, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) (bool, error)
	// Regenerate persists s under a fresh session ID, deletes the old
	// record, and returns the stored session.
	Regenerate(ctx context.Context, s *session.Session, ttl time.Duration) (*session.Session, error)
}

// EnrollmentSetup is returned by [Engine.BeginEnrollment]. The caller shows
// the secret and renders the URI as a scannable QR code; the core only
// produces the string.
type EnrollmentSetup struct {
	SecretBase32    string
	ProvisioningURI string
}

// VerifyOutcome distinguishes the two success paths of [Engine.Verify].
type VerifyOutcome uint8

const (
	// OutcomeVerified means the TOTP code matched and the session is now
	// verified.
	OutcomeVerified VerifyOutcome = iota + 1
	// OutcomeResetRequired means a recovery code matched: the principal is
	// logged in but the whole two-factor state was reset and enrollment must
	// run again.
	OutcomeResetRequired
)

// String describes the outcome for logs.
func (o VerifyOutcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeResetRequired:
		return "reset_required"
	default:
		return "unknown"
	}
}

// VerifyResult is returned by [Engine.Verify] on either success path.
type VerifyResult struct {
	Outcome VerifyOutcome
	// Session is the regenerated, logged-in session.
	Session *session.Session
	// Token references Session for transport back to the client.
	Token string
	// RecoveryCodesRemaining counts unused recovery codes after the call.
	// Zero on the reset path.
	RecoveryCodesRemaining int
}

// GateDecision is the AccessGate verdict. SetupRequired and
// VerificationRequired are signals for the request pipeline to start the
// matching re-authentication flow, not hard failures.
type GateDecision uint8

const (
	// DecisionAllow lets the request through.
	DecisionAllow GateDecision = iota + 1
	// DecisionSetupRequired means the principal has not completed enrollment.
	DecisionSetupRequired
	// DecisionVerificationRequired means the device is untrusted and the
	// session unverified.
	DecisionVerificationRequired
)

// String describes the decision for logs.
func (d GateDecision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionSetupRequired:
		return "setup_required"
	case DecisionVerificationRequired:
		return "verification_required"
	default:
		return "unknown"
	}
}
