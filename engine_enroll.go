package twofa

import (
	"context"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// BeginEnrollment generates a fresh shared secret for the principal, stores
// it encrypted, and returns the secret with its otpauth:// provisioning URI.
// The caller renders the URI as a QR code; the core only produces the
// string.
//
// The secret is persisted before the first code is confirmed, so an
// abandoned enrollment leaves a pending secret behind. A later
// BeginEnrollment simply replaces it.
func (e *Engine) BeginEnrollment(ctx context.Context, principalID string) (*EnrollmentSetup, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if principalID == "" {
		return nil, ErrPrincipalNotFound
	}

	principal, err := e.loadPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if principal.TwoFactor.Enabled() {
		return nil, ErrAlreadyEnrolled
	}

	account := principal.Identifier
	if account == "" {
		account = principal.ID
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.config.TOTP.Issuer,
		AccountName: account,
		Period:      uint(e.config.TOTP.Period),
		Digits:      otp.Digits(e.config.TOTP.Digits),
		Algorithm:   totpAlgorithm(e.config.TOTP.Algorithm),
	})
	if err != nil {
		return nil, err
	}

	sealed, err := e.vault.Seal([]byte(key.Secret()))
	if err != nil {
		return nil, err
	}

	state := principal.TwoFactor
	state.Secret = sealed
	if err := e.principals.SaveTwoFactor(ctx, principal.ID, state); err != nil {
		return nil, ErrPersistenceUnavailable
	}

	e.metricInc(MetricEnrollStarted)
	e.emitAudit(ctx, auditEventEnrollStarted, true, principal.ID, "", nil, nil)

	return &EnrollmentSetup{
		SecretBase32:    key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// ConfirmEnrollment validates the first code against the pending secret and,
// on success, enables two-factor authentication: sets the confirmation
// timestamp, issues the recovery code set, and auto-trusts the enrolling
// device. The plaintext recovery codes are returned exactly once.
func (e *Engine) ConfirmEnrollment(ctx context.Context, principalID, code string, req RequestContext) ([]string, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if principalID == "" {
		return nil, ErrPrincipalNotFound
	}

	principal, err := e.loadPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	state := principal.TwoFactor
	if !state.Enrolled() {
		return nil, ErrNotEnrolled
	}
	if state.Enabled() {
		return nil, ErrAlreadyEnrolled
	}

	secret, err := e.vault.Open(state.Secret)
	if err != nil {
		return nil, err
	}

	if !e.codeMatches(principal.ID, string(secret), code) {
		e.metricInc(MetricEnrollFailed)
		e.emitAudit(ctx, auditEventEnrollFailed, false, principal.ID, "", ErrInvalidCode, nil)
		return nil, ErrInvalidCode
	}

	now := time.Now()
	plainCodes, sealedCodes, err := e.vault.IssueRecoveryCodes(
		e.config.Recovery.CodeCount,
		e.config.Recovery.SegmentLength,
	)
	if err != nil {
		return nil, err
	}

	state.ConfirmedAt = now.Unix()
	state.RecoveryCodes = sealedCodes
	state.TrustedDevices = AddTrust(
		PruneTrust(state.TrustedDevices, now),
		Fingerprint(req),
		req.ClientFingerprint,
		req.UserAgent,
		now,
		e.config.Trust.TTL,
	)

	if err := e.principals.SaveTwoFactor(ctx, principal.ID, state); err != nil {
		return nil, ErrPersistenceUnavailable
	}

	e.metricInc(MetricEnrollConfirmed)
	e.metricInc(MetricDeviceTrusted)
	e.emitAudit(ctx, auditEventEnrollConfirmed, true, principal.ID, "", nil, func() map[string]string {
		return map[string]string{
			"device_label": req.UserAgent,
		}
	})

	return plainCodes, nil
}

// RegenerateRecoveryCodes replaces the stored recovery set with a fresh one.
// A valid TOTP code is required: recovery codes gate account takeover and
// must not be mintable from a hijacked session alone. The plaintext codes
// are returned exactly once; the previous set becomes worthless.
func (e *Engine) RegenerateRecoveryCodes(ctx context.Context, principalID, code string) ([]string, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if principalID == "" {
		return nil, ErrPrincipalNotFound
	}

	principal, err := e.loadPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	state := principal.TwoFactor
	if !state.Enabled() {
		return nil, ErrNotEnrolled
	}

	secret, err := e.vault.Open(state.Secret)
	if err != nil {
		return nil, err
	}
	if !e.codeMatches(principal.ID, string(secret), code) {
		e.emitAudit(ctx, auditEventRecoveryCodesRegenerated, false, principal.ID, "", ErrInvalidCode, nil)
		return nil, ErrInvalidCode
	}

	plainCodes, sealedCodes, err := e.vault.IssueRecoveryCodes(
		e.config.Recovery.CodeCount,
		e.config.Recovery.SegmentLength,
	)
	if err != nil {
		return nil, err
	}

	state.RecoveryCodes = sealedCodes
	if err := e.principals.SaveTwoFactor(ctx, principal.ID, state); err != nil {
		return nil, ErrPersistenceUnavailable
	}

	e.metricInc(MetricRecoveryCodesRegenerated)
	e.emitAudit(ctx, auditEventRecoveryCodesRegenerated, true, principal.ID, "", nil, nil)

	return plainCodes, nil
}
