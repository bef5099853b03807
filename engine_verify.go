package twofa

import (
	"context"
	"time"

	"github.com/trustkit/twofa/session"
)

// Verify consumes the session's pending challenge with a submitted code.
//
// The code is checked against the TOTP secret first, then against the
// recovery code set. A miss on both collapses into a single ErrInvalidCode,
// so callers cannot tell which factor failed, and leaves the pending
// challenge intact.
//
// On a TOTP match the principal is logged in on a regenerated session, the
// session-verified flag is set, and the device is trusted when
// trustRequested is true. On a recovery-code match the whole two-factor
// state is reset (break-glass): the principal is logged in, but enrollment
// must run again, signalled by OutcomeResetRequired.
func (e *Engine) Verify(
	ctx context.Context,
	sessionID string,
	code string,
	trustRequested bool,
	req RequestContext,
) (*VerifyResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if sessionID == "" {
		return nil, ErrNoPendingChallenge
	}

	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		if isSessionNotFound(err) {
			return nil, ErrNoPendingChallenge
		}
		return nil, ErrSessionUnavailable
	}
	if sess.PendingUserID == "" {
		return nil, ErrNoPendingChallenge
	}

	principal, err := e.principals.GetPrincipal(ctx, sess.PendingUserID)
	if err != nil {
		// A challenge referencing a principal that no longer resolves is a
		// dead challenge, not a persistence hiccup worth retrying.
		e.emitAudit(ctx, auditEventVerifyFailure, false, sess.PendingUserID, sess.ID, ErrInvalidRequest, nil)
		return nil, ErrInvalidRequest
	}
	state := principal.TwoFactor
	if !state.Enrolled() {
		e.emitAudit(ctx, auditEventVerifyFailure, false, principal.ID, sess.ID, ErrInvalidRequest, nil)
		return nil, ErrInvalidRequest
	}

	secret, err := e.vault.Open(state.Secret)
	if err != nil {
		return nil, err
	}

	if e.codeMatches(principal.ID, string(secret), code) {
		return e.completeTOTPVerification(ctx, sess, principal, trustRequested, req)
	}

	// The resealed remainder is discarded: a recovery match resets the whole
	// two-factor state below, consumed code included.
	matched, _, _, err := e.vault.ConsumeRecoveryCode(state.RecoveryCodes, code)
	if err != nil {
		return nil, err
	}
	if !matched {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, principal.ID, sess.ID, ErrInvalidCode, nil)
		return nil, ErrInvalidCode
	}

	return e.completeRecoveryVerification(ctx, sess, principal)
}

// completeTOTPVerification logs the principal in on a fresh session and
// optionally extends device trust.
func (e *Engine) completeTOTPVerification(
	ctx context.Context,
	sess *session.Session,
	principal Principal,
	trustRequested bool,
	req RequestContext,
) (*VerifyResult, error) {
	now := time.Now()

	if trustRequested {
		state := principal.TwoFactor
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
		e.metricInc(MetricDeviceTrusted)
		e.emitAudit(ctx, auditEventDeviceTrusted, true, principal.ID, sess.ID, nil, func() map[string]string {
			return map[string]string{
				"device_label": req.UserAgent,
			}
		})
	}

	sess.UserID = principal.ID
	sess.PendingUserID = ""
	sess.TwoFactorVerified = true
	rotated, err := e.sessions.Regenerate(ctx, sess, e.config.Session.Lifetime)
	if err != nil {
		return nil, ErrSessionUnavailable
	}

	tok, err := e.tokens.Issue(rotated.ID)
	if err != nil {
		return nil, err
	}

	remaining := 0
	if codes, err := e.vault.Open(principal.TwoFactor.RecoveryCodes); err == nil {
		remaining = countLines(codes)
	}

	e.metricInc(MetricVerifySuccess)
	e.metricInc(MetricSessionRegenerated)
	e.emitAudit(ctx, auditEventVerifySuccess, true, principal.ID, rotated.ID, nil, nil)

	return &VerifyResult{
		Outcome:                OutcomeVerified,
		Session:                rotated,
		Token:                  tok,
		RecoveryCodesRemaining: remaining,
	}, nil
}

// completeRecoveryVerification is the break-glass path. The session is
// regenerated first and destroyed again if the principal reset fails, so the
// caller can never observe "two-factor disabled but not logged in" or
// "logged in with a partially reset state".
func (e *Engine) completeRecoveryVerification(
	ctx context.Context,
	sess *session.Session,
	principal Principal,
) (*VerifyResult, error) {
	sess.UserID = principal.ID
	sess.PendingUserID = ""
	sess.TwoFactorVerified = false
	rotated, err := e.sessions.Regenerate(ctx, sess, e.config.Session.Lifetime)
	if err != nil {
		return nil, ErrSessionUnavailable
	}

	if err := e.principals.SaveTwoFactor(ctx, principal.ID, TwoFactorState{}); err != nil {
		_, _ = e.sessions.Delete(ctx, rotated.ID)
		return nil, ErrPersistenceUnavailable
	}

	tok, err := e.tokens.Issue(rotated.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRecoveryCodeUsed)
	e.metricInc(MetricTwoFactorReset)
	e.metricInc(MetricSessionRegenerated)
	e.emitAudit(ctx, auditEventRecoveryCodeUsed, true, principal.ID, rotated.ID, nil, nil)
	e.emitAudit(ctx, auditEventTwoFactorReset, true, principal.ID, rotated.ID, nil, nil)

	return &VerifyResult{
		Outcome: OutcomeResetRequired,
		Session: rotated,
		Token:   tok,
	}, nil
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	count := 1
	for _, b := range data {
		if b == '\n' {
			count++
		}
	}
	return count
}
