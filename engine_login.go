package twofa

import (
	"context"
	"time"
)

// ChallengeOnLogin is the hook the external password-login flow calls after
// the password checked out. It decides whether a second factor is owed:
//
//   - two-factor not enabled: nothing to challenge, the caller completes the
//     login and the access gate will signal SetupRequired on the next
//     protected request
//   - device trusted: no challenge, the caller completes the login
//   - otherwise: a pending challenge is planted in the session and the
//     caller must hold the login until [Engine.Verify] succeeds
//
// Returns true when a challenge was planted.
func (e *Engine) ChallengeOnLogin(ctx context.Context, sessionID, principalID string, req RequestContext) (bool, error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}
	if principalID == "" {
		return false, ErrPrincipalNotFound
	}

	principal, err := e.loadPrincipal(ctx, principalID)
	if err != nil {
		return false, err
	}
	if !principal.TwoFactor.Enabled() {
		return false, nil
	}

	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		if isSessionNotFound(err) {
			return false, ErrInvalidRequest
		}
		return false, ErrSessionUnavailable
	}

	if IsTrusted(principal.TwoFactor.TrustedDevices, Fingerprint(req), req.ClientFingerprint, time.Now()) {
		return false, nil
	}

	sess.PendingUserID = principal.ID
	if err := e.sessions.Save(ctx, sess, e.config.Session.Lifetime); err != nil {
		return false, ErrSessionUnavailable
	}

	e.metricInc(MetricChallengeCreated)
	e.emitAudit(ctx, auditEventChallengeCreated, true, principal.ID, sess.ID, nil, nil)
	return true, nil
}

// Logout destroys the session and, with it, any pending challenge and the
// session-verified flag.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return nil
	}

	existed, err := e.sessions.Delete(ctx, sessionID)
	if err != nil {
		return ErrSessionUnavailable
	}
	if existed {
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogout, true, "", sessionID, nil, nil)
	}
	return nil
}
