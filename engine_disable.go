package twofa

import "context"

// Disable turns two-factor authentication off for the principal. The secret,
// the recovery codes, the confirmation timestamp, and every trust record are
// cleared in one atomic write; a partially disabled state is never
// persisted.
//
// A valid current code is required so a hijacked session cannot silently
// strip the second factor.
func (e *Engine) Disable(ctx context.Context, principalID, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if principalID == "" {
		return ErrPrincipalNotFound
	}

	principal, err := e.loadPrincipal(ctx, principalID)
	if err != nil {
		return err
	}
	state := principal.TwoFactor
	if !state.Enabled() {
		return ErrNotEnrolled
	}

	secret, err := e.vault.Open(state.Secret)
	if err != nil {
		return err
	}
	if !e.codeMatches(principal.ID, string(secret), code) {
		e.emitAudit(ctx, auditEventTwoFactorDisabled, false, principal.ID, "", ErrInvalidCode, nil)
		return ErrInvalidCode
	}

	if err := e.principals.SaveTwoFactor(ctx, principal.ID, TwoFactorState{}); err != nil {
		return ErrPersistenceUnavailable
	}

	e.metricInc(MetricTwoFactorDisabled)
	e.emitAudit(ctx, auditEventTwoFactorDisabled, true, principal.ID, "", nil, nil)
	return nil
}
