package twofa

import (
	"context"
	"time"
)

// ListTrustedDevices returns the principal's unexpired trust records, most
// recently added last. The stored list is not rewritten; expired records are
// merely filtered from the view.
func (e *Engine) ListTrustedDevices(ctx context.Context, principalID string) ([]TrustRecord, error) {
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
	return PruneTrust(principal.TwoFactor.TrustedDevices, time.Now()), nil
}

// RevokeTrustedDevice removes every trust record matching the server
// fingerprint. Expired records are pruned in the same write.
func (e *Engine) RevokeTrustedDevice(ctx context.Context, principalID, serverFingerprint string) error {
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

	now := time.Now()
	state := principal.TwoFactor
	pruned := PruneTrust(state.TrustedDevices, now)
	filtered := RemoveTrust(pruned, serverFingerprint)
	if len(filtered) == len(pruned) {
		return ErrTrustedDeviceNotFound
	}

	state.TrustedDevices = filtered
	if err := e.principals.SaveTwoFactor(ctx, principal.ID, state); err != nil {
		return ErrPersistenceUnavailable
	}

	e.metricInc(MetricDeviceRevoked)
	e.emitAudit(ctx, auditEventDeviceRevoked, true, principal.ID, "", nil, func() map[string]string {
		return map[string]string{
			"server_fingerprint": serverFingerprint,
		}
	})
	return nil
}
