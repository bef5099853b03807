package twofa

import (
	"context"
	"time"
)

const (
	auditEventEnrollStarted            = "enroll_started"
	auditEventEnrollConfirmed          = "enroll_confirmed"
	auditEventEnrollFailed             = "enroll_failed"
	auditEventChallengeCreated         = "challenge_created"
	auditEventVerifySuccess            = "verify_success"
	auditEventVerifyFailure            = "verify_failure"
	auditEventRecoveryCodeUsed         = "recovery_code_used"
	auditEventRecoveryCodesRegenerated = "recovery_codes_regenerated"
	auditEventTwoFactorReset           = "two_factor_reset"
	auditEventTwoFactorDisabled        = "two_factor_disabled"
	auditEventDeviceTrusted            = "device_trusted"
	auditEventDeviceRevoked            = "device_revoked"
	auditEventLogout                   = "logout"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		SessionID:   sessionID,
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	e.audit.Emit(ctx, event)
}
