package internaldefs

import (
	twofa "github.com/trustkit/twofa"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   twofa.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: twofa.MetricGateAllowed, Name: "twofa_gate_allowed_total", Help: "Requests the access gate let through."},
	{ID: twofa.MetricGateSetupRequired, Name: "twofa_gate_setup_required_total", Help: "Requests denied pending two-factor setup."},
	{ID: twofa.MetricGateVerificationRequired, Name: "twofa_gate_verification_required_total", Help: "Requests denied pending two-factor verification."},
	{ID: twofa.MetricEnrollStarted, Name: "twofa_enroll_started_total", Help: "Enrollments begun."},
	{ID: twofa.MetricEnrollConfirmed, Name: "twofa_enroll_confirmed_total", Help: "Enrollments confirmed."},
	{ID: twofa.MetricEnrollFailed, Name: "twofa_enroll_failed_total", Help: "Enrollment confirmations rejected."},
	{ID: twofa.MetricChallengeCreated, Name: "twofa_challenge_created_total", Help: "Pending challenges planted at login."},
	{ID: twofa.MetricVerifySuccess, Name: "twofa_verify_success_total", Help: "Successful verifications."},
	{ID: twofa.MetricVerifyFailure, Name: "twofa_verify_failure_total", Help: "Failed verification attempts."},
	{ID: twofa.MetricRecoveryCodeUsed, Name: "twofa_recovery_code_used_total", Help: "Recovery codes consumed."},
	{ID: twofa.MetricRecoveryCodesRegenerated, Name: "twofa_recovery_codes_regenerated_total", Help: "Recovery code sets regenerated."},
	{ID: twofa.MetricTwoFactorReset, Name: "twofa_reset_total", Help: "Break-glass resets via recovery code."},
	{ID: twofa.MetricTwoFactorDisabled, Name: "twofa_disabled_total", Help: "Deliberate two-factor disables."},
	{ID: twofa.MetricDeviceTrusted, Name: "twofa_device_trusted_total", Help: "Devices added to the trust list."},
	{ID: twofa.MetricDeviceRevoked, Name: "twofa_device_revoked_total", Help: "Devices revoked from the trust list."},
	{ID: twofa.MetricSessionRegenerated, Name: "twofa_session_regenerated_total", Help: "Session identifiers rotated after verification."},
	{ID: twofa.MetricLogout, Name: "twofa_logout_total", Help: "Sessions destroyed by logout."},
}
