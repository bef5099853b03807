package twofa

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricGateAllowed counts requests the access gate let through.
	MetricGateAllowed MetricID = iota
	// MetricGateSetupRequired counts gate denials signalling enrollment.
	MetricGateSetupRequired
	// MetricGateVerificationRequired counts gate denials signalling a
	// second-factor challenge.
	MetricGateVerificationRequired
	// MetricEnrollStarted counts enrollment secrets generated.
	MetricEnrollStarted
	// MetricEnrollConfirmed counts completed enrollments.
	MetricEnrollConfirmed
	// MetricEnrollFailed counts rejected confirmation attempts.
	MetricEnrollFailed
	// MetricChallengeCreated counts pending challenges planted at login.
	MetricChallengeCreated
	// MetricVerifySuccess counts successful TOTP verifications.
	MetricVerifySuccess
	// MetricVerifyFailure counts rejected verification attempts.
	MetricVerifyFailure
	// MetricRecoveryCodeUsed counts consumed recovery codes.
	MetricRecoveryCodeUsed
	// MetricRecoveryCodesRegenerated counts recovery set regenerations.
	MetricRecoveryCodesRegenerated
	// MetricTwoFactorReset counts break-glass resets triggered by recovery
	// codes.
	MetricTwoFactorReset
	// MetricTwoFactorDisabled counts user-initiated disablements.
	MetricTwoFactorDisabled
	// MetricDeviceTrusted counts trust records added.
	MetricDeviceTrusted
	// MetricDeviceRevoked counts trust records removed by the user.
	MetricDeviceRevoked
	// MetricSessionRegenerated counts session ID rotations on login.
	MetricSessionRegenerated
	// MetricLogout counts explicit session destructions.
	MetricLogout

	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds per-ID atomic counters. When disabled, every operation is a
// no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics creates a Metrics instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot deep-copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricIDCount),
	}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}
