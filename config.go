package twofa

import (
	"errors"
	"time"
)

// Config holds every tunable of the engine. Instances are configured during
// initialization and treated as immutable afterwards.
type Config struct {
	TOTP     TOTPConfig
	Trust    TrustConfig
	Recovery RecoveryConfig
	Vault    VaultConfig
	Demo     DemoConfig
	Session  SessionConfig
	Token    TokenConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig parameterizes the external TOTP primitive and the provisioning
// URI embedded into enrollment QR codes.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int    // seconds per time step
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
	Skew      int    // accepted time steps on each side of now
}

/*
====================================
DEVICE TRUST CONFIG
====================================
*/

// TrustConfig controls trusted-device records.
type TrustConfig struct {
	// TTL is the fixed lifetime of a trust record from the moment it is
	// added. Expiry is absolute; records are never refreshed in place.
	TTL time.Duration
}

/*
====================================
RECOVERY CODE CONFIG
====================================
*/

// RecoveryConfig controls one-time recovery code issuance.
type RecoveryConfig struct {
	// CodeCount is the number of codes issued per set.
	CodeCount int
	// SegmentLength is the length of each of the two random segments a code
	// is composed of.
	SegmentLength int
}

/*
====================================
VAULT CONFIG
====================================
*/

// VaultConfig supplies the at-rest encryption key for secrets and recovery
// codes.
type VaultConfig struct {
	// Key must be exactly 32 bytes.
	Key []byte
}

/*
====================================
DEMO OVERRIDE CONFIG
====================================
*/

// DemoConfig enables a fixed-code bypass for a single seeded demo account,
// useful for product walkthroughs against throwaway data. Disabled by
// default and scoped to one principal ID; never enable it in production.
type DemoConfig struct {
	Enabled     bool
	PrincipalID string
	Code        string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis-backed session collaborator.
type SessionConfig struct {
	RedisPrefix string
	// Lifetime bounds the session record, and with it the pending challenge:
	// a half-authenticated login has no independent expiry beyond it.
	Lifetime time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls the signed session-reference tokens handed to clients
// after login.
type TokenConfig struct {
	// SigningKey must be at least 32 bytes.
	SigningKey []byte
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the caller when the buffer
	// is saturated. Dropped counts are observable via Engine.AuditDropped.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the baseline configuration. Hosts set the TOTP
// issuer and the vault and token keys on top of it; everything else is
// usable as is.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		TOTP: TOTPConfig{
			Issuer:    "",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		Trust: TrustConfig{
			TTL: 90 * 24 * time.Hour,
		},
		Recovery: RecoveryConfig{
			CodeCount:     8,
			SegmentLength: 10,
		},
		Demo: DemoConfig{
			Enabled: false,
		},
		Session: SessionConfig{
			RedisPrefix: "tfs",
			Lifetime:    12 * time.Hour,
		},
		Token: TokenConfig{
			Issuer: "twofa",
			Leeway: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Vault.Key = cloneBytes(cfg.Vault.Key)
	out.Token.SigningKey = cloneBytes(cfg.Token.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the engine cannot run safely with.
func (c *Config) Validate() error {
	if c.TOTP.Issuer == "" {
		return errors.New("totp issuer required")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("totp digits must be between 6 and 8")
	}
	if c.TOTP.Period < 15 || c.TOTP.Period > 120 {
		return errors.New("totp period must be between 15s and 120s")
	}
	switch c.TOTP.Algorithm {
	case "", "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("unsupported totp algorithm")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("totp skew must be between 0 and 2 steps")
	}

	if c.Trust.TTL <= 0 {
		return errors.New("trust ttl must be positive")
	}

	if c.Recovery.CodeCount <= 0 || c.Recovery.CodeCount > 32 {
		return errors.New("recovery code count must be between 1 and 32")
	}
	if c.Recovery.SegmentLength < 8 || c.Recovery.SegmentLength > 32 {
		return errors.New("recovery code segment length must be between 8 and 32")
	}

	if len(c.Vault.Key) != 32 {
		return errors.New("vault key must be exactly 32 bytes")
	}

	if c.Demo.Enabled {
		if c.Demo.PrincipalID == "" {
			return errors.New("demo override requires a principal id")
		}
		if len(c.Demo.Code) < 6 {
			return errors.New("demo override code must be at least 6 characters")
		}
	}

	if c.Session.Lifetime <= 0 {
		return errors.New("session lifetime must be positive")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix required")
	}

	if len(c.Token.SigningKey) < 32 {
		return errors.New("token signing key must be at least 32 bytes")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("token leeway must be between 0 and 2 minutes")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}

	return nil
}
