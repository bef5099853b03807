package twofa

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/trustkit/twofa/session"
	"github.com/trustkit/twofa/token"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens before the first Engine method call.
type Builder struct {
	config Config
	redis  *redis.Client

	principals PrincipalStore
	sessions   SessionStore
	auditSink  AuditSink

	built bool
}

// New starts a builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the session store.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithPrincipalStore supplies the persistence collaborator.
func (b *Builder) WithPrincipalStore(store PrincipalStore) *Builder {
	b.principals = store
	return b
}

// WithSessionStore overrides the Redis-backed session store with a custom
// implementation. Takes precedence over WithRedis.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessions = store
	return b
}

// WithAuditSink supplies the audit event receiver.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the components, and returns the
// engine. A builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b == nil {
		return nil, ErrEngineNotReady
	}
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.principals == nil {
		return nil, errors.New("principal store required")
	}

	sessions := b.sessions
	if sessions == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or session store required")
		}
		sessions = session.NewStore(b.redis, b.config.Session.RedisPrefix)
	}

	vault, err := NewSecretVault(b.config.Vault.Key)
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		SigningKey: b.config.Token.SigningKey,
		TTL:        b.config.Session.Lifetime,
		Issuer:     b.config.Token.Issuer,
		Leeway:     b.config.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     b.config,
		vault:      vault,
		principals: b.principals,
		sessions:   sessions,
		tokens:     tokens,
		audit:      newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:    NewMetrics(b.config.Metrics),
	}

	b.built = true
	return engine, nil
}
