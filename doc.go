// Package twofa provides a two-factor authentication and device-trust engine:
// the policy layer that decides, per request, whether a user must re-prove
// identity with a TOTP code or a recovery code, or may proceed because the
// device is already trusted.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// twofa is the policy core. Password authentication, user persistence, and
// notification delivery are external collaborators: the host application
// implements [PrincipalStore] over its user database, and the engine drives
// the Redis-backed [SessionStore] in the session sub-package. The core never
// renders UI and never dispatches email.
//
// # What this package must NOT do
//
//   - Expose Redis clients, encryption internals, or session encoding details
//     in its public API.
//   - Mutate principal state on any error path. The only side-effecting
//     success path is the recovery-code reset in [Engine.Verify].
//   - Import any sub-package that re-imports twofa (no import cycles).
//
// # Performance contract
//
// [Engine.Authorize] is the hot path. It is a pure decision over already
// loaded state and performs no I/O; [Engine.AuthorizeRequest] adds exactly one
// session load and one principal load per call.
package twofa
