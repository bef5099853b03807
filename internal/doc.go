// Package internal holds helpers shared by the twofa engine: fingerprint
// hashing, session identifiers, and recovery code generation. Nothing here is
// part of the public API.
package internal
