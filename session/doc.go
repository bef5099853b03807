// Package session implements the Redis-backed session collaborator of the
// twofa engine. A session carries the two ephemeral two-factor flags: the
// pending challenge (which principal still owes a second factor) and the
// session-verified flag. Records are stored as a compact versioned binary
// blob under a TTL, and Regenerate issues a fresh session identifier on login
// to prevent session fixation.
package session
