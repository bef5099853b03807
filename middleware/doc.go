// Package middleware adapts the twofa access gate to net/http. The guard
// runs before business handlers, resolves the caller's session from the
// bearer token, and translates gate decisions into responses: allowed
// requests pass through with the decision stashed in the request context,
// denials turn into 403 responses naming the re-authentication flow the
// client must run.
package middleware
