// Package accounts provides a user account API with JWT authentication:
// credential verification, token issuance and verification, and request
// level access control, plus the user management endpoints built on them.
//
// Tokens:
//   - Tokens are HS256 signed and carry uid, email and role. EncodeToken and
//     DecodeToken are pure helpers, TokenService binds the signing key, the
//     configured lifetime (e.g. "7d") and a clock. Any verification failure is
//     reported as ErrInvalidToken.
//
// Access gates:
//   - Guard.Protected attaches the principal of a valid bearer token to the
//     fiber locals and to the request context.Context. Guard.Roles and
//     Guard.OwnerOrAdmin reject with ErrInsufficientPermissions and
//     ErrAccessDenied. The same checks are available as plain functions
//     (Authenticate, RequireRoles, RequireOwnerOrAdmin).
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and
//     UserService to describe login, refresh, logout and account changes.
//     Sinks run best-effort (errors are logged) so you can forward to metrics
//     or a queue without blocking authentication.
//
// Storage:
//   - Users is a bun repository over the users table. Migrations are embedded
//     (GetMigrationsFS) and run with goose against sqlite or postgres.
package accounts
