// Package auth authenticates salespersons of the sales report API and
// authorizes the operations they perform.
//
// Principals:
//   - A Principal is a stored salesperson with one of three roles: sales,
//     manager or admin. Principals are persisted with Bun; see the
//     repository package for opening the store, migrations and seed data.
//   - Inactive principals can not log in, and tokens issued to them stop
//     validating as soon as they are deactivated.
//
// Tokens:
//   - TokenServiceImpl issues HMAC signed JWTs whose subject is the principal
//     id. Validation always re-reads the principal, so the returned
//     AuthenticatedPrincipal carries the stored role, not the one in the token.
//   - Tokens are stateless. Logout is recorded but does not revoke anything.
//
// Authorization:
//   - Roles form a fixed hierarchy (admin > manager > sales). Guard checks an
//     OperationPolicy mapping each Operation to the roles allowed to run it.
//   - RouteAuthenticator.ProtectedRoute combines token validation and the
//     guard into a single go-router middleware.
//
// Activity sinks:
//   - ActivitySink receives login, token rejection, access denial and logout
//     events. Sinks run best-effort (errors are logged) so you can forward to
//     logs or metrics without blocking authentication.
package auth
