// Package middleware adapts authcore.Engine token checks to net/http.
//
// # Guards
//
//   - [Guard]: stateless access-token check via Engine.Authenticate.
//   - [RequireStrict]: also requires the session to exist, via
//     Engine.AuthenticateSession, so logout is effective immediately.
//   - [RequireAdmin]: rejects requests whose claims lack the admin flag.
//
// Guards read the Authorization bearer token and inject the validated
// claims into the request context. They make no decisions of their own
// beyond pass or reject.
package middleware
