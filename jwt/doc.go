// Package jwt issues and decodes the signed access/refresh token pair.
//
// Both variants carry the same jti (session id), user id and admin flag, and
// are signed with HS256 under two different secrets so one can never be
// replayed as the other. Decode checks signature and structure only; expiry
// is compared by callers against an injected clock.
package jwt
