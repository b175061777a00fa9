// Package flows holds the orchestration behind every Engine operation.
//
// Each Run* function takes a Deps value and touches the outside world only
// through it: stores, the token issuer, the hasher, the OTP engine, the
// activity cache, metrics and audit. Flows return the caller-facing errors
// carried in Deps.Errors and route every other failure through
// Deps.Errors.Internal.
//
// Multi-row writes run inside Deps.Tx. Read-modify-write cycles on a user
// rely on the store's optimistic version check and are re-evaluated from a
// fresh read when another writer wins.
//
// This package must not import the root package.
package flows
