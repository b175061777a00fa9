// Package internal holds helpers private to authcore: session id and
// recovery code generation.
//
// # Sub-packages
//
//   - activity: RWMutex last-seen cache
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: orchestration of every Engine operation
//   - httpapi: HTTP handlers used by cmd/authd
//   - storetest: shared conformance suite for store adapters
package internal
