// Package authcore is the credential and session lifecycle of a
// username/password + TOTP authentication service: signup, login, OTP
// enrollment, access/refresh issuance and rotation, logout, and recovery
// through single-use recovery codes.
//
// An [Engine] is assembled with [New] and [Builder.Build] and is safe for
// concurrent use. Storage is pluggable: user.Store and session.Store are
// interfaces, with in-memory (memstore), SQL (sqlstore) and Redis
// (session.RedisStore) adapters. Multi-row writes run through a
// [Transactor].
//
// # Architecture boundaries
//
// This package is the public surface. Orchestration lives in
// internal/flows, audit buffering in internal/audit and the last-seen cache
// in internal/activity. HTTP handlers live in internal/httpapi and never
// reach past the Engine.
//
// # Errors
//
// Every caller-facing failure is an [*Error] with a stable [Code]. Storage
// and crypto failures surface as [ErrInternal]; their cause is logged and
// never returned.
package authcore
