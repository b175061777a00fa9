// Package session defines the session row model, the [Store] contract the
// engine depends on, and a Redis implementation of it.
//
// # Redis layout
//
//	<prefix>:s:<session_id>  binary-encoded row, TTL = expiry + retention
//	<prefix>:u:<user_id>     set of the user's session ids
//
// Rows outlive their refresh deadline by the retention window so that a late
// refresh is answered with "expired" (and the row deleted) rather than
// "unknown". Delete and rotate run as Lua scripts so the row and the user
// index never disagree.
//
// This package does not interpret tokens or make authorization decisions.
package session
