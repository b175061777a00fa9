// Package audit buffers security events and forwards them to a Sink.
//
// The Dispatcher is a bounded asynchronous relay. With DropIfFull set a
// saturated buffer drops events and counts them; otherwise Emit blocks until
// there is room or the caller's context ends. Sinks provided here write to a
// channel, a JSON line stream, or a slog.Logger.
//
// The package never decides which events exist. The engine and flows do.
package audit
