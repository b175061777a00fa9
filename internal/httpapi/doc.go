// Package httpapi exposes the engine over JSON/HTTP. Handlers translate
// requests into Engine calls and engine error codes into status codes;
// they hold no authentication logic of their own.
package httpapi
