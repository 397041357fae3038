package modkit

import "net/http"

// Option adjusts a module build
type Option func(*Built)

// WithName sets the module name used in logs and errors
func WithName(name string) Option {
	return func(b *Built) { b.name = name }
}

// WithPrefix sets the mount path under the API version
func WithPrefix(prefix string) Option {
	return func(b *Built) { b.prefix = prefix }
}

// WithMiddlewares appends per module middleware, applied in order after the API stack
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.mw = append(b.mw, mw...) }
}

// WithPorts hands a module the ports it consumes from other modules.
// The concrete type belongs to the consuming module
func WithPorts[T any](p T) Option {
	return func(b *Built) { b.cross = p }
}
