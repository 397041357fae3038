package modkit

import (
	"net/http"

	"nexuscalc/internal/modkit/httpkit"
	str "nexuscalc/internal/platform/strings"
)

// Built is the resolved module identity; modules embed it
type Built struct {
	name   string
	prefix string
	mw     []func(http.Handler) http.Handler
	cross  any
}

// Build applies opts in order, so later options override earlier defaults
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	b.mw = append([]func(http.Handler) http.Handler(nil), b.mw...)
	return b
}

// Name returns the module name; a blank name panics
func (b Built) Name() string { return str.MustString(b.name, "module name") }

// Prefix returns the normalized mount path; a blank prefix panics
func (b Built) Prefix() string { return str.MustPrefix(b.prefix) }

// Middlewares returns the per module middleware
func (b Built) Middlewares() []func(http.Handler) http.Handler { return b.mw }

// Cross returns what WithPorts supplied, or nil
func (b Built) Cross() any { return b.cross }

// Mount registers routes under the module prefix with its middleware
func (b Built) Mount(r httpkit.Router, register func(httpkit.Router)) {
	httpkit.MountUnder(r, b.Prefix(), b.mw, register)
}
