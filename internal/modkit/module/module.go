// Package module is the contract the API composes modules through
package module

import (
	phttp "nexuscalc/internal/platform/net/http"
)

// Module mounts routes and exposes ports for other modules.
// It sits apart from modkit so a module's ports type can import it without a cycle
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
