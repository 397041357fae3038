package module

import "nexuscalc/internal/services/refdata/domain"

// Ports are the refdata ports other modules consume
type Ports struct {
	Gateway domain.GatewayPort
	Seeder  domain.SeederPort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
