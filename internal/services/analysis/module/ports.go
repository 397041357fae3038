package module

import "nexuscalc/internal/services/analysis/domain"

// Ports are the analysis ports other modules and binaries consume
type Ports struct {
	Runner   domain.RunnerPort
	Importer domain.ImporterPort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
