package domain

import "context"

// RunnerPort runs analyses and VDA models
type RunnerPort interface {
	Analyze(ctx context.Context, in AnalyzeInput) (AnalyzeResult, error)
	VDA(ctx context.Context, in VDAInput) (VDAResult, error)
	Run(ctx context.Context, id string) (Run, error)
}

// ImporterPort stores client transactions for later analysis
type ImporterPort interface {
	Import(ctx context.Context, in ImportInput) (ImportResult, error)
}
