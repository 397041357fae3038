package domain

import (
	"context"

	"nexuscalc/internal/core/refdata"
)

// GatewayPort serves reference data snapshots to the engine and to handlers
type GatewayPort interface {
	Snapshot(ctx context.Context) (*refdata.Dataset, error)
	Info(ctx context.Context) (SnapshotInfo, error)
	Jurisdictions(ctx context.Context) ([]JurisdictionView, error)
	Rules(ctx context.Context, code string) ([]RuleView, error)
}

// SeederPort writes a dataset into durable storage
type SeederPort interface {
	Seed(ctx context.Context, d *refdata.Dataset) error
}
