package modkit

import (
	"nexuscalc/internal/modkit/repokit"
	"nexuscalc/internal/platform/config"
	"nexuscalc/internal/platform/logger"
	"nexuscalc/internal/platform/store"
)

// Deps are the shared handles passed to every module.
// PG and CH are nil interfaces when the store is not configured
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}
