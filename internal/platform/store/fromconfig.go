package store

import "nexuscalc/internal/platform/config"

// ConfigFrom reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_*; a backend without a DBURL stays disabled
func ConfigFrom(root config.Conf, tag string) Config {
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	pgURL := pgCfg.MayString("DBURL", "")
	chURL := chCfg.MayString("DBURL", "")
	return Config{
		AppName: "nexuscalc",
		PG: PGConfig{
			Enabled:        pgURL != "",
			URL:            pgURL,
			MaxConns:       int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs:    pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:         pgCfg.MayBool("LOG_SQL", false),
			ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 0),
		},
		CH: CHConfig{
			Enabled:    chURL != "",
			URL:        chURL,
			ClientName: "nexuscalc",
			ClientTag:  tag,
			LogSQL:     chCfg.MayBool("LOG_SQL", false),
		},
	}
}
