package ch

import (
	"os"
	"strings"

	"nexuscalc/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo names this binary in system.query_log: build version, role
// ("api", "cli"), tag, commit and host
func BuildClientInfo(role, tag string) clickhouse.ClientInfo {
	bi := version.Info()
	host, _ := os.Hostname()

	info := clickhouse.ClientInfo{}
	for _, p := range [][2]string{
		{"nexuscalc", bi.Version},
		{"role", role},
		{"tag", tag},
		{"commit", bi.Commit},
		{"host", host},
	} {
		if v := strings.TrimSpace(p[1]); v != "" {
			info.Products = append(info.Products, struct{ Name, Version string }{p[0], v})
		}
	}
	return info
}
