package store

import (
	"context"
	"testing"
	"time"
)

func TestOpenPG_ParentAlreadyCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 127.0.0.1:1 is closed everywhere so the ping fails immediately
	cfg := Config{PG: PGConfig{URL: "postgres://u:p@127.0.0.1:1/db?sslmode=disable", MaxConns: 1}}

	start := time.Now()
	txr, err := openPG(ctx, cfg, &Store{})
	if err == nil || txr != nil {
		t.Fatalf("expected error on canceled context, got %T", txr)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("canceled open should not back off")
	}
}

func TestOpenPG_RetriesBounded(t *testing.T) {
	t.Parallel()

	cfg := Config{PG: PGConfig{
		URL:            "postgres://u:p@127.0.0.1:1/db?sslmode=disable",
		MaxConns:       1,
		ConnectRetries: 2,
		PingTimeout:    200 * time.Millisecond,
	}}
	_, err := openPG(context.Background(), cfg, &Store{})
	if err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestOpenCH_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := openCH(context.Background(), Config{CH: CHConfig{Enabled: true}}, &Store{}); err == nil {
		t.Fatalf("expected error for empty clickhouse url")
	}
}
