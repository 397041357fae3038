//go:build integration_pg

package repo_test

import (
	"context"
	"testing"
	"time"

	"nexuscalc/internal/core/refdata"
	"nexuscalc/internal/modkit/repokit"
	"nexuscalc/internal/platform/store/pgtest"
	"nexuscalc/internal/services/refdata/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceThenLoad_RoundTripsDefault(t *testing.T) {
	st := pgtest.Open(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	want, err := refdata.Default()
	require.NoError(t, err)

	err = repokit.WithTx(ctx, st.PG, func(q repokit.Queryer) error {
		r := repo.NewPG().Bind(q)
		if err := r.Migrate(ctx); err != nil {
			return err
		}
		return r.Replace(ctx, want)
	})
	require.NoError(t, err)

	got, err := repo.NewPG().Bind(st.PG).Load(ctx)
	require.NoError(t, err)
	require.NoError(t, got.Validate())
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.Codes(), got.Codes())

	for _, code := range want.Codes() {
		w, _ := want.Get(code)
		g, _ := got.Get(code)
		assert.True(t, w.Rate.Equal(g.Rate), code)
		assert.Len(t, g.Rules, len(w.Rules), code)
		wr, err := want.RuleFor(code, 2024)
		require.NoError(t, err)
		gr, err := got.RuleFor(code, 2024)
		require.NoError(t, err)
		assert.Equal(t, wr.Operator, gr.Operator, code)
		assert.Equal(t, wr.Transactions, gr.Transactions, code)
	}
}

func TestLoad_EmptyTables(t *testing.T) {
	st := pgtest.Open(t)
	ctx := context.Background()
	r := repo.NewPG().Bind(st.PG)
	require.NoError(t, r.Migrate(ctx))

	_, err := r.Load(ctx)
	assert.Error(t, err)
}
