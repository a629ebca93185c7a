package refdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUniverseIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewUniverseRepository(db)
	ctx := context.Background()

	id1, err := repo.Ensure(ctx, "NSE-EQ", "NSE EQ series equities")
	require.NoError(t, err)

	// Same code in different case and padding resolves to the same universe.
	id2, err := repo.Ensure(ctx, "  nse-eq ", "ignored on second ensure")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	universes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, universes, 1)
	assert.Equal(t, "nse-eq", universes[0].Code)
	assert.Equal(t, "NSE EQ series equities", deref(universes[0].Description))
}

func TestMembershipUpsertFlipsIncluded(t *testing.T) {
	db := newTestDB(t)
	stocks := NewStockRepository(db)
	repo := NewUniverseRepository(db)
	ctx := context.Background()

	stockID, _, err := stocks.Upsert(ctx, StockUpsert{SymbolNSE: "INFY", ISIN: "INE009A01021"})
	require.NoError(t, err)
	uID, err := repo.Ensure(ctx, "nse-eq", "")
	require.NoError(t, err)

	require.NoError(t, repo.UpsertMembership(ctx, uID, stockID, false))
	n, err := repo.MemberCount(ctx, uID)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "excluded member not counted")

	// Re-inserting the same pair flips the flag instead of duplicating.
	require.NoError(t, repo.UpsertMembership(ctx, uID, stockID, true))
	n, err = repo.MemberCount(ctx, uID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var rows int
	err = db.NewRaw("SELECT COUNT(*) FROM universe_membership WHERE universe_id = ? AND stock_id = ?", uID, stockID).Scan(ctx, &rows)
	require.NoError(t, err)
	assert.Equal(t, 1, rows, "membership pair stored once")
}

func TestMemberStocksDeterministicOrder(t *testing.T) {
	db := newTestDB(t)
	stocks := NewStockRepository(db)
	repo := NewUniverseRepository(db)
	ctx := context.Background()

	uID, err := repo.Ensure(ctx, "bse-eq", "")
	require.NoError(t, err)

	// Mixed identities: order is by first available of NSE symbol, BSE
	// symbol, ISIN, company name.
	specs := []StockUpsert{
		{SymbolNSE: "ZETA"},
		{SymbolBSE: "ALPHA"},
		{ISIN: "IN500"},
		{SymbolNSE: "BETA", SymbolBSE: "ZZZ"},
	}
	for _, in := range specs {
		id, _, err := stocks.Upsert(ctx, in)
		require.NoError(t, err)
		require.NoError(t, repo.UpsertMembership(ctx, uID, id, true))
	}

	members, err := repo.MemberStocks(ctx, uID)
	require.NoError(t, err)
	require.Len(t, members, 4)

	keys := make([]string, 0, len(members))
	for _, m := range members {
		key := deref(m.SymbolNSE)
		if key == "" {
			key = deref(m.SymbolBSE)
		}
		if key == "" {
			key = deref(m.ISIN)
		}
		keys = append(keys, key)
	}
	assert.Equal(t, []string{"ALPHA", "BETA", "IN500", "ZETA"}, keys)
}
