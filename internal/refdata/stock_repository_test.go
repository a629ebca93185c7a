package refdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/smassist/backend/pkg/database"
)

// newTestDB opens a fresh in-memory store with the schema applied.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := database.Open(":memory:", false)
	require.NoError(t, err, "open in-memory store")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, CreateSchema(context.Background(), db.Bun), "create schema")
	return db.Bun
}

func TestUpsertIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewStockRepository(db)
	ctx := context.Background()

	in := StockUpsert{ISIN: "INE001A01036", SymbolNSE: "HDFCBANK", CompanyName: "HDFC Bank Limited"}

	id1, created1, err := repo.Upsert(ctx, in)
	require.NoError(t, err)
	assert.True(t, created1, "first upsert should create")

	id2, created2, err := repo.Upsert(ctx, in)
	require.NoError(t, err)
	assert.False(t, created2, "second upsert should update")
	assert.Equal(t, id1, id2, "same candidate must resolve to same entity")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "no duplicate row")
}

func TestUpsertMergesViaSymbol(t *testing.T) {
	db := newTestDB(t)
	repo := NewStockRepository(db)
	ctx := context.Background()

	// A: new entity. B: same ISIN, new symbol -> symbol replaced.
	// C: matches via symbol only -> name filled in on same entity.
	id1, _, err := repo.Upsert(ctx, StockUpsert{ISIN: "IN001", SymbolNSE: "FOO"})
	require.NoError(t, err)

	id2, created, err := repo.Upsert(ctx, StockUpsert{ISIN: "IN001", SymbolNSE: "FOO2"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	id3, created, err := repo.Upsert(ctx, StockUpsert{SymbolNSE: "FOO2", CompanyName: "Foo Inc"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id3)

	stock, err := repo.Get(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "FOO2", deref(stock.SymbolNSE))
	assert.Equal(t, "Foo Inc", deref(stock.CompanyName))
	assert.Equal(t, "IN001", deref(stock.ISIN))
}

func TestUpsertIdentityPriorityDropsConflictingSymbol(t *testing.T) {
	db := newTestDB(t)
	repo := NewStockRepository(db)
	ctx := context.Background()

	// e1 owns ISIN X; e2 owns symbol Y. A candidate claiming both must
	// resolve to e1 (ISIN wins) and drop Y rather than steal it from e2.
	e1, _, err := repo.Upsert(ctx, StockUpsert{ISIN: "INX", SymbolNSE: "ORIG"})
	require.NoError(t, err)

	e2, _, err := repo.Upsert(ctx, StockUpsert{SymbolNSE: "TAKEN"})
	require.NoError(t, err)
	require.NotEqual(t, e1, e2)

	id, created, err := repo.Upsert(ctx, StockUpsert{ISIN: "INX", SymbolNSE: "TAKEN", CompanyName: "Example Ltd"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, e1, id, "ISIN match takes priority over symbol match")

	s1, err := repo.Get(ctx, e1)
	require.NoError(t, err)
	assert.Equal(t, "ORIG", deref(s1.SymbolNSE), "conflicting symbol must be dropped, not written")
	assert.Equal(t, "Example Ltd", deref(s1.CompanyName), "non-identity fields still written")

	s2, err := repo.Get(ctx, e2)
	require.NoError(t, err)
	assert.Equal(t, "TAKEN", deref(s2.SymbolNSE), "other entity keeps its symbol")
}

func TestUpsertNeverBlanksPopulatedFields(t *testing.T) {
	db := newTestDB(t)
	repo := NewStockRepository(db)
	ctx := context.Background()

	id, _, err := repo.Upsert(ctx, StockUpsert{
		SymbolNSE:   "RELIANCE",
		ISIN:        "INE002A01018",
		CompanyName: "Reliance Industries",
		NSESeries:   "EQ",
		Status:      "active",
	})
	require.NoError(t, err)

	// A BSE-flavored sighting of the same ISIN must merge, not blank the
	// NSE attributes it does not carry.
	id2, _, err := repo.Upsert(ctx, StockUpsert{
		ISIN:         "INE002A01018",
		SymbolBSE:    "RELIANCE",
		BSEScripCode: "500325",
	})
	require.NoError(t, err)
	require.Equal(t, id, id2)

	stock, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "RELIANCE", deref(stock.SymbolNSE))
	assert.Equal(t, "EQ", deref(stock.NSESeries))
	assert.Equal(t, "500325", deref(stock.BSEScripCode))
	assert.Equal(t, "active", deref(stock.Status))
}

func TestUpsertUniquenessPreserved(t *testing.T) {
	db := newTestDB(t)
	repo := NewStockRepository(db)
	ctx := context.Background()

	// A hostile sequence of overlapping upserts must never violate the
	// partial unique indexes.
	seq := []StockUpsert{
		{ISIN: "IN001", SymbolNSE: "A"},
		{ISIN: "IN002", SymbolNSE: "B"},
		{ISIN: "IN001", SymbolNSE: "B"},           // symbol B owned by IN002
		{SymbolNSE: "A", SymbolBSE: "A"},          // adds BSE symbol to IN001
		{ISIN: "IN002", SymbolBSE: "A"},           // BSE symbol A owned by IN001
		{SymbolBSE: "A", ISIN: "IN002"},           // ISIN owned by other -> dropped
		{ISIN: "IN003"},                           // bare new entity
		{ISIN: "IN003", SymbolNSE: "A", SymbolBSE: "A"}, // both symbols taken
	}

	for i, in := range seq {
		_, _, err := repo.Upsert(ctx, in)
		require.NoErrorf(t, err, "upsert %d must not raise", i)
	}

	for _, column := range []string{"isin", "symbol_nse", "symbol_bse"} {
		var dupes int
		err := db.NewRaw(
			"SELECT COUNT(*) FROM (SELECT "+column+" FROM stocks WHERE "+column+" IS NOT NULL AND "+column+" <> '' GROUP BY "+column+" HAVING COUNT(*) > 1)",
		).Scan(ctx, &dupes)
		require.NoError(t, err)
		assert.Zerof(t, dupes, "duplicate non-empty %s values", column)
	}
}

func TestUpsertNormalizesWhitespace(t *testing.T) {
	db := newTestDB(t)
	repo := NewStockRepository(db)
	ctx := context.Background()

	id1, _, err := repo.Upsert(ctx, StockUpsert{SymbolNSE: " TCS ", ISIN: " INE467B01029 "})
	require.NoError(t, err)

	id2, created, err := repo.Upsert(ctx, StockUpsert{SymbolNSE: "TCS"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	stock, err := repo.Get(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "TCS", deref(stock.SymbolNSE))
	assert.Equal(t, "INE467B01029", deref(stock.ISIN))
}

func TestUpsertBareCandidateStillInsertable(t *testing.T) {
	db := newTestDB(t)
	repo := NewStockRepository(db)
	ctx := context.Background()

	// Callers are expected to filter these upstream, but the engine does
	// not reject them.
	id, created, err := repo.Upsert(ctx, StockUpsert{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, id)
}

func TestResolvePriorityOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewStockRepository(db)
	ctx := context.Background()

	byISIN, _, err := repo.Upsert(ctx, StockUpsert{ISIN: "IN100"})
	require.NoError(t, err)
	byNSE, _, err := repo.Upsert(ctx, StockUpsert{SymbolNSE: "NSE100"})
	require.NoError(t, err)
	byBSE, _, err := repo.Upsert(ctx, StockUpsert{SymbolBSE: "BSE100"})
	require.NoError(t, err)

	// All three keys present and pointing at different entities: ISIN wins.
	id, found, err := repo.Resolve(ctx, norm("IN100"), norm("NSE100"), norm("BSE100"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, byISIN, id)

	// No ISIN match: NSE symbol wins over BSE.
	id, found, err = repo.Resolve(ctx, nil, norm("NSE100"), norm("BSE100"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, byNSE, id)

	id, found, err = repo.Resolve(ctx, nil, nil, norm("BSE100"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, byBSE, id)

	_, found, err = repo.Resolve(ctx, norm("NOPE"), nil, nil)
	require.NoError(t, err)
	assert.False(t, found)
}
