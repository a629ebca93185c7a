package refdata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVEscape(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"", ""},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say ""hi"""`},
		{`both, "quoted"`, `"both, ""quoted"""`},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, csvEscape(c.in), "escape %q", c.in)
	}
}

func TestExportDeterministicAndHashed(t *testing.T) {
	db := newTestDB(t)
	stocks := NewStockRepository(db)
	universes := NewUniverseRepository(db)
	mgr := NewSnapshotManager(db, stocks, universes)
	ctx := context.Background()

	uID, err := universes.Ensure(ctx, "nse-eq", "")
	require.NoError(t, err)

	seed := []StockUpsert{
		{SymbolNSE: "TCS", ISIN: "INE467B01029", CompanyName: "Tata Consultancy Services", NSESeries: "EQ"},
		{SymbolNSE: "INFY", ISIN: "INE009A01021", CompanyName: "Infosys, Limited", NSESeries: "EQ"},
	}
	for _, in := range seed {
		id, _, err := stocks.Upsert(ctx, in)
		require.NoError(t, err)
		require.NoError(t, universes.UpsertMembership(ctx, uID, id, true))
	}

	dir := t.TempDir()
	path := SnapshotPath(dir, "nse-eq")
	n, err := mgr.Export(ctx, "nse-eq", path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, snapshotHeader, lines[0])
	// Ordered by NSE symbol; comma in the company name forces quoting.
	assert.Equal(t, `INFY,,"Infosys, Limited",INE009A01021,EQ,,`, lines[1])
	assert.Equal(t, "TCS,,Tata Consultancy Services,INE467B01029,EQ,,", lines[2])

	snaps, err := mgr.ListSnapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.NotNil(t, snaps[0].RowCount)
	assert.Equal(t, 2, *snaps[0].RowCount)

	sum := sha256.Sum256(raw)
	assert.Equal(t, hex.EncodeToString(sum[:]), deref(snaps[0].ContentSHA256),
		"recorded hash matches the file bytes")

	// Exporting the same universe again yields byte-identical content.
	path2 := filepath.Join(dir, "again.csv")
	_, err = mgr.Export(ctx, "nse-eq", path2)
	require.NoError(t, err)
	raw2, err := os.ReadFile(path2)
	require.NoError(t, err)
	assert.Equal(t, raw, raw2)
}

func TestExportUnknownUniverse(t *testing.T) {
	db := newTestDB(t)
	mgr := NewSnapshotManager(db, NewStockRepository(db), NewUniverseRepository(db))

	dir := t.TempDir()
	path := SnapshotPath(dir, "nope")
	n, err := mgr.Export(context.Background(), "nope", path)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file written for unknown universe")
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := newTestDB(t)
	stocks := NewStockRepository(db)
	universes := NewUniverseRepository(db)
	mgr := NewSnapshotManager(db, stocks, universes)
	ctx := context.Background()

	uID, err := universes.Ensure(ctx, "bse-eq", "BSE equities")
	require.NoError(t, err)

	seed := []StockUpsert{
		{SymbolBSE: "RELIANCE", BSEScripCode: "500325", ISIN: "INE002A01018", CompanyName: "Reliance Industries", Status: "active"},
		{SymbolBSE: "TATAMOTORS", BSEScripCode: "500570", CompanyName: "Tata Motors \"TML\""},
	}
	for _, in := range seed {
		id, _, err := stocks.Upsert(ctx, in)
		require.NoError(t, err)
		require.NoError(t, universes.UpsertMembership(ctx, uID, id, true))
	}

	dir := t.TempDir()
	n, err := mgr.Export(ctx, "bse-eq", SnapshotPath(dir, "bse-eq"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// Import into an empty store and export again: the bytes must match.
	db2 := newTestDB(t)
	stocks2 := NewStockRepository(db2)
	universes2 := NewUniverseRepository(db2)
	mgr2 := NewSnapshotManager(db2, stocks2, universes2)

	imported, err := mgr2.Import(ctx, dir, "bse-eq", "BSE equities")
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	dir2 := t.TempDir()
	n2, err := mgr2.Export(ctx, "bse-eq", SnapshotPath(dir2, "bse-eq"))
	require.NoError(t, err)
	require.Equal(t, 2, n2)

	raw1, err := os.ReadFile(SnapshotPath(dir, "bse-eq"))
	require.NoError(t, err)
	raw2, err := os.ReadFile(SnapshotPath(dir2, "bse-eq"))
	require.NoError(t, err)
	assert.Equal(t, string(raw1), string(raw2), "round-trip preserves bytes")

	// Import is idempotent against a populated store.
	imported, err = mgr2.Import(ctx, dir, "bse-eq", "")
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	count, err := stocks2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestImportMissingFile(t *testing.T) {
	db := newTestDB(t)
	mgr := NewSnapshotManager(db, NewStockRepository(db), NewUniverseRepository(db))

	n, err := mgr.Import(context.Background(), t.TempDir(), "nse-eq", "")
	require.NoError(t, err)
	assert.Zero(t, n)
}
