package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quasarcli/pkg/contracts/domain"
)

func table(id, ws string, products ...string) domain.Table {
	t := domain.Table{SpreadsheetID: id, Worksheet: ws}
	for _, p := range products {
		t.Rows = append(t.Rows, domain.Transaction{Product: p, SourceKey: t.Key()})
	}
	return t
}

func TestMergePreservesFailedButEnumerableSheets(t *testing.T) {
	previous := map[string]domain.Table{
		"a::v1": table("a", "v1", "old-a"),
		"b::v1": table("b", "v1", "old-b"),
	}
	fresh := map[string]domain.Table{
		"a::v1": table("a", "v1", "new-a"),
	}
	enumerated := map[string]bool{"a": true, "b": true}

	merged := Merge(previous, fresh, enumerated)

	require.Len(t, merged, 2)
	assert.Equal(t, "new-a", merged["a::v1"].Rows[0].Product)
	assert.Equal(t, "old-b", merged["b::v1"].Rows[0].Product)
}

func TestMergeDropsRemovedFiles(t *testing.T) {
	previous := map[string]domain.Table{
		"gone::v1": table("gone", "v1", "old"),
	}
	merged := Merge(previous, nil, map[string]bool{"other": true})
	assert.Empty(t, merged)
}

func TestMergeFreshWinsOverPrevious(t *testing.T) {
	previous := map[string]domain.Table{"a::v1": table("a", "v1", "old")}
	fresh := map[string]domain.Table{"a::v1": table("a", "v1", "new")}

	merged := Merge(previous, fresh, map[string]bool{"a": true})
	require.Len(t, merged, 1)
	assert.Equal(t, "new", merged["a::v1"].Rows[0].Product)
}

func TestMergeNeverShrinksOnTotalFailure(t *testing.T) {
	// Every read failed but both files still exist: the dataset is intact.
	previous := map[string]domain.Table{
		"a::v1": table("a", "v1", "p1"),
		"b::v1": table("b", "v1", "p2"),
	}
	merged := Merge(previous, map[string]domain.Table{}, map[string]bool{"a": true, "b": true})
	assert.Len(t, merged, 2)
}

func TestDatasetReplaceAndSnapshots(t *testing.T) {
	d := New()
	assert.True(t, d.Empty())

	d.Replace(
		map[string]domain.RawSheet{"a::v1": {SpreadsheetID: "a", Worksheet: "v1", Header: []string{"Produto"}, Rows: [][]string{{"x"}, {"y"}}}},
		map[string]domain.Table{"a::v1": table("a", "v1", "x", "y")},
	)

	assert.False(t, d.Empty())
	sheets, rows := d.Counts()
	assert.Equal(t, 1, sheets)
	assert.Equal(t, 2, rows)

	// Snapshots are copies: mutating them does not affect the dataset.
	snap := d.Tables()
	delete(snap, "a::v1")
	assert.False(t, d.Empty())
}

func TestDatasetTransactionsOrderedByKey(t *testing.T) {
	d := New()
	d.Replace(nil, map[string]domain.Table{
		"b::v1": table("b", "v1", "from-b"),
		"a::v1": table("a", "v1", "from-a"),
	})

	txns := d.Transactions()
	require.Len(t, txns, 2)
	assert.Equal(t, "from-a", txns[0].Product)
	assert.Equal(t, "from-b", txns[1].Product)
}

func TestDatasetHydrateCountsNormalized(t *testing.T) {
	d := New()
	d.Hydrate(map[string]domain.Table{"a::v1": table("a", "v1", "x", "y", "z")})

	sheets, rows := d.Counts()
	assert.Equal(t, 1, sheets)
	assert.Equal(t, 3, rows)
}
