package artifacts

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveOpen(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Save(ctx, "em.json", strings.NewReader(`{"name":"em"}`))
	require.NoError(t, err)
	assert.Equal(t, "em.json", path)

	r, err := store.Open(ctx, path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"em"}`, string(data))
}

func TestStoreRejectsEscapingPaths(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Save(ctx, "../outside.json", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = store.Open(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)

	err = store.Delete(ctx, "..")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestStoreSamplesRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	header := []string{"mass", "age"}
	rows := [][]float64{{1.0, 4.5}, {1.05, 4.6}, {0.98, 4.4}}

	path, err := store.SaveSamples(ctx, "runs/run-1.csv", header, rows)
	require.NoError(t, err)

	page, err := store.ReadSamples(ctx, path, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, header, page.Header)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Rows, 3)
	assert.InDelta(t, 1.05, page.Rows[1][0], 1e-12)

	// A window still reports the full row count.
	page, err = store.ReadSamples(ctx, path, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Rows, 1)
	assert.InDelta(t, 4.6, page.Rows[0][1], 1e-12)

	// Offset past the end yields an empty page.
	page, err = store.ReadSamples(ctx, path, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.Equal(t, 3, page.Total)
}

func TestStoreListArtifacts(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Save(ctx, "a.json", strings.NewReader("{}"))
	require.NoError(t, err)
	_, err = store.Save(ctx, "b.json", strings.NewReader("{}"))
	require.NoError(t, err)
	_, err = store.Save(ctx, "notes.txt", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = store.SaveSamples(ctx, "runs/r.csv", []string{"mass"}, nil)
	require.NoError(t, err)

	paths, err := store.ListArtifacts(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.json", "b.json"}, paths)
}

func TestStoreDeleteMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "missing.json"))
}
