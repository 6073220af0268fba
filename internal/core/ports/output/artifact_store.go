package ports

import (
	"context"
	"io"
)

// SamplesPage is one window of an equally weighted posterior sample file.
type SamplesPage struct {
	Header []string
	Rows   [][]float64
	Total  int
}

// ArtifactStore persists emulator artifacts and posterior sample files. Paths
// returned by the store are opaque keys understood only by the same store.
type ArtifactStore interface {
	// Save writes a blob under the given name and returns its storage path
	Save(ctx context.Context, name string, r io.Reader) (string, error)

	// Open streams a previously saved blob
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// SaveSamples writes equally weighted posterior samples as CSV with one
	// named column per parameter
	SaveSamples(ctx context.Context, name string, header []string, rows [][]float64) (string, error)

	// ReadSamples returns a window of a samples file plus the total row count
	ReadSamples(ctx context.Context, path string, offset, limit int) (*SamplesPage, error)

	// ListArtifacts returns the paths of every emulator artifact in the store
	ListArtifacts(ctx context.Context) ([]string, error)

	// Delete removes a stored blob; deleting a missing path is not an error
	Delete(ctx context.Context, path string) error
}
