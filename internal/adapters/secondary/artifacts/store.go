// Package artifacts is the filesystem artifact store: emulator artifact JSON
// files live at the top of the root directory, posterior sample CSVs under
// runs/. Writes go through renameio so readers never observe partial files.
package artifacts

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"

	ports "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
)

var ErrInvalidPath = errors.New("invalid artifact path")

// Store implements ports.ArtifactStore on a local directory. Stored paths are
// opaque keys relative to the root; every access is confined to the root.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory of the store.
func (s *Store) Root() string { return s.root }

func (s *Store) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	p := filepath.Join(s.root, filepath.FromSlash(name))
	if p != s.root && !strings.HasPrefix(p, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q escapes the store root", ErrInvalidPath, name)
	}
	return p, nil
}

func (s *Store) Save(_ context.Context, name string, r io.Reader) (string, error) {
	p, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	pending, err := renameio.NewPendingFile(p)
	if err != nil {
		return "", fmt.Errorf("create pending artifact file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, r); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("replace artifact: %w", err)
	}
	return name, nil
}

func (s *Store) Open(_ context.Context, path string) (io.ReadCloser, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open artifact %q: %w", path, err)
	}
	return f, nil
}

func (s *Store) SaveSamples(_ context.Context, name string, header []string, rows [][]float64) (string, error) {
	p, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create samples directory: %w", err)
	}

	pending, err := renameio.NewPendingFile(p)
	if err != nil {
		return "", fmt.Errorf("create pending samples file: %w", err)
	}
	defer pending.Cleanup()

	w := csv.NewWriter(pending)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write samples header: %w", err)
	}
	record := make([]string, len(header))
	for _, row := range rows {
		if len(row) != len(header) {
			return "", fmt.Errorf("samples row has %d values, header has %d", len(row), len(header))
		}
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write samples row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush samples: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("replace samples file: %w", err)
	}
	return name, nil
}

func (s *Store) ReadSamples(_ context.Context, path string, offset, limit int) (*ports.SamplesPage, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open samples %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read samples header: %w", err)
	}

	page := &ports.SamplesPage{Header: header}
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read samples row %d: %w", row, err)
		}
		if row >= offset && len(page.Rows) < limit {
			values := make([]float64, len(record))
			for j, field := range record {
				v, err := strconv.ParseFloat(field, 64)
				if err != nil {
					return nil, fmt.Errorf("parse samples row %d column %d: %w", row, j, err)
				}
				values[j] = v
			}
			page.Rows = append(page.Rows, values)
		}
		row++
	}
	page.Total = row
	return page, nil
}

func (s *Store) ListArtifacts(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read artifact root: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, e.Name())
	}
	return paths, nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	p, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete artifact %q: %w", path, err)
	}
	return nil
}
