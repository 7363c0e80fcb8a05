package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

const (
	CSVFile  = "indicateurs.csv"
	JSONFile = "indicateurs.json"
)

// Artifact is one encoded rendition of the indicator table.
type Artifact struct {
	Name        string
	ContentType string
	Body        []byte
}

// Artifacts encodes rows as CSV and JSON.
func Artifacts(rows []domain.OutputRow) ([]Artifact, error) {
	var csvBuf bytes.Buffer
	w := csv.NewWriter(&csvBuf)
	if err := w.Write(domain.OutputColumns); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(r.CSVRecord()); err != nil {
			return nil, fmt.Errorf("encode csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}

	if rows == nil {
		rows = []domain.OutputRow{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}

	return []Artifact{
		{Name: CSVFile, ContentType: "text/csv", Body: csvBuf.Bytes()},
		{Name: JSONFile, ContentType: "application/json", Body: data},
	}, nil
}

// ReadOutput decodes a previously written indicateurs.json.
func ReadOutput(path string) ([]domain.OutputRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	var rows []domain.OutputRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	return rows, nil
}

// Writer stores the indicator table in a local directory. It implements
// pipeline.Loader.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a loader writing into dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) Name() string { return "file" }

// Load replaces indicateurs.csv and indicateurs.json.
func (w *Writer) Load(ctx context.Context, rows []domain.OutputRow) error {
	arts, err := Artifacts(rows)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, a := range arts {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(w.dir, a.Name)
		if err := writeAtomic(path, a.Body); err != nil {
			return err
		}
		w.logger.Info("saved", "path", path, "bytes", len(a.Body))
	}
	return nil
}

// writeAtomic writes through a temporary file so readers never observe a
// partial table.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
