package file

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/cdr-indicators-etl/internal/config"
	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

const (
	LegacyFile   = "cdr_praps1_initial_values.csv"
	MetadataFile = "indicators_metadata.csv"
)

// Extractor reads survey tables exported as JSON arrays plus the legacy and
// metadata CSV files. It implements pipeline.Extractor.
type Extractor struct {
	surveyDir   string
	cdrDir      string
	snapshotDir string
	minKm       float64
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewExtractor creates an extractor for the configured directories.
func NewExtractor(cfg *config.Config, logger *slog.Logger) *Extractor {
	return &Extractor{
		surveyDir:   cfg.SurveyDir,
		cdrDir:      cfg.CDRDir,
		snapshotDir: cfg.SnapshotDir,
		minKm:       cfg.DedupMinDistanceKm,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Extract loads every catalogued survey, deduplicating infrastructure
// surveys, and the two CDR reference files.
func (e *Extractor) Extract(ctx context.Context) (domain.Sources, error) {
	src := domain.Sources{Surveys: make(map[string]domain.Table, len(domain.Catalogue))}

	for _, survey := range domain.Catalogue {
		if err := ctx.Err(); err != nil {
			return src, err
		}
		t, err := ReadSurvey(filepath.Join(e.surveyDir, survey.Name+".json"), survey.Name)
		if err != nil {
			return src, err
		}
		if survey.Infrastructure() {
			t = domain.Deduplicate(t, *survey.Geography, e.minKm)
			if e.snapshotDir != "" {
				if err := e.writeSnapshots(t); err != nil {
					return src, err
				}
			}
		}
		e.logger.Debug("survey loaded", "survey", survey.Name, "records", t.Len(), "columns", len(t.Columns))
		src.Surveys[survey.Name] = t
	}

	legacy, err := e.readLegacy(filepath.Join(e.cdrDir, LegacyFile))
	if err != nil {
		return src, err
	}
	src.Legacy = legacy

	meta, err := e.readMetadata(filepath.Join(e.cdrDir, MetadataFile))
	if err != nil {
		return src, err
	}
	src.Metadata = meta

	return src, nil
}

// ReadSurvey decodes a JSON array of submissions. Numbers keep their
// textual form so that integer codes are not rounded.
func ReadSurvey(path, name string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("open survey %s: %w", name, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var records []domain.Record
	if err := dec.Decode(&records); err != nil {
		return domain.Table{}, fmt.Errorf("decode survey %s: %w", name, err)
	}
	return domain.NewTable(name, records), nil
}

func (e *Extractor) writeSnapshots(t domain.Table) error {
	snap, err := domain.ConcatenateSnapshots(t, domain.DateColumn)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", t.Name, err)
	}
	data, err := json.Marshal(snap.Records)
	if err != nil {
		return fmt.Errorf("serialize snapshots %s: %w", t.Name, err)
	}
	if err := os.MkdirAll(e.snapshotDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(e.snapshotDir, t.Name+"_snapshots.json")
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	e.logger.Info("snapshots written", "survey", t.Name, "records", snap.Len(), "path", path)
	return nil
}

// readCSV returns the data rows of a CSV file keyed by header name.
func readCSV(path string, required ...string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", filepath.Base(path), err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	for _, col := range required {
		found := false
		for _, h := range header {
			if h == col {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s: %w: %s", filepath.Base(path), domain.ErrMissingColumn, col)
		}
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (e *Extractor) readLegacy(path string) ([]domain.LegacyRecord, error) {
	rows, err := readCSV(path, "Code", "année", "Pays", "valeur")
	if err != nil {
		return nil, err
	}
	out := make([]domain.LegacyRecord, 0, len(rows))
	for i, row := range rows {
		year, err := strconv.Atoi(row["année"])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: année %q: %w", LegacyFile, i+2, row["année"], domain.ErrMalformedValue)
		}
		rec := domain.LegacyRecord{Code: row["Code"], Year: year, Country: row["Pays"]}
		if v := strings.ReplaceAll(row["valeur"], ",", "."); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: valeur %q: %w", LegacyFile, i+2, row["valeur"], domain.ErrMalformedValue)
			}
			rec.Value = &f
		}
		if err := e.validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", LegacyFile, i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (e *Extractor) readMetadata(path string) ([]domain.Metadata, error) {
	rows, err := readCSV(path, "code", "designation", "unite")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Metadata, 0, len(rows))
	for i, row := range rows {
		m := domain.Metadata{
			Code:        row["code"],
			Designation: row["designation"],
			Unit:        domain.Unit(row["unite"]),
		}
		if err := e.validate.Struct(m); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", MetadataFile, i+2, err)
		}
		out = append(out, m)
	}
	return out, nil
}
