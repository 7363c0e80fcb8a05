package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/couchcryptid/cdr-indicators-etl/internal/config"
	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

// insertBatch bounds the rows per INSERT so the placeholder count stays
// under the drivers' parameter limits.
const insertBatch = 500

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var columnTypes = map[string]string{
	"indicator_code":          "TEXT NOT NULL",
	"indicator_name":          "TEXT",
	"unit":                    "TEXT",
	"year":                    "INTEGER NOT NULL",
	"date":                    "DATE NOT NULL",
	"project":                 "TEXT NOT NULL",
	"level":                   "INTEGER NOT NULL",
	"country":                 "TEXT NOT NULL",
	"region":                  "TEXT",
	"numerator":               "DOUBLE PRECISION",
	"denominator":             "DOUBLE PRECISION",
	"value":                   "DOUBLE PRECISION",
	"cumulative_numerator":    "DOUBLE PRECISION",
	"cumulative_denominator":  "DOUBLE PRECISION",
	"cumulative_value":        "DOUBLE PRECISION",
	"cumulative_value_praps2": "DOUBLE PRECISION",
}

// Writer replaces warehouse tables with the indicator table. It implements
// pipeline.Loader.
type Writer struct {
	db     *sql.DB
	driver string
	tables []string
	logger *slog.Logger
}

// Open connects to the configured database and checks it is reachable.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Writer, error) {
	db, err := sql.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DatabaseDriver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.DatabaseDriver, err)
	}
	w, err := New(db, cfg.DatabaseDriver, cfg.DatabaseTables, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

// New wraps an open database. driver selects the placeholder style.
func New(db *sql.DB, driver string, tables []string, logger *slog.Logger) (*Writer, error) {
	for _, t := range tables {
		if !tableName.MatchString(t) {
			return nil, fmt.Errorf("invalid table name %q", t)
		}
	}
	return &Writer{db: db, driver: driver, tables: tables, logger: logger}, nil
}

func (w *Writer) Name() string { return "warehouse" }

// builder returns a squirrel statement builder for the connected driver.
func (w *Writer) builder() squirrel.StatementBuilderType {
	if w.driver == "pgx" {
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	}
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

// Load drops, recreates and fills every configured table in one
// transaction, so readers see either the previous or the new table.
func (w *Writer) Load(ctx context.Context, rows []domain.OutputRow) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range w.tables {
		if err := w.replace(ctx, tx, table, rows); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	w.logger.Info("warehouse tables replaced", "tables", w.tables, "rows", len(rows))
	return nil
}

func (w *Writer) replace(ctx context.Context, tx *sql.Tx, table string, rows []domain.OutputRow) error {
	quoted := quote(table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, createTable(quoted)); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		q := w.builder().Insert(quoted).Columns(domain.OutputColumns...)
		for _, r := range rows[start:end] {
			q = q.Values(values(r)...)
		}
		query, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	n, err := w.count(ctx, tx, table)
	if err != nil {
		return err
	}
	if n != len(rows) {
		return fmt.Errorf("verify %s: wrote %d rows, found %d", table, len(rows), n)
	}
	return nil
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// count returns the number of rows in a table.
func (w *Writer) count(ctx context.Context, q rowQueryer, table string) (int, error) {
	if !tableName.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	query, args, err := w.builder().Select("COUNT(*)").From(quote(table)).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (w *Writer) Close() error {
	return w.db.Close()
}

func quote(table string) string { return `"` + table + `"` }

func createTable(quoted string) string {
	defs := make([]string, len(domain.OutputColumns))
	for i, c := range domain.OutputColumns {
		defs[i] = c + " " + columnTypes[c]
	}
	return "CREATE TABLE " + quoted + " (" + strings.Join(defs, ", ") + ")"
}

func values(r domain.OutputRow) []any {
	return []any{
		r.IndicatorCode,
		nullString(r.IndicatorName),
		nullString(r.Unit),
		r.Year,
		r.Date,
		r.Project,
		r.Level,
		r.Country,
		nullString(r.Region),
		nullFloat(r.Numerator),
		nullFloat(r.Denominator),
		nullFloat(r.Value),
		nullFloat(r.CumulativeNumerator),
		nullFloat(r.CumulativeDenominator),
		nullFloat(r.CumulativeValue),
		nullFloat(r.CumulativeValuePRAPS2),
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
