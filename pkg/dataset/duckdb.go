package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// DuckDB wraps an embedded DuckDB connection used to read and write Parquet.
type DuckDB struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenDuckDB opens a DuckDB database. Use "" or ":memory:" for an in-memory
// database, which is all reading Parquet requires.
func OpenDuckDB(ctx context.Context, path string, logger *slog.Logger) (*DuckDB, error) {
	if path == ":memory:" {
		path = ""
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	return &DuckDB{db: db, logger: logger}, nil
}

// Close closes the connection.
func (d *DuckDB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Exec executes a statement that returns no rows.
func (d *DuckDB) Exec(ctx context.Context, sqlStr string) error {
	if d.db == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := d.db.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// ReadParquet reads a Parquet file into a column-major RawTable. When columns
// is non-empty only those columns are projected.
func (d *DuckDB) ReadParquet(ctx context.Context, path string, columns ...string) (*RawTable, error) {
	return d.Query(ctx, selectParquet(path, columns))
}

// Query runs a statement and materializes every row column-major.
func (d *DuckDB) Query(ctx context.Context, sqlStr string) (*RawTable, error) {
	if d.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	//nolint:rowserrcheck // checked after iteration below
	rows, err := d.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	t := &RawTable{Columns: names, Data: make([][]any, len(names))}
	dest := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range dest {
			t.Data[i] = append(t.Data[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	d.logger.Debug("query materialized", slog.Int("columns", len(names)), slog.Int("rows", t.Len()))
	return t, nil
}

// ParquetColumns returns the column names of a Parquet file without reading
// its rows.
func (d *DuckDB) ParquetColumns(ctx context.Context, path string) ([]string, error) {
	t, err := d.Query(ctx, selectParquet(path, nil)+" LIMIT 0")
	if err != nil {
		return nil, err
	}
	return t.Columns, nil
}

// CountRows returns the number of rows in a Parquet file.
func (d *DuckDB) CountRows(ctx context.Context, path string) (int64, error) {
	if d.db == nil {
		return 0, fmt.Errorf("database connection not established")
	}
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM read_parquet(%s)", quoteLiteral(path))
	if err := d.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

// ConvertCSV writes the CSV at src to a Parquet file at dst. DuckDB infers the
// schema from the CSV header and values.
func (d *DuckDB) ConvertCSV(ctx context.Context, src, dst string) error {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	query := fmt.Sprintf(
		"COPY (SELECT * FROM read_csv_auto(%s, header=true)) TO %s (FORMAT PARQUET)",
		quoteLiteral(absSrc),
		quoteLiteral(absDst),
	)
	if err := d.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to convert %s: %w", filepath.Base(src), err)
	}
	return nil
}

func selectParquet(path string, columns []string) string {
	proj := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = quoteIdent(c)
		}
		proj = strings.Join(quoted, ", ")
	}
	return fmt.Sprintf("SELECT %s FROM read_parquet(%s)", proj, quoteLiteral(path))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
