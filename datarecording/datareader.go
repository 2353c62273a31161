package datarecording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ErrUnmappedTable is returned by Query for a table that MapTable never saw.
var ErrUnmappedTable = errors.New("datarecording: table not mapped")

// QueryParams narrows and pages a read of one recorded table. Field names in
// the clauses are the column names the recorder derived from the struct, for
// example StartMs and TriggerKind in carousel_transition.
type QueryParams struct {
	// Where is an SQL condition with ? placeholders, such as
	// "TriggerKind = ? AND StartMs >= ?". Empty reads every row.
	Where string
	Args  []any

	// OrderBy is a column list such as "StartMs, rowid".
	OrderBy string

	// Limit caps the page size. Zero returns every matching row, and Offset
	// only applies when Limit is set.
	Limit  int
	Offset int
}

// DataReader reads back tables written by a DataRecorder.
type DataReader interface {
	// MapTable tells the reader which struct a table's rows decode into.
	// Columns without a same-named field are skipped.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the sorted names of the mapped tables.
	ListTables() []string

	// Query returns one page of rows as pointers to the mapped struct. The
	// count is of every row matching params.Where, ignoring Limit.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type sqliteReader struct {
	*sql.DB

	rowTypes map[string]reflect.Type
}

// NewReader opens a finished recording read-only.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", "file:"+dbFilename+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("datarecording: open %s: %w", dbFilename, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("datarecording: open %s: %w", dbFilename, err)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB reads from a database the caller already holds, such as
// the one a live DataRecorder writes to. Close closes db.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		DB:       db,
		rowTypes: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.rowTypes[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.rowTypes))
	for table := range r.rowTypes {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	rowType, ok := r.rowTypes[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnmappedTable, tableName)
	}

	var total int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+whereClause(params),
		params.Args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("datarecording: count %s: %w", tableName, err)
	}

	rows, err := r.DB.QueryContext(ctx, selectQuery(tableName, params),
		params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("datarecording: query %s: %w", tableName, err)
	}
	defer rows.Close()

	results, err := decodeRows(rows, rowType)
	if err != nil {
		return nil, 0, fmt.Errorf("datarecording: scan %s: %w", tableName, err)
	}

	return results, total, nil
}

func (r *sqliteReader) Close() error {
	return r.DB.Close()
}

func whereClause(params QueryParams) string {
	if params.Where == "" {
		return ""
	}

	return " WHERE " + params.Where
}

func selectQuery(tableName string, params QueryParams) string {
	var sb strings.Builder

	sb.WriteString("SELECT * FROM ")
	sb.WriteString(tableName)
	sb.WriteString(whereClause(params))

	if params.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(params.OrderBy)
	}

	if params.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", params.Limit)

		if params.Offset > 0 {
			fmt.Fprintf(&sb, " OFFSET %d", params.Offset)
		}
	}

	return sb.String()
}

// decodeRows scans each row into a new value of rowType. Columns are matched
// to fields by name once, before the first row.
func decodeRows(rows *sql.Rows, rowType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fieldOf := make([]int, len(columns))
	for i, col := range columns {
		fieldOf[i] = -1

		if f, ok := rowType.FieldByName(col); ok && len(f.Index) == 1 {
			fieldOf[i] = f.Index[0]
		}
	}

	var results []any

	for rows.Next() {
		entry := reflect.New(rowType)
		targets := make([]any, len(columns))

		for i, field := range fieldOf {
			if field < 0 {
				targets[i] = new(any)
				continue
			}

			targets[i] = entry.Elem().Field(field).Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}
