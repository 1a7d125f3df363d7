// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	// Registers the "sqlite3" database/sql driver.
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/sortkey"
)

// schemaVersion is the version of the schema descriptor.
const schemaVersion = 1

// ErrSchema is returned when a store's schema descriptor is missing, invalid
// or does not match the sort key.
var ErrSchema = fmt.Errorf("%w: schema mismatch", errdefs.ErrUsage)

// SQLiteOptions are options for OpenSQLite.
type SQLiteOptions struct {
	// Create creates a new store, replacing an existing file. Otherwise the
	// schema of the existing store is read back from its descriptor.
	Create bool

	// Persist keeps the database file on Close.
	Persist bool

	// CommitEvery is the number of appended records per transaction.
	CommitEvery int

	// Logger is the logger. It defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultSQLiteOptions are the default options for OpenSQLite.
var DefaultSQLiteOptions = SQLiteOptions{
	Create:      true,
	CommitEvery: 1000,
}

// schema is the persisted schema descriptor.
type schema struct {
	Version int              `json:"version"`
	Columns []sortkey.Column `json:"columns"`
	Reverse bool             `json:"reverse"`
	Sorted  bool             `json:"sorted"`
}

func (s *schema) columnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// SQLite is a store backed by an SQLite database file.
type SQLite struct {
	path   string
	db     *sql.DB
	codec  *entry.Codec
	opts   SQLiteOptions
	logger *zap.Logger

	// schema is nil until the sort key is set or recovered.
	schema *schema

	// keySet is true once SetSortKey succeeded.
	keySet bool

	tx      *sql.Tx
	insert  *sql.Stmt
	pending int
	n       int
	closed  bool
}

// OpenSQLite opens an SQLite store at path.
func OpenSQLite(path string, codec *entry.Codec, opts SQLiteOptions) (*SQLite, error) {
	if opts.CommitEvery <= 0 {
		opts.CommitEvery = DefaultSQLiteOptions.CommitEvery
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.Create {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", errStore, err)
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", errStore, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errStore, err)
	}
	// Iteration and inserts share one connection.
	db.SetMaxOpenConns(1)

	s := &SQLite{
		path:   path,
		db:     db,
		codec:  codec,
		opts:   opts,
		logger: logger,
	}

	for _, pragma := range []string{
		"PRAGMA synchronous = OFF",
		"PRAGMA journal_mode = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %w", errStore, err)
		}
	}

	if !opts.Create {
		if err := s.readSchema(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) readSchema() error {
	var (
		version         int
		columns         string
		reverse, sorted bool
	)
	err := s.db.QueryRow(
		"SELECT version, columns, reverse, sorted FROM glossary_schema",
	).Scan(&version, &columns, &reverse, &sorted)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrSchema, version)
	}

	sc := &schema{
		Version: version,
		Reverse: reverse,
		Sorted:  sorted,
	}
	if err := json.Unmarshal([]byte(columns), &sc.Columns); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if len(sc.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrSchema)
	}
	s.schema = sc

	if err := s.db.QueryRow("SELECT COUNT(*) FROM data").Scan(&s.n); err != nil {
		return fmt.Errorf("%w: %w", errStore, err)
	}
	s.logger.Debug("recovered store schema",
		zap.Strings("columns", sc.columnNames()),
		zap.Bool("sorted", sorted),
		zap.Bool("reverse", reverse),
		zap.Int("records", s.n),
	)
	return nil
}

func (s *SQLite) writeSchema() error {
	columns, err := json.Marshal(s.schema.Columns)
	if err != nil {
		return fmt.Errorf("%w: %w", errStore, err)
	}
	if _, err := s.db.Exec("DELETE FROM glossary_schema"); err != nil {
		return fmt.Errorf("%w: %w", errStore, err)
	}
	_, err = s.db.Exec(
		"INSERT INTO glossary_schema (version, columns, reverse, sorted) VALUES (?, ?, ?, ?)",
		s.schema.Version, string(columns), s.schema.Reverse, s.schema.Sorted,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errStore, err)
	}
	return nil
}

// SortColumns returns the names of the sort columns, or nil if no sort key
// was set or recovered.
func (s *SQLite) SortColumns() []string {
	if s.schema == nil {
		return nil
	}
	return s.schema.columnNames()
}

// SetSortKey implements [Store.SetSortKey]. For a new store it creates the
// data table. For an existing store the key's columns must match the
// recovered schema.
func (s *SQLite) SetSortKey(k *sortkey.NamedSortKey, opts sortkey.Options) error {
	if s.closed {
		return ErrClosed
	}
	if s.keySet {
		return ErrSortKeySet
	}
	cols, err := k.External(opts)
	if err != nil {
		return err
	}

	if s.schema != nil {
		// Reopened store.
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		if !slices.Equal(names, s.schema.columnNames()) {
			return fmt.Errorf("%w: sort key %q has columns %q, store has %q",
				ErrSchema, k.Name, names, s.schema.columnNames())
		}
		// Extractors are not persisted.
		s.schema.Columns = cols
		s.keySet = true
		return nil
	}

	defs := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		defs = append(defs, fmt.Sprintf("%s %s", quote(c.Name), c.Type))
	}
	defs = append(defs, "record BLOB")
	stmts := []string{
		fmt.Sprintf("CREATE TABLE data (%s)", strings.Join(defs, ", ")),
		"CREATE TABLE glossary_schema (version INTEGER, columns TEXT, reverse INTEGER, sorted INTEGER)",
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("%w: %w", errStore, err)
		}
	}

	s.schema = &schema{
		Version: schemaVersion,
		Columns: cols,
	}
	if err := s.writeSchema(); err != nil {
		return err
	}
	s.keySet = true
	s.logger.Debug("created store table", zap.String("sortKey", k.Name), zap.Strings("columns", s.schema.columnNames()))
	return nil
}

// Append implements [Store.Append]. Rows are inserted in transactions of
// CommitEvery rows.
func (s *SQLite) Append(r entry.Record) error {
	if s.closed {
		return ErrClosed
	}
	if !s.keySet {
		return ErrNoSortKey
	}

	if s.tx == nil {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("%w: %w", errStore, err)
		}
		names := make([]string, 0, len(s.schema.Columns)+1)
		for _, c := range s.schema.Columns {
			names = append(names, quote(c.Name))
		}
		names = append(names, "record")
		stmt, err := tx.Prepare(fmt.Sprintf(
			"INSERT INTO data (%s) VALUES (%s)",
			strings.Join(names, ", "),
			strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "),
		))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: %w", errStore, err)
		}
		s.tx = tx
		s.insert = stmt
	}

	blob, err := s.codec.EncodeBytes(r)
	if err != nil {
		return err
	}
	terms := r.Terms()
	args := make([]any, 0, len(s.schema.Columns)+1)
	for _, c := range s.schema.Columns {
		args = append(args, c.Extract(terms))
	}
	args = append(args, blob)
	if _, err := s.insert.Exec(args...); err != nil {
		return fmt.Errorf("%w: %w", errStore, err)
	}
	s.n++
	s.pending++

	if s.pending >= s.opts.CommitEvery {
		return s.commit()
	}
	return nil
}

func (s *SQLite) commit() error {
	if s.tx == nil {
		return nil
	}
	_ = s.insert.Close()
	err := s.tx.Commit()
	s.tx = nil
	s.insert = nil
	s.pending = 0
	if err != nil {
		return fmt.Errorf("%w: %w", errStore, err)
	}
	return nil
}

// Len implements [Store.Len].
func (s *SQLite) Len() int {
	return s.n
}

// Sort implements [Store.Sort]. It creates an index over the sort columns
// and iteration follows it from then on.
func (s *SQLite) Sort(reverse bool) error {
	if s.closed {
		return ErrClosed
	}
	if !s.keySet {
		return ErrNoSortKey
	}
	if s.schema.Sorted {
		return ErrSorted
	}
	if err := s.commit(); err != nil {
		return err
	}

	stmt := fmt.Sprintf("CREATE INDEX sortkey ON data(%s)", s.orderColumns(reverse))
	s.logger.Debug("creating sort index", zap.String("sql", stmt))
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("%w: %w", errStore, err)
	}

	s.schema.Sorted = true
	s.schema.Reverse = reverse
	return s.writeSchema()
}

func (s *SQLite) orderColumns(reverse bool) string {
	cols := make([]string, len(s.schema.Columns))
	for i, c := range s.schema.Columns {
		cols[i] = quote(c.Name)
		if reverse {
			cols[i] += " DESC"
		}
	}
	return strings.Join(cols, ", ")
}

// Records implements [Store.Records]. Ties are returned in insertion order.
func (s *SQLite) Records() iter.Seq2[entry.Record, error] {
	if s.closed {
		return errSeq(ErrClosed)
	}
	if s.schema == nil {
		// Nothing was ever stored.
		return func(func(entry.Record, error) bool) {}
	}

	return func(yield func(entry.Record, error) bool) {
		if err := s.commit(); err != nil {
			yield(nil, err)
			return
		}

		query := "SELECT record FROM data ORDER BY "
		if s.schema.Sorted {
			query += s.orderColumns(s.schema.Reverse) + ", "
		}
		query += "rowid"

		rows, err := s.db.Query(query)
		if err != nil {
			yield(nil, fmt.Errorf("%w: %w", errStore, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var blob []byte
			if err := rows.Scan(&blob); err != nil {
				yield(nil, fmt.Errorf("%w: %w", errStore, err))
				return
			}
			r, err := s.codec.DecodeBytes(blob)
			if !yield(r, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("%w: %w", errStore, err))
		}
	}
}

// Close implements [Store.Close]. The database file is removed unless
// Persist is set. Closing a closed store is a no-op.
func (s *SQLite) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.commit()
	if cerr := s.db.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("%w: %w", errStore, cerr)
	}
	if !s.opts.Persist {
		for _, p := range []string{s.path, s.path + "-journal"} {
			if rerr := os.Remove(p); rerr != nil && !errors.Is(rerr, os.ErrNotExist) && err == nil {
				err = fmt.Errorf("%w: %w", errStore, rerr)
			}
		}
		s.logger.Debug("removed store", zap.String("path", s.path))
	}
	return err
}

// quote quotes an SQL identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
