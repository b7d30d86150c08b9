package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "storage")

// Storage persists histogram snapshots in a SQLite database.
type Storage struct {
	db *sql.DB
}

// NewStorage opens the database at path and creates the schema if needed.
func NewStorage(path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open database %s", path)
	}

	s := Storage{db}

	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return &s, nil
}

func (s *Storage) init() error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS "snapshot" (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		kind        TEXT    NOT NULL,
		taken_at    INTEGER NOT NULL,
		best_hash   BLOB    NOT NULL,
		best_height INTEGER NOT NULL,
		tx_count    INTEGER NOT NULL,
		counts      TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS "snapshot_kind_taken_at" ON "snapshot" (kind, taken_at);
	`
	if _, err := s.db.Exec(sqlStmt); err != nil {
		return errors.Wrap(err, "could not create schema")
	}
	return nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Query describes a select on a single table. Where may contain `?`
// placeholders that are bound to Args in order.
type Query interface {
	Where() string
	Args() []interface{}
	Order() string
	Limit() int
}

// StaticQuery is a Query with fixed clauses. Empty clauses are omitted.
type StaticQuery struct {
	where string
	args  []interface{}
	order string
	limit int
}

func (q StaticQuery) Where() string {
	return q.where
}

func (q StaticQuery) Args() []interface{} {
	return q.args
}

func (q StaticQuery) Order() string {
	return q.order
}

func (q StaticQuery) Limit() int {
	return q.limit
}

func formatQuery(fields []string, table string, q Query) string {
	query := fmt.Sprintf(`SELECT %s FROM "%s"`, strings.Join(fields, ", "), table)
	if where := q.Where(); where != "" {
		query += " WHERE " + where
	}
	if order := q.Order(); order != "" {
		query += " ORDER BY " + order
	}
	if limit := q.Limit(); limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return query
}
