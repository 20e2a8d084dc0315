// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb holds types to fake an in-memory DB.
package fakedb // import "github.com/go-lpc/ral/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

var query struct {
	mu   sync.Mutex
	rows Rows

	rec struct {
		sync.Mutex
		stmts []Stmt
		id    int64
	}
}

// Run runs f with a database that answers every query with rows.
// Statements executed while f runs can be retrieved with Statements.
func Run(ctx context.Context, rows Rows, f func(ctx context.Context) error) error {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = rows

	query.rec.Lock()
	query.rec.stmts = nil
	query.rec.id = 0
	query.rec.Unlock()

	return f(ctx)
}

// Statements returns the statements executed during the last Run.
func Statements() []Stmt {
	query.rec.Lock()
	defer query.rec.Unlock()
	return append([]Stmt(nil), query.rec.stmts...)
}

func record(stmt Stmt) {
	query.rec.Lock()
	defer query.rec.Unlock()
	query.rec.stmts = append(query.rec.stmts, stmt)
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

// Open returns a new connection to the database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{Query: query}, nil
}

// Close invalidates any current prepared statements and transactions.
func (c *Conn) Close() error {
	return nil
}

// Begin starts and returns a new transaction.
func (c *Conn) Begin() (driver.Tx, error) {
	return tx{}, nil
}

type tx struct{}

func (tx) Commit() error   { return nil }
func (tx) Rollback() error { return nil }

// Stmt is a prepared statement, along with the arguments it was run with.
type Stmt struct {
	Query string
	Args  []driver.Value
}

// Close closes the statement.
func (stmt *Stmt) Close() error {
	return nil
}

// NumInput returns the number of placeholder parameters.
// The fake driver does not know it.
func (stmt *Stmt) NumInput() int {
	return -1
}

// Exec executes a query that doesn't return rows, such
// as an INSERT or UPDATE.
func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	record(Stmt{Query: stmt.Query, Args: args})

	query.rec.Lock()
	defer query.rec.Unlock()
	query.rec.id++
	return result{id: query.rec.id}, nil
}

// Query executes a query that may return rows, such as a
// SELECT.
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	record(Stmt{Query: stmt.Query, Args: args})
	return &query.rows, nil
}

type result struct {
	id int64
}

func (res result) LastInsertId() (int64, error) { return res.id, nil }
func (res result) RowsAffected() (int64, error) { return 1, nil }

type Rows struct {
	Names  []string
	Values [][]driver.Value
}

// Columns returns the names of the columns.
func (rows *Rows) Columns() []string {
	return rows.Names
}

// Close closes the rows iterator.
func (rows *Rows) Close() error {
	return nil
}

// Next is called to populate the next row of data into
// the provided slice.
//
// Next returns io.EOF when there are no more rows.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*Conn)(nil)
	_ driver.Stmt   = (*Stmt)(nil)
	_ driver.Tx     = (*tx)(nil)
	_ driver.Result = (*result)(nil)
	_ driver.Rows   = (*Rows)(nil)
)
