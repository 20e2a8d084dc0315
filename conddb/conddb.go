// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to store and retrieve register presets from
// a configuration database.
//
// A preset is a named set of register values for a given address map.
package conddb // import "github.com/go-lpc/ral/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var (
	usr  = "username"
	pwd  = "s3cr3t"
	host = "localhost"

	drvName = "mysql"
)

// RegValue is the stored value of a register.
type RegValue struct {
	Register string `json:"register"`
	Value    uint64 `json:"value"`
}

// DB exposes convenience methods to easily retrieve and store register
// presets.
type DB struct {
	db   *sql.DB
	name string // name of the presets database
}

// Open opens a connection to the presets database dbname.
// Credentials and host may be overridden with the RAL_DB_USER, RAL_DB_PASS
// and RAL_DB_HOST environment variables.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s)/%s",
		env("RAL_DB_USER", usr),
		env("RAL_DB_PASS", pwd),
		env("RAL_DB_HOST", host),
		db,
	)
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// LastPreset returns the name of the most recent preset stored for the
// named address map.
func (db *DB) LastPreset(ctx context.Context, addrmap string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	name := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name FROM presets WHERE addrmap=? ORDER BY datetime DESC LIMIT 1",
		addrmap,
	)
	if err != nil {
		return name, fmt.Errorf("conddb: could not query last preset: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&name)
		if err != nil {
			return name, fmt.Errorf("conddb: could not get last preset value: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return name, fmt.Errorf("conddb: could not scan db for last preset: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return name, fmt.Errorf("conddb: context error while retrieving last preset: %w", err)
	}

	if name == "" {
		return name, fmt.Errorf("conddb: no preset for address map %q", addrmap)
	}

	return name, nil
}

// Presets returns the names of all the presets stored for the named
// address map, most recent first.
func (db *DB) Presets(ctx context.Context, addrmap string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var names []string
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name FROM presets WHERE addrmap=? ORDER BY datetime DESC",
		addrmap,
	)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not query presets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return nil, fmt.Errorf("conddb: could not scan preset name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conddb: could not scan db for presets: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conddb: context error while retrieving presets: %w", err)
	}

	return names, nil
}

// Preset returns the register values of the named preset.
func (db *DB) Preset(ctx context.Context, name string) ([]RegValue, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var vs []RegValue
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT preset_values.register, preset_values.value FROM preset_values
JOIN presets ON presets.id=preset_values.preset
WHERE presets.name=?
ORDER BY preset_values.id
`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not run preset %q query: %w", name, err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var v RegValue
		err = rows.Scan(&v.Register, &v.Value)
		if err != nil {
			return nil, fmt.Errorf("conddb: could not scan row %d for preset %q: %w", i, name, err)
		}
		i++
		vs = append(vs, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conddb: could not scan db for preset %q: %w", name, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conddb: context error while retrieving preset %q: %w", name, err)
	}

	if len(vs) == 0 {
		return nil, fmt.Errorf("conddb: no register value for preset %q", name)
	}

	return vs, nil
}

// SavePreset stores the provided register values under the named preset.
func (db *DB) SavePreset(ctx context.Context, name, addrmap string, vs []RegValue) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("conddb: could not start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(
		ctx,
		"INSERT INTO presets (name, addrmap, datetime) VALUES (?, ?, ?)",
		name, addrmap, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("conddb: could not insert preset %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("conddb: could not retrieve preset %q id: %w", name, err)
	}

	for _, v := range vs {
		_, err = tx.ExecContext(
			ctx,
			"INSERT INTO preset_values (preset, register, value) VALUES (?, ?, ?)",
			id, v.Register, v.Value,
		)
		if err != nil {
			return fmt.Errorf(
				"conddb: could not insert register %q for preset %q: %w",
				v.Register, name, err,
			)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("conddb: could not commit preset %q: %w", name, err)
	}

	return nil
}
