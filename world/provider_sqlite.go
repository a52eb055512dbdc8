// This file is part of go-mc/server project.
// Copyright (C) 2023.  Tnze
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package world

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStorage keeps every chunk of every region as one row of a
// SQLite database. It has no limit on the region width.
type SQLiteStorage struct {
	log         *zap.Logger
	db          *sql.DB
	compression Compression
}

// OpenSQLiteStorage opens or creates the database at path and its chunk
// table.
func OpenSQLiteStorage(log *zap.Logger, path string, compression Compression) (*SQLiteStorage, error) {
	if path == "" {
		return nil, errors.New("empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS chunks (
			rx INTEGER NOT NULL,
			ry INTEGER NOT NULL,
			rz INTEGER NOT NULL,
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (rx, ry, rz, cx, cy, cz)
		);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init database: %w", err)
		}
	}
	return &SQLiteStorage{log: log, db: db, compression: compression}, nil
}

func (s *SQLiteStorage) ReadRegion(pos IVec3) (chunks map[IVec3][]byte, errRet error) {
	rows, err := s.db.Query(
		`SELECT cx, cy, cz, data FROM chunks WHERE rx = ? AND ry = ? AND rz = ?`,
		pos[0], pos[1], pos[2])
	if err != nil {
		return nil, fmt.Errorf("query region %v: %w", pos, err)
	}
	defer func() {
		if err := rows.Close(); errRet == nil && err != nil {
			errRet = err
		}
	}()

	chunks = make(map[IVec3][]byte)
	for rows.Next() {
		var chunk IVec3
		var data []byte
		if err := rows.Scan(&chunk[0], &chunk[1], &chunk[2], &data); err != nil {
			return nil, fmt.Errorf("scan chunk of region %v: %w", pos, err)
		}
		payload, err := DecompressSector(data)
		if err != nil {
			s.log.Error("Read chunk row fail",
				zap.Stringer("region", pos),
				zap.Stringer("chunk", chunk),
				zap.Error(err))
			continue
		}
		chunks[chunk] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read region %v: %w", pos, err)
	}
	return chunks, nil
}

func (s *SQLiteStorage) WriteRegion(pos IVec3, chunks map[IVec3][]byte) (errRet error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin write of region %v: %w", pos, err)
	}
	defer func() {
		if errRet != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.Exec(`DELETE FROM chunks WHERE rx = ? AND ry = ? AND rz = ?`,
		pos[0], pos[1], pos[2]); err != nil {
		return fmt.Errorf("clear region %v: %w", pos, err)
	}
	stmt, err := tx.Prepare(`INSERT INTO chunks (rx, ry, rz, cx, cy, cz, data) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare write of region %v: %w", pos, err)
	}
	defer stmt.Close()

	for chunk, payload := range chunks {
		data, err := CompressSector(s.compression, payload)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(pos[0], pos[1], pos[2], chunk[0], chunk[1], chunk[2], data); err != nil {
			return fmt.Errorf("write chunk %v of region %v: %w", chunk, pos, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit region %v: %w", pos, err)
	}
	return nil
}

// Regions lists the regions that have stored chunks.
func (s *SQLiteStorage) Regions() ([]IVec3, error) {
	rows, err := s.db.Query(`SELECT DISTINCT rx, ry, rz FROM chunks ORDER BY rz, ry, rx`)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()

	var regions []IVec3
	for rows.Next() {
		var pos IVec3
		if err := rows.Scan(&pos[0], &pos[1], &pos[2]); err != nil {
			return nil, fmt.Errorf("list regions: %w", err)
		}
		regions = append(regions, pos)
	}
	return regions, rows.Err()
}

func (s *SQLiteStorage) Close() error { return s.db.Close() }
