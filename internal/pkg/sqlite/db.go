// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/adlio/schema"
	"github.com/jmoiron/sqlx"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	// load sqlite driver
	_ "modernc.org/sqlite"
)

// DB is a local sqlite database whose lz4 compressed snapshot
// is kept in a blob bucket under the storage prefix.
type DB struct {
	*sqlx.DB
	sync.RWMutex

	// Reference counts in-flight operations, Close is a no-op while
	// it's not zero.
	Reference atomic.Int32

	name    string
	path    string
	storage Storage
}

func New(ctx context.Context, name string, storage Storage) (*DB, error) {
	if storage.CompressedFilename == "" {
		storage.CompressedFilename = storage.Filename + ".lz4"
	}

	db := &DB{
		name:    name,
		storage: storage,
		path:    filepath.Join(storage.DataDir, storage.Prefix, storage.Filename),
	}

	if err := db.Open(ctx); err != nil {
		return nil, err
	}

	if err := db.migrate(); err != nil {
		_ = db.Close(false)
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations, err := schema.FSMigrations(db.storage.SchemaFS, db.storage.SchemaGlob)
	if err != nil {
		return fmt.Errorf("while loading %s DB migrations: %w", db.name, err)
	}

	db.Lock()
	defer db.Unlock()

	migrator := schema.NewMigrator(schema.WithDialect(schema.SQLite))
	if err := migrator.Apply(db.DB, migrations); err != nil {
		return fmt.Errorf("while applying %s DB migrations: %w", db.name, err)
	}

	return nil
}

func (s Storage) key() string {
	compressed := s.CompressedFilename
	if compressed == "" {
		compressed = s.Filename + ".lz4"
	}
	return path.Join(s.Prefix, compressed)
}

func (db *DB) key() string {
	return db.storage.key()
}

// Exists reports if a database described by storage was previously
// created, either as a local file or as a bucket snapshot.
func Exists(ctx context.Context, storage Storage) (bool, error) {
	_, err := os.Stat(filepath.Join(storage.DataDir, storage.Prefix, storage.Filename))
	if err == nil {
		return true, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	if storage.Bucket == nil {
		return false, nil
	}

	exists, err := storage.Bucket.Exists(ctx, storage.key())
	if err != nil {
		return false, fmt.Errorf("while looking up DB snapshot %s: %w", storage.key(), err)
	}

	return exists, nil
}

// Open opens the database, the snapshot is pulled from the bucket
// first when there is no local copy.
func (db *DB) Open(ctx context.Context) error {
	db.Lock()
	defer db.Unlock()

	if db.DB != nil {
		return nil
	}

	dbDir := filepath.Dir(db.path)
	if err := os.MkdirAll(dbDir, 0o700); err != nil {
		return fmt.Errorf("while creating %s database directory %s: %w", db.name, dbDir, err)
	}

	_, err := os.Stat(db.path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		if db.storage.Bucket != nil {
			remoteReader, err := db.storage.Bucket.NewReader(ctx, db.key(), &blob.ReaderOptions{})
			if err == nil {
				defer remoteReader.Close()

				if err := pull(db.path, remoteReader); err != nil {
					return fmt.Errorf("while pulling %s DB: %w", db.name, err)
				}
			} else if gcerrors.Code(err) != gcerrors.NotFound {
				return fmt.Errorf("while reading %s DB snapshot: %w", db.name, err)
			}
		}
	} else if err != nil {
		return err
	}

	db.DB, err = sqlx.Open("sqlite", db.path)
	if err != nil {
		return fmt.Errorf("while opening %s DB %s: %w", db.name, db.path, err)
	}
	db.SetMaxOpenConns(1)

	return nil
}

func (db *DB) Name() string {
	return db.name
}

func (db *DB) Path() string {
	return db.path
}

// Sync pushes a compressed snapshot of the database to the bucket.
func (db *DB) Sync(ctx context.Context) error {
	if db.storage.Bucket == nil {
		return nil
	}

	remoteWriter, err := db.storage.Bucket.NewWriter(ctx, db.key(), &blob.WriterOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("while initializing %s DB snapshot writer: %w", db.name, err)
	}

	db.Lock()
	defer db.Unlock()

	if err := push(db.path, remoteWriter); err != nil {
		_ = remoteWriter.Close()
		return fmt.Errorf("while pushing %s DB snapshot: %w", db.name, err)
	}

	return remoteWriter.Close()
}

// Close closes the database when no operation is in flight, the local
// file is removed when removeDB is true.
func (db *DB) Close(removeDB bool) error {
	db.Lock()
	defer db.Unlock()

	if db.DB != nil && db.Reference.Load() == 0 {
		err := db.DB.Close()
		db.DB = nil
		if removeDB {
			if removeErr := os.Remove(db.path); removeErr != nil && err == nil {
				err = removeErr
			}
		}
		return err
	}

	return nil
}

// Delete closes the database and removes both the local
// file and the bucket snapshot.
func (db *DB) Delete(ctx context.Context) error {
	if err := db.Close(true); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if db.storage.Bucket == nil {
		return nil
	}
	if err := db.storage.Bucket.Delete(ctx, db.key()); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("while deleting %s DB snapshot: %w", db.name, err)
	}
	return nil
}
