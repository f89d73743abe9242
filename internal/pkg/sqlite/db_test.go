// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/fileblob"
)

var testSchema = fstest.MapFS{
	"schema/0001_items.sql": &fstest.MapFile{
		Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);"),
	},
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()

	bucketDir := t.TempDir()
	bucket, err := fileblob.OpenBucket(bucketDir, nil)
	require.NoError(t, err)
	defer bucket.Close()

	storage := Storage{
		Bucket:     bucket,
		DataDir:    t.TempDir(),
		Prefix:     "session",
		SchemaFS:   testSchema,
		SchemaGlob: "schema/*.sql",
		Filename:   "items.db",
	}

	found, err := Exists(ctx, storage)
	require.NoError(t, err)
	require.False(t, found)

	db, err := New(ctx, "items", storage)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(storage.DataDir, "session", "items.db"), db.Path())

	_, err = db.ExecContext(ctx, "INSERT INTO items(name) VALUES('factory')")
	require.NoError(t, err)

	require.NoError(t, db.Sync(ctx))

	exists, err := bucket.Exists(ctx, "session/items.db.lz4")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, db.Close(true))
	_, err = os.Stat(db.Path())
	require.ErrorIs(t, err, os.ErrNotExist)

	// only the snapshot remains
	found, err = Exists(ctx, storage)
	require.NoError(t, err)
	require.True(t, found)

	db, err = New(ctx, "items", storage)
	require.NoError(t, err)

	var name string
	require.NoError(t, db.GetContext(ctx, &name, "SELECT name FROM items WHERE id = 1"))
	require.Equal(t, "factory", name)

	require.NoError(t, db.Delete(ctx))

	exists, err = bucket.Exists(ctx, "session/items.db.lz4")
	require.NoError(t, err)
	require.False(t, exists)

	found, err = Exists(ctx, storage)
	require.NoError(t, err)
	require.False(t, found)
}

func TestLocalOnly(t *testing.T) {
	ctx := context.Background()

	db, err := New(ctx, "items", Storage{
		DataDir:    t.TempDir(),
		SchemaFS:   testSchema,
		SchemaGlob: "schema/*.sql",
		Filename:   "items.db",
	})
	require.NoError(t, err)

	require.NoError(t, db.Sync(ctx))

	db.Reference.Add(1)
	require.NoError(t, db.Close(false))
	require.NotNil(t, db.DB)
	db.Reference.Add(-1)

	require.NoError(t, db.Close(false))
	require.Nil(t, db.DB)

	require.NoError(t, db.Open(ctx))
	require.NoError(t, db.Delete(ctx))
}
