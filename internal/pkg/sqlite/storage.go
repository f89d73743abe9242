// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pierrec/lz4"
	"gocloud.dev/blob"
)

// Storage describes where a database lives, locally under
// DataDir/Prefix and remotely under Prefix in Bucket.
type Storage struct {
	// Bucket may be nil, the database is then local only.
	Bucket  *blob.Bucket
	DataDir string
	Prefix  string

	SchemaFS   fs.FS
	SchemaGlob string

	Filename string
	// CompressedFilename defaults to Filename with a .lz4 suffix.
	CompressedFilename string
}

const copyBufferSize = 256 * 1024

var bufferPool = sync.Pool{
	New: func() any {
		buffer := make([]byte, copyBufferSize)
		return &buffer
	},
}

func push(path string, remoteWriter io.Writer) error {
	lw := lz4.NewWriter(remoteWriter)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufferPool.Get().(*[]byte)
	_, err = io.CopyBuffer(lw, f, *buf)
	bufferPool.Put(buf)

	lwErr := lw.Close()
	if err == nil {
		err = lwErr
	}

	return err
}

// pull decompresses a snapshot into a temporary file renamed
// to path once complete.
func pull(path string, remoteReader io.Reader) error {
	lr := lz4.NewReader(remoteReader)

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	buf := bufferPool.Get().(*[]byte)
	_, err = io.CopyBuffer(f, lr, *buf)
	bufferPool.Put(buf)

	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp, 0o600)
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}
