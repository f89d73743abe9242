// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package rundb

import (
	"context"
	"embed"
	"fmt"
	"time"

	"go.ciq.dev/adfstage/internal/pkg/sqlite"
	"gocloud.dev/blob"
)

const (
	LogError string = "ERROR"
	LogWarn  string = "WARN"
	LogInfo  string = "INFO"
)

//go:embed schema/log/*.sql
var logSchemas embed.FS

type Log struct {
	ID      uint64 `db:"id"`
	RunID   string `db:"run_id"`
	Level   string `db:"level"`
	Date    int64  `db:"date"`
	Step    string `db:"step"`
	Message string `db:"message"`
}

type LogDB struct {
	*sqlite.DB
}

func OpenLogDB(ctx context.Context, bucket *blob.Bucket, dataDir string, session string) (*LogDB, error) {
	db, err := sqlite.New(ctx, "log", sqlite.Storage{
		Bucket:     bucket,
		DataDir:    dataDir,
		Prefix:     session,
		SchemaFS:   logSchemas,
		SchemaGlob: "schema/log/*.sql",
		Filename:   "log.db",
	})
	if err != nil {
		return nil, err
	}

	return &LogDB{db}, nil
}

func (db *LogDB) AddLog(ctx context.Context, runID, level, step, message string) error {
	db.Reference.Add(1)
	defer db.Reference.Add(-1)

	if err := db.Open(ctx); err != nil {
		return err
	}

	db.Lock()
	result, err := db.NamedExecContext(
		ctx,
		"INSERT INTO logs(run_id, date, level, step, message) VALUES(:run_id, :date, :level, :step, :message)",
		&Log{
			RunID:   runID,
			Date:    time.Now().UTC().Unix(),
			Level:   level,
			Step:    step,
			Message: message,
		},
	)
	db.Unlock()

	if err != nil {
		return err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return err
	} else if inserted != 1 {
		return fmt.Errorf("log not inserted into log database")
	}

	return nil
}

type WalkLogFunc func(*Log) error

// WalkLogs walks the logs of a run in insertion order,
// all logs are walked when runID is empty.
func (db *LogDB) WalkLogs(ctx context.Context, runID string, walkFn WalkLogFunc) error {
	if walkFn == nil {
		return fmt.Errorf("no log walk function provided")
	}

	db.Reference.Add(1)
	defer db.Reference.Add(-1)

	if err := db.Open(ctx); err != nil {
		return err
	}

	query := "SELECT * FROM logs ORDER BY id"
	args := []any{}
	if runID != "" {
		query = "SELECT * FROM logs WHERE run_id = ? ORDER BY id"
		args = append(args, runID)
	}

	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		log := new(Log)
		if err := rows.StructScan(log); err != nil {
			return err
		} else if err := walkFn(log); err != nil {
			return err
		}
	}

	return rows.Err()
}
