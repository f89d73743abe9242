// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package rundb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"go.ciq.dev/adfstage/internal/pkg/sqlite"
	"gocloud.dev/blob"
)

//go:embed schema/status/*.sql
var statusSchemas embed.FS

type RunState string

const (
	RunPending   RunState = "pending"
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
)

// Done reports if the run reached a final state.
func (s RunState) Done() bool {
	return s == RunSucceeded || s == RunFailed
}

var ErrNoRun = errors.New("no provisioning run")

// runs table
type Run struct {
	ID                string   `db:"id"`
	State             RunState `db:"state"`
	Step              string   `db:"step"`
	ErrorKind         string   `db:"error_kind"`
	Message           string   `db:"message"`
	ResourceGroup     string   `db:"resource_group"`
	FactoryName       string   `db:"factory_name"`
	FactoryID         string   `db:"factory_id"`
	ProvisioningState string   `db:"provisioning_state"`
	StartTime         int64    `db:"start_time"`
	EndTime           int64    `db:"end_time"`
}

// resources table
type Resource struct {
	RunID             string `db:"run_id"`
	Position          int    `db:"position"`
	Type              string `db:"type"`
	Name              string `db:"name"`
	ResourceID        string `db:"resource_id"`
	ProvisioningState string `db:"provisioning_state"`
}

type StatusDB struct {
	*sqlite.DB
}

func statusStorage(bucket *blob.Bucket, dataDir string, session string) sqlite.Storage {
	return sqlite.Storage{
		Bucket:     bucket,
		DataDir:    dataDir,
		Prefix:     session,
		SchemaFS:   statusSchemas,
		SchemaGlob: "schema/status/*.sql",
		Filename:   "status.db",
	}
}

// StatusExists reports if the session has a status database,
// locally or in the bucket.
func StatusExists(ctx context.Context, bucket *blob.Bucket, dataDir string, session string) (bool, error) {
	return sqlite.Exists(ctx, statusStorage(bucket, dataDir, session))
}

func OpenStatusDB(ctx context.Context, bucket *blob.Bucket, dataDir string, session string) (*StatusDB, error) {
	db, err := sqlite.New(ctx, "status", statusStorage(bucket, dataDir, session))
	if err != nil {
		return nil, err
	}

	return &StatusDB{db}, nil
}

func (db *StatusDB) AddRun(ctx context.Context, run *Run) error {
	db.Reference.Add(1)
	defer db.Reference.Add(-1)

	if err := db.Open(ctx); err != nil {
		return err
	}

	db.Lock()
	result, err := db.NamedExecContext(
		ctx,
		"INSERT INTO runs VALUES(:id, :state, :step, :error_kind, :message, :resource_group, "+
			":factory_name, :factory_id, :provisioning_state, :start_time, :end_time)",
		run,
	)
	db.Unlock()

	if err != nil {
		return err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return err
	} else if inserted != 1 {
		return fmt.Errorf("run not inserted into status database")
	}

	return nil
}

func (db *StatusDB) UpdateRun(ctx context.Context, run *Run) error {
	db.Reference.Add(1)
	defer db.Reference.Add(-1)

	if err := db.Open(ctx); err != nil {
		return err
	}

	db.Lock()
	result, err := db.NamedExecContext(
		ctx,
		"UPDATE runs SET state = :state, step = :step, error_kind = :error_kind, message = :message, "+
			"factory_id = :factory_id, provisioning_state = :provisioning_state, "+
			"start_time = :start_time, end_time = :end_time "+
			"WHERE id = :id",
		run,
	)
	db.Unlock()

	if err != nil {
		return err
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return err
	} else if updated != 1 {
		return fmt.Errorf("run %s not present in status database", run.ID)
	}

	return nil
}

func (db *StatusDB) GetRun(ctx context.Context, id string) (*Run, error) {
	db.Reference.Add(1)
	defer db.Reference.Add(-1)

	if err := db.Open(ctx); err != nil {
		return nil, err
	}

	run := new(Run)

	err := db.GetContext(ctx, run, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNoRun)
	} else if err != nil {
		return nil, err
	}

	return run, nil
}

// LatestRun returns the most recently started run or ErrNoRun.
func (db *StatusDB) LatestRun(ctx context.Context) (*Run, error) {
	db.Reference.Add(1)
	defer db.Reference.Add(-1)

	if err := db.Open(ctx); err != nil {
		return nil, err
	}

	run := new(Run)

	err := db.GetContext(ctx, run, "SELECT * FROM runs ORDER BY start_time DESC, rowid DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRun
	} else if err != nil {
		return nil, err
	}

	return run, nil
}

func (db *StatusDB) CountRuns(ctx context.Context) (int, error) {
	db.Reference.Add(1)
	defer db.Reference.Add(-1)

	if err := db.Open(ctx); err != nil {
		return 0, err
	}

	count := 0
	if err := db.GetContext(ctx, &count, "SELECT COUNT(id) FROM runs"); err != nil {
		return 0, err
	}

	return count, nil
}

// SetResources replaces the resources recorded for a run.
func (db *StatusDB) SetResources(ctx context.Context, runID string, resources []Resource) error {
	db.Reference.Add(1)
	defer db.Reference.Add(-1)

	if err := db.Open(ctx); err != nil {
		return err
	}

	db.Lock()
	defer db.Unlock()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM resources WHERE run_id = ?", runID); err != nil {
		return err
	}

	for i := range resources {
		resource := resources[i]
		resource.RunID = runID
		resource.Position = i

		_, err := tx.NamedExecContext(
			ctx,
			"INSERT INTO resources VALUES(:run_id, :position, :type, :name, :resource_id, :provisioning_state)",
			&resource,
		)
		if err != nil {
			return fmt.Errorf("while inserting resource %s: %w", resource.Name, err)
		}
	}

	return tx.Commit()
}

func (db *StatusDB) GetResources(ctx context.Context, runID string) ([]Resource, error) {
	db.Reference.Add(1)
	defer db.Reference.Add(-1)

	if err := db.Open(ctx); err != nil {
		return nil, err
	}

	resources := make([]Resource, 0)

	err := db.SelectContext(ctx, &resources, "SELECT * FROM resources WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, err
	}

	return resources, nil
}
