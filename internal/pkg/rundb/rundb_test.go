// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package rundb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/fileblob"
)

func TestStatusDB(t *testing.T) {
	ctx := context.Background()

	bucket, err := fileblob.OpenBucket(t.TempDir(), nil)
	require.NoError(t, err)
	defer bucket.Close()

	dataDir := t.TempDir()

	db, err := OpenStatusDB(ctx, bucket, dataDir, "session-1")
	require.NoError(t, err)

	_, err = db.LatestRun(ctx)
	require.ErrorIs(t, err, ErrNoRun)

	now := time.Now().Unix()

	first := &Run{ID: "run-1", State: RunFailed, FactoryName: "F", StartTime: now - 10, EndTime: now - 5}
	require.NoError(t, db.AddRun(ctx, first))

	second := &Run{ID: "run-2", State: RunRunning, ResourceGroup: "RG", FactoryName: "F", StartTime: now}
	require.NoError(t, db.AddRun(ctx, second))

	count, err := db.CountRuns(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	latest, err := db.LatestRun(ctx)
	require.NoError(t, err)
	require.Equal(t, "run-2", latest.ID)
	require.False(t, latest.State.Done())

	second.State = RunSucceeded
	second.Step = "pipeline"
	second.FactoryID = "/factories/F"
	second.ProvisioningState = "Succeeded"
	second.EndTime = now + 1
	require.NoError(t, db.UpdateRun(ctx, second))

	require.Error(t, db.UpdateRun(ctx, &Run{ID: "unknown"}))

	run, err := db.GetRun(ctx, "run-2")
	require.NoError(t, err)
	require.Equal(t, second, run)
	require.True(t, run.State.Done())

	_, err = db.GetRun(ctx, "unknown")
	require.ErrorIs(t, err, ErrNoRun)

	resources := []Resource{
		{Type: "factory", Name: "F", ResourceID: "/factories/F", ProvisioningState: "Succeeded"},
		{Type: "pipeline", Name: "CopyAdlsToAdls"},
	}
	require.NoError(t, db.SetResources(ctx, "run-2", resources))
	require.NoError(t, db.SetResources(ctx, "run-2", resources))

	stored, err := db.GetResources(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, "run-2", stored[1].RunID)
	require.Equal(t, 1, stored[1].Position)
	require.Equal(t, "CopyAdlsToAdls", stored[1].Name)

	require.NoError(t, db.Sync(ctx))
	require.NoError(t, db.Close(true))

	// restored from the bucket snapshot
	db, err = OpenStatusDB(ctx, bucket, dataDir, "session-1")
	require.NoError(t, err)

	latest, err = db.LatestRun(ctx)
	require.NoError(t, err)
	require.Equal(t, RunSucceeded, latest.State)

	require.NoError(t, db.Delete(ctx))
}

func TestLogDB(t *testing.T) {
	ctx := context.Background()

	db, err := OpenLogDB(ctx, nil, t.TempDir(), "session-1")
	require.NoError(t, err)
	defer db.Close(true)

	require.NoError(t, db.AddLog(ctx, "run-1", LogInfo, "factory", "resource created"))
	require.NoError(t, db.AddLog(ctx, "run-2", LogInfo, "factory", "resource created"))
	require.NoError(t, db.AddLog(ctx, "run-2", LogError, "pipeline", "conflict"))

	require.Error(t, db.WalkLogs(ctx, "", nil))

	logs := make([]*Log, 0)
	err = db.WalkLogs(ctx, "run-2", func(l *Log) error {
		logs = append(logs, l)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, LogInfo, logs[0].Level)
	require.Equal(t, "pipeline", logs[1].Step)
	require.Equal(t, "conflict", logs[1].Message)

	total := 0
	err = db.WalkLogs(ctx, "", func(*Log) error {
		total++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, total)
}
