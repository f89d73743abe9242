// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.ciq.dev/adfstage/internal/pkg/adf"
	"go.ciq.dev/adfstage/internal/pkg/rundb"
)

var (
	ErrIncomplete = errors.New("wizard steps are incomplete")
	ErrRunning    = errors.New("a provisioning run is already in progress")
	ErrStopped    = errors.New("session is stopped")
)

// Handler owns the state of one wizard session.
type Handler struct {
	ID string

	params *Params
	logger *slog.Logger

	stageMutex  sync.RWMutex
	credentials *Credentials
	destination *Destination
	upstream    *Upstream

	statusDB *rundb.StatusDB
	logDB    *rundb.LogDB

	runCh      chan string
	running    atomic.Bool
	stopped    atomic.Bool
	lastAccess atomic.Int64

	cancel context.CancelFunc
	doneCh chan struct{}
}

func newHandler(id string, params *Params, logger *slog.Logger) *Handler {
	h := &Handler{
		ID:     id,
		params: params,
		logger: logger,
		runCh:  make(chan string, 1),
		doneCh: make(chan struct{}),
	}
	h.touch()
	return h
}

func (h *Handler) touch() {
	h.lastAccess.Store(time.Now().UnixNano())
}

func (h *Handler) LastAccess() time.Time {
	return time.Unix(0, h.lastAccess.Load())
}

func (h *Handler) Running() bool {
	return h.running.Load()
}

func (h *Handler) start(ctx context.Context) (errFn error) {
	var err error

	h.statusDB, err = rundb.OpenStatusDB(ctx, h.params.Bucket, h.params.DataDir, h.ID)
	if err != nil {
		return err
	}
	defer func() {
		if errFn != nil {
			_ = h.statusDB.Close(false)
		}
	}()

	h.logDB, err = rundb.OpenLogDB(ctx, h.params.Bucket, h.params.DataDir, h.ID)
	if err != nil {
		return err
	}

	if err := h.recoverInterruptedRun(ctx); err != nil {
		_ = h.logDB.Close(false)
		return err
	}

	ctx, h.cancel = context.WithCancel(ctx)

	go h.loop(ctx)

	return nil
}

// recoverInterruptedRun marks a run left unfinished by a previous
// process as failed.
func (h *Handler) recoverInterruptedRun(ctx context.Context) error {
	run, err := h.statusDB.LatestRun(ctx)
	if errors.Is(err, rundb.ErrNoRun) {
		return nil
	} else if err != nil {
		return err
	} else if run.State.Done() {
		return nil
	}

	run.State = rundb.RunFailed
	run.ErrorKind = adf.KindName(adf.ErrProvisioning)
	run.Message = "provisioning interrupted by a server restart"
	run.EndTime = time.Now().Unix()

	return h.statusDB.UpdateRun(ctx, run)
}

func (h *Handler) loop(ctx context.Context) {
	defer close(h.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case runID := <-h.runCh:
			h.execute(ctx, runID)
		}
	}
}

// Stop cancels a running provisioning, syncs the session
// databases to the bucket and closes them. Databases of a session
// without any run are deleted instead.
func (h *Handler) Stop() error {
	if h.stopped.Swap(true) {
		return nil
	}

	h.cancel()
	<-h.doneCh

	ctx := context.Background()

	_, err := h.statusDB.LatestRun(ctx)
	discard := errors.Is(err, rundb.ErrNoRun)

	var errs error

	for _, db := range []interface {
		Sync(context.Context) error
		Close(bool) error
		Delete(context.Context) error
		Name() string
	}{h.statusDB, h.logDB} {
		if discard {
			if err := db.Delete(ctx); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("while deleting %s database: %w", db.Name(), err))
			}
			continue
		}

		syncErr := db.Sync(ctx)
		if syncErr != nil {
			errs = multierror.Append(errs, fmt.Errorf("while syncing %s database: %w", db.Name(), syncErr))
		}
		// the local copy is only removed once the snapshot is safe
		if err := db.Close(syncErr == nil && h.params.Bucket != nil); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("while closing %s database: %w", db.Name(), err))
		}
	}

	return errs
}

func (h *Handler) SubmitCredentials(c Credentials) {
	h.touch()

	h.stageMutex.Lock()
	h.credentials = &c
	h.stageMutex.Unlock()
}

func (h *Handler) SubmitDestination(d Destination) {
	h.touch()

	h.stageMutex.Lock()
	h.destination = &d
	h.stageMutex.Unlock()
}

func (h *Handler) SubmitUpstream(u Upstream) {
	h.touch()

	h.stageMutex.Lock()
	h.upstream = &u
	h.stageMutex.Unlock()
}

// Credentials returns the submitted credentials step values if any.
func (h *Handler) Credentials() (Credentials, bool) {
	h.stageMutex.RLock()
	defer h.stageMutex.RUnlock()

	if h.credentials == nil {
		return Credentials{}, false
	}
	return *h.credentials, true
}

func (h *Handler) Destination() (Destination, bool) {
	h.stageMutex.RLock()
	defer h.stageMutex.RUnlock()

	if h.destination == nil {
		return Destination{}, false
	}
	return *h.destination, true
}

func (h *Handler) Upstream() (Upstream, bool) {
	h.stageMutex.RLock()
	defer h.stageMutex.RUnlock()

	if h.upstream == nil {
		return Upstream{}, false
	}
	return *h.upstream, true
}

// NextStage returns the first form step not submitted yet.
func (h *Handler) NextStage() Stage {
	h.stageMutex.RLock()
	defer h.stageMutex.RUnlock()

	switch {
	case h.credentials == nil:
		return StageCredentials
	case h.destination == nil:
		return StageDestination
	case h.upstream == nil:
		return StageUpstream
	}
	return StageComplete
}

// Params assembles the provisioning parameters from the submitted
// form values, they are passed unchanged.
func (h *Handler) Params() (adf.Params, error) {
	h.stageMutex.RLock()
	defer h.stageMutex.RUnlock()

	if h.credentials == nil || h.destination == nil || h.upstream == nil {
		return adf.Params{}, ErrIncomplete
	}

	secret, err := h.params.ClientSecret()
	if err != nil {
		return adf.Params{}, err
	}

	c, d, u := h.credentials, h.destination, h.upstream

	return adf.Params{
		Credentials: adf.Credentials{
			TenantID:       c.TenantID,
			SubscriptionID: c.SubscriptionID,
			ClientID:       c.ClientID,
			ClientSecret:   secret,
		},
		ResourceGroup:    c.ResourceGroup,
		FactoryName:      c.FactoryName,
		Location:         h.params.Location,
		KeyVaultName:     c.KeyVaultName,
		SourceType:       u.StorageType,
		SourceURI:        u.URI,
		SourceFolderPath: u.FolderPath,
		SourceSecretName: u.SecretName,
		SinkURI:          d.URI,
		SinkFolderPath:   d.FolderPath,
		SinkSecretName:   d.SecretName,
		FileName:         u.FileName,
	}, nil
}

// Provision queues a provisioning run with the submitted form values
// and returns its identifier without waiting for the run.
func (h *Handler) Provision(ctx context.Context) (string, error) {
	h.touch()

	if h.stopped.Load() {
		return "", ErrStopped
	} else if h.NextStage() != StageComplete {
		return "", ErrIncomplete
	} else if !h.running.CompareAndSwap(false, true) {
		return "", ErrRunning
	}

	c, _ := h.Credentials()

	run := &rundb.Run{
		ID:            uuid.NewString(),
		State:         rundb.RunPending,
		ResourceGroup: c.ResourceGroup,
		FactoryName:   c.FactoryName,
		StartTime:     time.Now().Unix(),
	}

	if err := h.statusDB.AddRun(ctx, run); err != nil {
		h.running.Store(false)
		return "", fmt.Errorf("while recording provisioning run: %w", err)
	}

	h.runCh <- run.ID

	return run.ID, nil
}

// Status is the state of the latest provisioning run of a session.
type Status struct {
	Run       *rundb.Run
	Resources []rundb.Resource
}

// Status returns the latest provisioning run, rundb.ErrNoRun is
// returned if provisioning was never requested.
func (h *Handler) Status(ctx context.Context) (*Status, error) {
	h.touch()

	run, err := h.statusDB.LatestRun(ctx)
	if err != nil {
		return nil, err
	}

	resources, err := h.statusDB.GetResources(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	return &Status{
		Run:       run,
		Resources: resources,
	}, nil
}

// Logs returns the log of the latest provisioning run.
func (h *Handler) Logs(ctx context.Context) ([]*rundb.Log, error) {
	h.touch()

	run, err := h.statusDB.LatestRun(ctx)
	if err != nil {
		return nil, err
	}

	logs := make([]*rundb.Log, 0)

	err = h.logDB.WalkLogs(ctx, run.ID, func(l *rundb.Log) error {
		logs = append(logs, l)
		return nil
	})

	return logs, err
}
