// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.ciq.dev/adfstage/internal/pkg/adf"
	"go.ciq.dev/adfstage/internal/pkg/log"
	"go.ciq.dev/adfstage/internal/pkg/metrics"
	"go.ciq.dev/adfstage/internal/pkg/rundb"
	"gocloud.dev/blob"
	"golang.org/x/sync/errgroup"
)

// Provisioner runs a provisioning sequence, implemented by *adf.Driver.
type Provisioner interface {
	Provision(ctx context.Context, params adf.Params) (*adf.Result, error)
}

type Params struct {
	DataDir string
	// Bucket receives the session database snapshots, may be nil.
	Bucket      *blob.Bucket
	Provisioner Provisioner
	// ClientSecret returns the service principal secret.
	ClientSecret func() (string, error)
	// Location of the factory, the driver default applies when empty.
	Location    string
	RunTimeout  time.Duration
	IdleTimeout time.Duration
	Metrics     *metrics.Metrics
}

// Manager holds the handlers of the active sessions.
type Manager struct {
	sessionMutex sync.RWMutex
	sessions     map[string]*Handler
	params       *Params
}

const DefaultRunTimeout = 15 * time.Minute

// ErrUnknownSession is returned by Lookup for a session which is
// neither active nor persisted.
var ErrUnknownSession = errors.New("unknown session")

func NewManager(params *Params) *Manager {
	if params.RunTimeout <= 0 {
		params.RunTimeout = DefaultRunTimeout
	}
	return &Manager{
		sessions: make(map[string]*Handler),
		params:   params,
	}
}

// NewID returns a new random session identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports if id is a well formed session identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the handler of the session id, it's started if needed.
func (m *Manager) Get(ctx context.Context, id string) (*Handler, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("invalid session id %q", id)
	}

	m.sessionMutex.Lock()
	defer m.sessionMutex.Unlock()

	if h, ok := m.sessions[id]; ok && !h.stopped.Load() {
		h.touch()
		return h, nil
	}

	logger := log.GetContextLogger(ctx).With("session", id)

	h := newHandler(id, m.params, logger)
	if err := h.start(log.SetContextLogger(context.Background(), logger)); err != nil {
		return nil, fmt.Errorf("while starting session %s: %w", id, err)
	}

	m.sessions[id] = h
	m.params.Metrics.SessionAdded()

	logger.Debug("session handler started")

	return h, nil
}

// Lookup returns the handler of an active session or restores a session
// persisted by a previous handler, unlike Get it never creates a session.
func (m *Manager) Lookup(ctx context.Context, id string) (*Handler, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("invalid session id %q", id)
	}

	m.sessionMutex.RLock()
	h, ok := m.sessions[id]
	m.sessionMutex.RUnlock()

	if ok && !h.stopped.Load() {
		h.touch()
		return h, nil
	}

	exists, err := rundb.StatusExists(ctx, m.params.Bucket, m.params.DataDir, id)
	if err != nil {
		return nil, fmt.Errorf("while looking up session %s: %w", id, err)
	} else if !exists {
		return nil, ErrUnknownSession
	}

	return m.Get(ctx, id)
}

func (m *Manager) Has(id string) bool {
	m.sessionMutex.RLock()
	_, ok := m.sessions[id]
	m.sessionMutex.RUnlock()

	return ok
}

func (m *Manager) GetAll() map[string]*Handler {
	m.sessionMutex.RLock()

	handlers := make(map[string]*Handler)
	for id, handler := range m.sessions {
		handlers[id] = handler
	}

	m.sessionMutex.RUnlock()

	return handlers
}

func (m *Manager) remove(id string) (*Handler, bool) {
	m.sessionMutex.Lock()
	defer m.sessionMutex.Unlock()

	h, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.params.Metrics.SessionRemoved()
	}

	return h, ok
}

// Stop stops the handler of the session id.
func (m *Manager) Stop(id string) error {
	h, ok := m.remove(id)
	if !ok {
		return nil
	}
	return h.Stop()
}

// StopAll stops every session handler, running provisioning
// runs are canceled.
func (m *Manager) StopAll() error {
	var g errgroup.Group

	for id := range m.GetAll() {
		id := id
		g.Go(func() error {
			return m.Stop(id)
		})
	}

	return g.Wait()
}

// Reap stops the sessions without activity for longer than the idle
// timeout, sessions with a running provisioning are kept.
func (m *Manager) Reap(now time.Time) int {
	reaped := 0

	for id, h := range m.GetAll() {
		if h.Running() || now.Sub(h.LastAccess()) < m.params.IdleTimeout {
			continue
		}
		if err := m.Stop(id); err != nil {
			h.logger.Error("session stop failed", "error", err.Error())
		}
		reaped++
	}

	return reaped
}

// Run reaps idle sessions until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	if m.params.IdleTimeout <= 0 {
		return
	}

	interval := m.params.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := log.GetContextLogger(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Reap(now); n > 0 {
				logger.Info("idle sessions stopped", slog.Int("count", n))
			}
		}
	}
}
