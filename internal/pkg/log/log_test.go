// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "defaults", config: Config{}},
		{name: "debug json", config: Config{Level: "debug", Format: "json"}},
		{name: "bad level", config: Config{Level: "verbose"}, wantErr: true},
		{name: "bad format", config: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := tt.config.Logger(nil)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}

func TestContextAttrs(t *testing.T) {
	buf := new(bytes.Buffer)

	config := Config{Level: "info", Format: "json", Output: buf}
	logger, err := config.Logger(ContextHandler)
	require.NoError(t, err)

	ctx := SetContextLogger(context.Background(), logger.With("component", "test"))
	ctx = SetContextAttrs(ctx, slog.String("session", "abc"))
	ctx = SetContextAttrs(ctx, slog.String("step", "factory"))

	GetContextLogger(ctx).InfoContext(ctx, "hello")

	record := make(map[string]any)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "hello", record["msg"])
	require.Equal(t, "test", record["component"])
	require.Equal(t, "abc", record["session"])
	require.Equal(t, "factory", record["step"])
}

func TestGetContextLoggerDefault(t *testing.T) {
	require.Equal(t, slog.Default(), GetContextLogger(context.Background()))
}
