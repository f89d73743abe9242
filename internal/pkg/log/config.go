// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// Output defaults to stderr when nil.
	Output io.Writer `yaml:"-"`
}

func (c *Config) Logger(handlerWrapper func(handler slog.Handler) slog.Handler) (*slog.Logger, error) {
	var handler slog.Handler
	var opts slog.HandlerOptions

	switch c.Level {
	case "debug":
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	case "info", "":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %s", c.Level)
	}

	output := c.Output
	if output == nil {
		output = os.Stderr
	}

	switch c.Format {
	case "text", "":
		handler = slog.NewTextHandler(output, &opts)
	case "json":
		handler = slog.NewJSONHandler(output, &opts)
	default:
		return nil, fmt.Errorf("unknown log format %s", c.Format)
	}

	if handlerWrapper != nil {
		return slog.New(handlerWrapper(handler)), nil
	}

	return slog.New(handler), nil
}
