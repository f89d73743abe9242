// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"context"
	"log/slog"
)

var (
	loggerKey int
	attrKey   int
)

// Handler adds the attributes stored in the record context
// with SetContextAttrs to every record.
type Handler struct {
	slog.Handler
}

func ContextHandler(handler slog.Handler) slog.Handler {
	return &Handler{Handler: handler}
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if attrs, ok := ctx.Value(&attrKey).([]slog.Attr); ok {
		record.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{Handler: h.Handler.WithGroup(name)}
}

func SetContextLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, &loggerKey, logger)
}

// GetContextLogger returns the logger attached to ctx or the
// default logger if there is none.
func GetContextLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(&loggerKey).(*slog.Logger)
	if ok && logger != nil {
		return logger
	}
	return slog.Default()
}

func SetContextAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if contextAttrs, ok := ctx.Value(&attrKey).([]slog.Attr); ok {
		merged := make([]slog.Attr, 0, len(contextAttrs)+len(attrs))
		merged = append(merged, contextAttrs...)
		merged = append(merged, attrs...)
		return context.WithValue(ctx, &attrKey, merged)
	}
	return context.WithValue(ctx, &attrKey, attrs)
}
