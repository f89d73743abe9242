// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package wizard

import (
	"context"
	"log/slog"
	"net/http"

	"go.ciq.dev/adfstage/internal/pkg/log"
	"go.ciq.dev/adfstage/internal/pkg/session"
	apiv1 "go.ciq.dev/adfstage/pkg/api/v1"
)

type sessionKey struct{}

// SessionID returns the wizard session identifier attached
// to the request context by SessionMiddleware.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// SessionMiddleware attaches the session identifier carried by the
// session cookie to the request context, a new session cookie is
// issued when the request has none or an invalid one.
func (w *Wizard) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		id := ""

		if cookie, err := r.Cookie(w.cookieName); err == nil && session.ValidID(cookie.Value) {
			id = cookie.Value
		} else {
			id = session.NewID()
			http.SetCookie(rw, &http.Cookie{
				Name:     w.cookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, id)
		ctx = log.SetContextAttrs(ctx, slog.String("session", id))

		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}

// APISessionMiddleware fills the session query parameter of API
// requests from the session cookie when it's missing.
func (w *Wizard) APISessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get(apiv1.SessionParam) == "" {
			if cookie, err := r.Cookie(w.cookieName); err == nil {
				query.Set(apiv1.SessionParam, cookie.Value)
				r.URL.RawQuery = query.Encode()
			}
		}
		next.ServeHTTP(rw, r)
	})
}
