// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package wizard

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.ciq.dev/adfstage/internal/pkg/log"
	apiv1 "go.ciq.dev/adfstage/pkg/api/v1"
)

//go:embed embedded/*.html.tpl
var embeddedTemplates embed.FS

const (
	templateIndex       = "index"
	templateCredentials = "credentialsForm"
	templateDestination = "stagingDestinationForm"
	templateUpstream    = "stagingUpstreamForm"
	templateDeployment  = "deployment"
	templateError       = "error"
)

// page is the data passed to every template.
type page struct {
	Title   string
	Step    int
	Refresh int

	// form pages
	Action string
	Submit string
	Fields []field
	Errors map[string]string

	// deployment page
	Deployment *apiv1.Deployment
	Logs       []apiv1.DeploymentLog

	ErrorMessage string
}

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(embeddedTemplates, "embedded/*.html.tpl")
}

func (w *Wizard) render(rw http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	buf := new(bytes.Buffer)

	if err := w.templates.ExecuteTemplate(buf, name, p); err != nil {
		log.GetContextLogger(r.Context()).ErrorContext(r.Context(), "template rendering", "template", name, "error", err.Error())
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.Header().Set("Cache-Control", "no-store")
	rw.WriteHeader(status)
	_, _ = buf.WriteTo(rw)
}

func (w *Wizard) renderError(rw http.ResponseWriter, r *http.Request, status int, message string) {
	w.render(rw, r, status, templateError, &page{
		Title:        http.StatusText(status),
		ErrorMessage: message,
	})
}
