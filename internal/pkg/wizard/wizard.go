// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

// Package wizard serves the three form steps collecting the data
// factory parameters and the deployment status page.
package wizard

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/RussellLuo/kun/pkg/werror/gcode"
	"github.com/go-chi/chi"
	"go.ciq.dev/adfstage/internal/pkg/log"
	"go.ciq.dev/adfstage/internal/pkg/session"
)

// Wizard page paths.
const (
	PathIndex       = "/"
	PathCredentials = "/credentialsForm"
	PathDestination = "/stagingDestinationForm"
	PathUpstream    = "/stagingUpstreamForm"
	PathDeployment  = "/deployment"
)

// DefaultCookieName is the session cookie name used when none is configured.
const DefaultCookieName = "adfstage_session"

// deploymentRefresh is the status page refresh interval in seconds
// while a deployment is running.
const deploymentRefresh = 3

type Wizard struct {
	manager    *session.Manager
	cookieName string
	templates  *template.Template
}

func New(manager *session.Manager, cookieName string) (*Wizard, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	return &Wizard{
		manager:    manager,
		cookieName: cookieName,
		templates:  templates,
	}, nil
}

// Routes registers the wizard pages on router.
func (w *Wizard) Routes(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(w.SessionMiddleware)

		r.Get(PathIndex, w.index)
		r.Post(PathIndex, w.start)

		r.Get(PathCredentials, w.credentialsPage)
		r.Post(PathCredentials, w.submitCredentials)

		r.Get(PathDestination, w.destinationPage)
		r.Post(PathDestination, w.submitDestination)

		r.Get(PathUpstream, w.upstreamPage)
		r.Post(PathUpstream, w.submitUpstream)

		r.Get(PathDeployment, w.deploymentPage)
	})
}

func stagePath(stage session.Stage) string {
	switch stage {
	case session.StageCredentials:
		return PathCredentials
	case session.StageDestination:
		return PathDestination
	case session.StageUpstream:
		return PathUpstream
	}
	return PathDeployment
}

// handler returns the handler of the request session, the session
// is created when it doesn't exist yet.
func (w *Wizard) handler(rw http.ResponseWriter, r *http.Request) (*session.Handler, bool) {
	ctx := r.Context()

	h, err := w.manager.Get(ctx, SessionID(ctx))
	if err != nil {
		log.GetContextLogger(ctx).ErrorContext(ctx, "session start", "error", err.Error())
		w.renderError(rw, r, http.StatusInternalServerError, "The wizard session could not be started.")
		return nil, false
	}

	return h, true
}

// lookup returns the handler of the request session, a nil handler is
// returned for a session which was never created.
func (w *Wizard) lookup(rw http.ResponseWriter, r *http.Request) (*session.Handler, bool) {
	ctx := r.Context()

	h, err := w.manager.Lookup(ctx, SessionID(ctx))
	if errors.Is(err, session.ErrUnknownSession) {
		return nil, true
	} else if err != nil {
		log.GetContextLogger(ctx).ErrorContext(ctx, "session lookup", "error", err.Error())
		w.renderError(rw, r, http.StatusInternalServerError, "The wizard session could not be restored.")
		return nil, false
	}

	return h, true
}

func nextStage(h *session.Handler) session.Stage {
	if h == nil {
		return session.StageCredentials
	}
	return h.NextStage()
}

// redirectIncomplete redirects to the first incomplete step preceding
// stage, it returns false if there is none.
func redirectIncomplete(rw http.ResponseWriter, r *http.Request, h *session.Handler, stage session.Stage) bool {
	if next := nextStage(h); next < stage {
		status := http.StatusFound
		if r.Method == http.MethodPost {
			status = http.StatusSeeOther
		}
		http.Redirect(rw, r, stagePath(next), status)
		return true
	}
	return false
}

func (w *Wizard) index(rw http.ResponseWriter, r *http.Request) {
	w.render(rw, r, http.StatusOK, templateIndex, &page{
		Title: "Welcome",
	})
}

func (w *Wizard) start(rw http.ResponseWriter, r *http.Request) {
	h, ok := w.lookup(rw, r)
	if !ok {
		return
	}

	path := PathCredentials
	if next := nextStage(h); next != session.StageComplete {
		path = stagePath(next)
	}

	http.Redirect(rw, r, path, http.StatusSeeOther)
}

func newCredentialsPage(form *credentialsForm, fieldErrors map[string]string) *page {
	return &page{
		Title:  "Azure credentials",
		Step:   1,
		Action: PathCredentials,
		Submit: "Next",
		Fields: form.fields(),
		Errors: fieldErrors,
	}
}

func (w *Wizard) credentialsPage(rw http.ResponseWriter, r *http.Request) {
	h, ok := w.lookup(rw, r)
	if !ok {
		return
	}

	var form credentialsForm
	if h != nil {
		c, _ := h.Credentials()
		form = credentialsForm(c)
	}

	w.render(rw, r, http.StatusOK, templateCredentials, newCredentialsPage(&form, nil))
}

func (w *Wizard) submitCredentials(rw http.ResponseWriter, r *http.Request) {
	h, ok := w.handler(rw, r)
	if !ok {
		return
	} else if err := r.ParseForm(); err != nil {
		w.renderError(rw, r, http.StatusBadRequest, "The submitted form could not be read.")
		return
	}

	form := newCredentialsForm(r.PostForm)
	if errs := validate(form.Schema()); errs != nil {
		w.render(rw, r, http.StatusBadRequest, templateCredentials, newCredentialsPage(form, errs))
		return
	}

	h.SubmitCredentials(session.Credentials(*form))

	http.Redirect(rw, r, PathDestination, http.StatusSeeOther)
}

func newDestinationPage(form *destinationForm, fieldErrors map[string]string) *page {
	return &page{
		Title:  "Staging destination",
		Step:   2,
		Action: PathDestination,
		Submit: "Next",
		Fields: form.fields(),
		Errors: fieldErrors,
	}
}

func (w *Wizard) destinationPage(rw http.ResponseWriter, r *http.Request) {
	h, ok := w.lookup(rw, r)
	if !ok {
		return
	} else if h == nil {
		http.Redirect(rw, r, PathCredentials, http.StatusFound)
		return
	}

	d, _ := h.Destination()
	form := destinationForm(d)

	w.render(rw, r, http.StatusOK, templateDestination, newDestinationPage(&form, nil))
}

func (w *Wizard) submitDestination(rw http.ResponseWriter, r *http.Request) {
	h, ok := w.lookup(rw, r)
	if !ok || redirectIncomplete(rw, r, h, session.StageDestination) {
		return
	} else if err := r.ParseForm(); err != nil {
		w.renderError(rw, r, http.StatusBadRequest, "The submitted form could not be read.")
		return
	}

	form := newDestinationForm(r.PostForm)
	if errs := validate(form.Schema()); errs != nil {
		w.render(rw, r, http.StatusBadRequest, templateDestination, newDestinationPage(form, errs))
		return
	}

	h.SubmitDestination(session.Destination(*form))

	http.Redirect(rw, r, PathUpstream, http.StatusSeeOther)
}

func newUpstreamPage(form *upstreamForm, fieldErrors map[string]string) *page {
	return &page{
		Title:  "Staging upstream",
		Step:   3,
		Action: PathUpstream,
		Submit: "Deploy",
		Fields: form.fields(),
		Errors: fieldErrors,
	}
}

func (w *Wizard) upstreamPage(rw http.ResponseWriter, r *http.Request) {
	h, ok := w.lookup(rw, r)
	if !ok || redirectIncomplete(rw, r, h, session.StageUpstream) {
		return
	}

	u, _ := h.Upstream()
	form := upstreamForm(u)

	w.render(rw, r, http.StatusOK, templateUpstream, newUpstreamPage(&form, nil))
}

func (w *Wizard) submitUpstream(rw http.ResponseWriter, r *http.Request) {
	h, ok := w.lookup(rw, r)
	if !ok || redirectIncomplete(rw, r, h, session.StageUpstream) {
		return
	} else if err := r.ParseForm(); err != nil {
		w.renderError(rw, r, http.StatusBadRequest, "The submitted form could not be read.")
		return
	}

	form := newUpstreamForm(r.PostForm)
	if errs := validate(form.Schema()); errs != nil {
		w.render(rw, r, http.StatusBadRequest, templateUpstream, newUpstreamPage(form, errs))
		return
	}

	ctx := r.Context()
	logger := log.GetContextLogger(ctx)

	if h.Running() {
		logger.WarnContext(ctx, "deployment already running, submission ignored")
		http.Redirect(rw, r, PathDeployment, http.StatusSeeOther)
		return
	}

	h.SubmitUpstream(session.Upstream(*form))

	runID, err := h.Provision(ctx)
	switch {
	case errors.Is(err, session.ErrRunning):
		logger.WarnContext(ctx, "deployment already running")
	case err != nil:
		logger.ErrorContext(ctx, "deployment request", "error", err.Error())
		w.renderError(rw, r, http.StatusInternalServerError, "The deployment could not be started.")
		return
	default:
		logger.InfoContext(ctx, "deployment requested", "run", runID)
	}

	http.Redirect(rw, r, PathDeployment, http.StatusSeeOther)
}

var errorKindMessages = map[string]string{
	"authentication": "Azure rejected the service principal. Check the tenant ID, the subscription ID, " +
		"the application client ID and that the configured client secret is valid.",
	"validation": "Azure rejected a resource definition. Check the resource group, the key vault, " +
		"the data factory name and the storage values entered in the wizard.",
	"timeout":      "The data factory did not become ready in time, the deployment was aborted.",
	"provisioning": "Azure failed to provision a data factory resource.",
}

func errorKindMessage(kind string) string {
	if msg, ok := errorKindMessages[kind]; ok {
		return msg
	}
	return errorKindMessages["provisioning"]
}

func (w *Wizard) deploymentPage(rw http.ResponseWriter, r *http.Request) {
	h, ok := w.lookup(rw, r)
	if !ok {
		return
	} else if h == nil {
		http.Redirect(rw, r, PathCredentials, http.StatusFound)
		return
	}

	ctx := r.Context()

	deployment, err := h.GetDeployment(ctx)
	if err != nil {
		if gcode.HTTPStatusCode(err) == http.StatusNotFound {
			next := h.NextStage()
			if next == session.StageComplete {
				next = session.StageUpstream
			}
			http.Redirect(rw, r, stagePath(next), http.StatusFound)
			return
		}
		log.GetContextLogger(ctx).ErrorContext(ctx, "deployment status", "error", err.Error())
		w.renderError(rw, r, http.StatusInternalServerError, "The deployment status could not be retrieved.")
		return
	}

	logs, err := h.ListDeploymentLogs(ctx)
	if err != nil {
		log.GetContextLogger(ctx).ErrorContext(ctx, "deployment logs", "error", err.Error())
	}

	p := &page{
		Title:      "Deployment",
		Deployment: deployment,
		Logs:       logs,
	}

	switch deployment.State {
	case "succeeded":
	case "failed":
		p.ErrorMessage = errorKindMessage(deployment.ErrorKind)
	default:
		p.Refresh = deploymentRefresh
	}

	w.render(rw, r, http.StatusOK, templateDeployment, p)
}
