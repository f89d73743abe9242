// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package wizard

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/require"
	"go.ciq.dev/adfstage/internal/pkg/adf"
	"go.ciq.dev/adfstage/internal/pkg/adf/adftest"
	"go.ciq.dev/adfstage/internal/pkg/session"
)

type testEnv struct {
	server  *httptest.Server
	client  *adftest.Client
	manager *session.Manager
}

func newTestEnv(t *testing.T, client *adftest.Client) *testEnv {
	driver := adf.NewDriver(adf.Config{
		Location:        "eastus",
		PollInterval:    time.Millisecond,
		MaxPollInterval: time.Millisecond,
		PollTimeout:     time.Second,
		Rollback:        true,
	}, adftest.Factory(client, nil, nil), adf.WithObserver(session.Observe))

	manager := session.NewManager(&session.Params{
		DataDir:     t.TempDir(),
		Provisioner: driver,
		ClientSecret: func() (string, error) {
			return "configured-secret", nil
		},
		RunTimeout:  10 * time.Second,
		IdleTimeout: time.Minute,
	})
	t.Cleanup(func() {
		_ = manager.StopAll()
	})

	wiz, err := New(manager, "")
	require.NoError(t, err)

	router := chi.NewRouter()
	wiz.Routes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{
		server:  server,
		client:  client,
		manager: manager,
	}
}

// browser keeps the session cookie and doesn't follow redirects.
func (e *testEnv) browser(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func (e *testEnv) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	resp, err := c.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) post(t *testing.T, c *http.Client, path string, values url.Values) (*http.Response, string) {
	resp, err := c.PostForm(e.server.URL+path, values)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func credentialsValues() url.Values {
	return url.Values{
		FieldTenantID:       {"tenant"},
		FieldSubscriptionID: {"subscription"},
		FieldClientID:       {"client"},
		FieldKeyVaultName:   {"vault"},
		FieldResourceGroup:  {"group"},
		FieldFactoryName:    {"factory"},
	}
}

func destinationValues() url.Values {
	return url.Values{
		FieldDestinationURI:        {"https://sink.dfs.core.windows.net"},
		FieldDestinationFolderPath: {""},
		FieldDestinationSecretName: {"sink-secret"},
	}
}

func upstreamValues() url.Values {
	return url.Values{
		FieldUpstreamStorageType: {StorageTypeADLS},
		FieldUpstreamSecretName:  {"source-secret"},
		FieldUpstreamURI:         {"https://source.dfs.core.windows.net"},
		FieldUpstreamFolderPath:  {"in"},
		FieldUpstreamFileName:    {"data.parquet"},
	}
}

func requireRedirect(t *testing.T, resp *http.Response, status int, location string) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	require.Equal(t, location, resp.Header.Get("Location"))
}

func (e *testEnv) completeWizard(t *testing.T, c *http.Client) {
	resp, _ := e.post(t, c, PathCredentials, credentialsValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathDestination)

	resp, _ = e.post(t, c, PathDestination, destinationValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathUpstream)

	resp, _ = e.post(t, c, PathUpstream, upstreamValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathDeployment)
}

func (e *testEnv) waitDeployment(t *testing.T, c *http.Client, state string) string {
	var body string

	require.Eventually(t, func() bool {
		var resp *http.Response
		resp, body = e.get(t, c, PathDeployment)
		return resp.StatusCode == http.StatusOK && strings.Contains(body, state)
	}, 5*time.Second, 20*time.Millisecond)

	return body
}

func TestWizardFlow(t *testing.T) {
	env := newTestEnv(t, &adftest.Client{})
	c := env.browser(t)

	resp, body := env.get(t, c, PathIndex)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `action="/"`)
	require.Len(t, resp.Cookies(), 1)
	require.Equal(t, DefaultCookieName, resp.Cookies()[0].Name)
	require.True(t, session.ValidID(resp.Cookies()[0].Value))

	resp, _ = env.post(t, c, PathIndex, nil)
	requireRedirect(t, resp, http.StatusSeeOther, PathCredentials)

	resp, body = env.get(t, c, PathCredentials)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, name := range []string{FieldTenantID, FieldSubscriptionID, FieldClientID, FieldKeyVaultName, FieldResourceGroup, FieldFactoryName} {
		require.Contains(t, body, `name="`+name+`"`)
	}
	require.NotContains(t, body, "secret")

	env.completeWizard(t, c)

	body = env.waitDeployment(t, c, "Deployment succeeded")
	require.Contains(t, body, "<strong>factory</strong>")
	require.Contains(t, body, "<strong>group</strong>")
	require.Contains(t, body, "CopyAdlsToAdls")
	require.NotContains(t, body, `http-equiv="refresh"`)

	require.Equal(t, []string{
		adftest.OpCreateOrUpdateFactory,
		adftest.OpCreateOrUpdateLinkedService,
		adftest.OpCreateOrUpdateLinkedService,
		adftest.OpCreateOrUpdateDataset,
		adftest.OpCreateOrUpdateDataset,
		adftest.OpCreateOrUpdatePipeline,
	}, env.client.Ops(
		adftest.OpCreateOrUpdateFactory,
		adftest.OpCreateOrUpdateLinkedService,
		adftest.OpCreateOrUpdateDataset,
		adftest.OpCreateOrUpdatePipeline,
	))

	// stored values are displayed back
	resp, body = env.get(t, c, PathUpstream)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `value="data.parquet"`)
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t, &adftest.Client{})
	c := env.browser(t)

	values := credentialsValues()
	values.Set(FieldTenantID, "   ")
	values.Del(FieldFactoryName)

	resp, body := env.post(t, c, PathCredentials, values)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "tenant ID is required")
	require.Contains(t, body, "data factory name is required")
	require.Contains(t, body, `value="subscription"`)

	resp, _ = env.post(t, c, PathCredentials, credentialsValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathDestination)

	values = destinationValues()
	values.Set(FieldDestinationSecretName, "")

	resp, body = env.post(t, c, PathDestination, values)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "key vault secret name is required")
	require.NotContains(t, body, "data lake URL is required")

	resp, _ = env.post(t, c, PathDestination, destinationValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathUpstream)

	values = upstreamValues()
	values.Set(FieldUpstreamStorageType, "S3")

	resp, body = env.post(t, c, PathUpstream, values)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "storage type must be ADLS")

	require.Empty(t, env.client.Calls())
}

func TestIncompleteSteps(t *testing.T) {
	env := newTestEnv(t, &adftest.Client{})
	c := env.browser(t)

	resp, _ := env.post(t, c, PathUpstream, upstreamValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathCredentials)

	resp, _ = env.get(t, c, PathDestination)
	requireRedirect(t, resp, http.StatusFound, PathCredentials)

	resp, _ = env.get(t, c, PathDeployment)
	requireRedirect(t, resp, http.StatusFound, PathCredentials)

	resp, _ = env.post(t, c, PathCredentials, credentialsValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathDestination)

	resp, _ = env.post(t, c, PathUpstream, upstreamValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathDestination)

	resp, _ = env.post(t, c, PathIndex, nil)
	requireRedirect(t, resp, http.StatusSeeOther, PathDestination)

	require.Empty(t, env.client.Calls())
}

func TestSessionIsolation(t *testing.T) {
	env := newTestEnv(t, &adftest.Client{})
	alice := env.browser(t)
	bob := env.browser(t)

	resp, _ := env.post(t, alice, PathCredentials, credentialsValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathDestination)

	resp, _ = env.get(t, bob, PathDestination)
	requireRedirect(t, resp, http.StatusFound, PathCredentials)

	resp, body := env.get(t, bob, PathCredentials)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, body, `value="tenant"`)

	// browsing alone doesn't start a session
	require.Len(t, env.manager.GetAll(), 1)
}

func TestAnonymousPagesCreateNoSession(t *testing.T) {
	env := newTestEnv(t, &adftest.Client{})

	for i := 0; i < 50; i++ {
		resp, err := http.Get(env.server.URL + PathCredentials)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = readBody(t, resp)
	}

	c := env.browser(t)
	for _, path := range []string{PathIndex, PathDestination, PathUpstream, PathDeployment} {
		env.get(t, c, path)
	}
	resp, _ := env.post(t, c, PathDestination, destinationValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathCredentials)

	require.Empty(t, env.manager.GetAll())

	resp, _ = env.post(t, c, PathCredentials, credentialsValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathDestination)
	require.Len(t, env.manager.GetAll(), 1)
}

func TestValuesStoredUnchanged(t *testing.T) {
	env := newTestEnv(t, &adftest.Client{})
	c := env.browser(t)

	values := credentialsValues()
	values.Set(FieldFactoryName, " factory ")

	resp, _ := env.post(t, c, PathCredentials, values)
	requireRedirect(t, resp, http.StatusSeeOther, PathDestination)

	handlers := env.manager.GetAll()
	require.Len(t, handlers, 1)

	for _, h := range handlers {
		credentials, ok := h.Credentials()
		require.True(t, ok)
		require.Equal(t, " factory ", credentials.FactoryName)
	}

	_, body := env.get(t, c, PathCredentials)
	require.Contains(t, body, `value=" factory "`)
}

func TestInvalidSessionCookie(t *testing.T) {
	env := newTestEnv(t, &adftest.Client{})

	req, err := http.NewRequest(http.MethodGet, env.server.URL+PathIndex, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "../../etc"})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = readBody(t, resp)

	require.Len(t, resp.Cookies(), 1)
	require.NotEqual(t, "../../etc", resp.Cookies()[0].Value)
	require.True(t, session.ValidID(resp.Cookies()[0].Value))
}

func TestDeploymentFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "authentication",
			err:     adftest.ResponseError(http.StatusForbidden, "AuthorizationFailed"),
			message: errorKindMessages["authentication"],
		},
		{
			name:    "validation",
			err:     adftest.ResponseError(http.StatusBadRequest, "BadRequest"),
			message: errorKindMessages["validation"],
		},
		{
			name:    "provisioning",
			err:     adftest.ResponseError(http.StatusInternalServerError, "InternalServerError"),
			message: errorKindMessages["provisioning"],
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, &adftest.Client{
				Errors: map[string]error{
					adftest.OpCreateOrUpdateDataset: tc.err,
				},
			})
			c := env.browser(t)

			env.completeWizard(t, c)

			body := env.waitDeployment(t, c, "Deployment failed")
			require.Contains(t, body, tc.message)
			require.Contains(t, body, adf.StepSourceDataset.String())

			// the factory created by the failed run is rolled back
			require.Equal(t, []string{adftest.OpDeleteFactory}, env.client.Ops(adftest.OpDeleteFactory))
		})
	}
}

func TestDeploymentInProgress(t *testing.T) {
	block := make(chan struct{})
	env := newTestEnv(t, &adftest.Client{Block: block})
	c := env.browser(t)

	env.completeWizard(t, c)

	body := env.waitDeployment(t, c, "Deployment in progress")
	require.Contains(t, body, `http-equiv="refresh"`)

	// a second submission while running doesn't start another run
	resp, _ := env.post(t, c, PathUpstream, upstreamValues())
	requireRedirect(t, resp, http.StatusSeeOther, PathDeployment)

	close(block)

	env.waitDeployment(t, c, "Deployment succeeded")
	require.Len(t, env.client.Ops(adftest.OpCreateOrUpdateFactory), 1)
}
