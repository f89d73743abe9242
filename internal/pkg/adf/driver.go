// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package adf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/datafactory/armdatafactory"
	"github.com/cenkalti/backoff/v4"
	"go.ciq.dev/adfstage/internal/pkg/log"
)

// Factory provisioning states reported by the management API.
const (
	StateSucceeded = "Succeeded"
	StateFailed    = "Failed"
	StateCanceled  = "Canceled"
)

const (
	DefaultLocation        = "eastus"
	DefaultPollInterval    = time.Second
	DefaultMaxPollInterval = 10 * time.Second
	DefaultPollTimeout     = 5 * time.Minute
	DefaultRollbackTimeout = 2 * time.Minute
)

type Config struct {
	// Location of the factory, the resource group location
	// is used when empty and preflight is enabled.
	Location          string
	KeyVaultDNSSuffix string
	// KeyVaultResourceGroup is the resource group of the key vault
	// checked by preflight, the vault is searched in the whole
	// subscription when empty.
	KeyVaultResourceGroup string
	Names                 Names

	PollInterval    time.Duration
	MaxPollInterval time.Duration
	PollTimeout     time.Duration

	// Rollback deletes the factory when a step fails after
	// the factory has been created by the same run.
	Rollback        bool
	RollbackTimeout time.Duration
	Preflight       bool
}

type EventStatus string

const (
	EventStarted  EventStatus = "started"
	EventDone     EventStatus = "done"
	EventFailed   EventStatus = "failed"
	EventProgress EventStatus = "progress"
)

type Event struct {
	Step     Step
	Status   EventStatus
	Resource string
	Message  string
	Err      error
	Duration time.Duration
}

// Observer receives the progress of a provisioning run.
type Observer func(ctx context.Context, event Event)

type Driver struct {
	config   Config
	clients  ClientFactory
	observer Observer
}

type DriverOption func(*Driver)

func WithObserver(observer Observer) DriverOption {
	return func(d *Driver) {
		d.observer = observer
	}
}

func NewDriver(config Config, clients ClientFactory, options ...DriverOption) *Driver {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.MaxPollInterval < config.PollInterval {
		config.MaxPollInterval = DefaultMaxPollInterval
		if config.MaxPollInterval < config.PollInterval {
			config.MaxPollInterval = config.PollInterval
		}
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = DefaultPollTimeout
	}
	if config.RollbackTimeout <= 0 {
		config.RollbackTimeout = DefaultRollbackTimeout
	}
	config.Names = config.Names.withDefaults()

	d := &Driver{
		config:  config,
		clients: clients,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *Driver) Names() Names {
	return d.config.Names
}

func (d *Driver) notify(ctx context.Context, event Event) {
	if d.observer != nil {
		d.observer(ctx, event)
	}
}

func (d *Driver) authenticate(ctx context.Context, creds Credentials) (ManagementClient, error) {
	d.notify(ctx, Event{Step: StepAuthenticate, Status: EventStarted, Resource: creds.ClientID})

	start := time.Now()

	client, err := d.clients.NewClient(ctx, creds)
	if err != nil {
		kind := ErrAuthentication
		if errors.Is(err, context.DeadlineExceeded) {
			kind = ErrTimeout
		}
		err = newError(kind, StepAuthenticate, creds.ClientID, err)
		d.notify(ctx, Event{Step: StepAuthenticate, Status: EventFailed, Resource: creds.ClientID, Err: err, Duration: time.Since(start)})
		return nil, err
	}

	d.notify(ctx, Event{Step: StepAuthenticate, Status: EventDone, Resource: creds.ClientID, Duration: time.Since(start)})

	return client, nil
}

// Provision runs the fixed provisioning sequence: factory, key vault linked
// service, storage linked service, source dataset, sink dataset, copy
// activity and pipeline. It stops at the first failure.
func (d *Driver) Provision(ctx context.Context, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, newError(ErrValidation, StepPreflight, params.FactoryName, err)
	}

	client, err := d.authenticate(ctx, params.Credentials)
	if err != nil {
		return nil, err
	}

	r := &run{
		Driver: d,
		client: client,
		params: params,
		names:  d.config.Names,
		logger: log.GetContextLogger(ctx).With(
			"resource_group", params.ResourceGroup,
			"factory", params.FactoryName,
		),
		result: &Result{
			FactoryName: params.FactoryName,
		},
	}

	if err := r.execute(ctx); err != nil {
		return r.result, err
	}

	return r.result, nil
}

// DeleteFactory deletes a factory and everything it contains.
func (d *Driver) DeleteFactory(ctx context.Context, creds Credentials, resourceGroup, factoryName string) error {
	if resourceGroup == "" || factoryName == "" {
		return newError(ErrValidation, StepDelete, factoryName, fmt.Errorf("resource group and factory name are required"))
	}

	client, err := d.authenticate(ctx, creds)
	if err != nil {
		return err
	}

	d.notify(ctx, Event{Step: StepDelete, Status: EventStarted, Resource: factoryName})

	if err := client.DeleteFactory(ctx, resourceGroup, factoryName); err != nil {
		err = classify(StepDelete, factoryName, err)
		d.notify(ctx, Event{Step: StepDelete, Status: EventFailed, Resource: factoryName, Err: err})
		return err
	}

	d.notify(ctx, Event{Step: StepDelete, Status: EventDone, Resource: factoryName})

	log.GetContextLogger(ctx).Info("factory deleted", "resource_group", resourceGroup, "factory", factoryName)

	return nil
}

type run struct {
	*Driver

	client ManagementClient
	params Params
	names  Names
	logger *slog.Logger
	result *Result

	factoryCreated bool
}

func (r *run) execute(ctx context.Context) (errFn error) {
	location, err := r.preflight(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if errFn != nil {
			r.rollback(ctx, errFn)
		}
	}()

	if err := r.createFactory(ctx, location); err != nil {
		return err
	}

	if r.params.SinkURI != "" && !strings.EqualFold(r.params.SinkURI, r.params.SourceURI) {
		r.logger.Warn(
			"destination storage differs from upstream storage, both datasets use the upstream linked service",
			"source_uri", r.params.SourceURI,
			"sink_uri", r.params.SinkURI,
		)
	}

	names := r.names
	factory := r.params.FactoryName
	rg := r.params.ResourceGroup

	err = r.step(ctx, StepKeyVaultLinkedService, names.KeyVaultLinkedService, func(ctx context.Context) (Resource, error) {
		ls := newKeyVaultLinkedService(keyVaultBaseURL(r.params.KeyVaultName, r.config.KeyVaultDNSSuffix))
		resp, err := r.client.CreateOrUpdateLinkedService(ctx, rg, factory, names.KeyVaultLinkedService, ls)
		if err != nil {
			return Resource{}, err
		}
		return linkedServiceInfo(names.KeyVaultLinkedService, resp), nil
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, StepStorageLinkedService, names.StorageLinkedService, func(ctx context.Context) (Resource, error) {
		ls := newDataLakeStoreLinkedService(
			r.params.SourceURI,
			r.params.Credentials,
			names.KeyVaultLinkedService,
			r.params.SourceSecretName,
		)
		resp, err := r.client.CreateOrUpdateLinkedService(ctx, rg, factory, names.StorageLinkedService, ls)
		if err != nil {
			return Resource{}, err
		}
		return linkedServiceInfo(names.StorageLinkedService, resp), nil
	})
	if err != nil {
		return err
	}

	datasets := []struct {
		step       Step
		name       string
		folderPath string
	}{
		{StepSourceDataset, names.SourceDataset, r.params.SourceFolderPath},
		{StepSinkDataset, names.SinkDataset, r.params.SinkFolderPath},
	}

	for _, dataset := range datasets {
		dataset := dataset
		err = r.step(ctx, dataset.step, dataset.name, func(ctx context.Context) (Resource, error) {
			ds := newParquetDataset(
				names.StorageLinkedService,
				names.DatasetFolder,
				dataset.folderPath,
				r.params.FileName,
				names.CompressionCodec,
			)
			resp, err := r.client.CreateOrUpdateDataset(ctx, rg, factory, dataset.name, ds)
			if err != nil {
				return Resource{}, err
			}
			return datasetInfo(dataset.name, resp), nil
		})
		if err != nil {
			return err
		}
	}

	var activity *armdatafactory.CopyActivity

	err = r.step(ctx, StepCopyActivity, names.CopyActivity, func(context.Context) (Resource, error) {
		activity = newCopyActivity(names.CopyActivity, names.SourceDataset, names.SinkDataset)
		return Resource{Type: ActivityResource, Name: names.CopyActivity}, nil
	})
	if err != nil {
		return err
	}

	return r.step(ctx, StepPipeline, names.Pipeline, func(ctx context.Context) (Resource, error) {
		resp, err := r.client.CreateOrUpdatePipeline(ctx, rg, factory, names.Pipeline, newPipeline(activity))
		if err != nil {
			return Resource{}, err
		}
		return pipelineInfo(names.Pipeline, resp), nil
	})
}

func (r *run) step(ctx context.Context, step Step, resource string, fn func(context.Context) (Resource, error)) error {
	r.notify(ctx, Event{Step: step, Status: EventStarted, Resource: resource})

	start := time.Now()

	res, err := fn(ctx)
	if err != nil {
		err = classify(step, resource, err)
		r.logger.Error("provisioning step failed", "step", step.String(), "resource", resource, "error", err.Error())
		r.notify(ctx, Event{Step: step, Status: EventFailed, Resource: resource, Err: err, Duration: time.Since(start)})
		return err
	}

	r.result.Created = append(r.result.Created, res)

	r.logger.Info(
		"resource created",
		"step", step.String(),
		"type", string(res.Type),
		"name", res.Name,
		"id", res.ID,
		"provisioning_state", res.ProvisioningState,
	)
	r.notify(ctx, Event{Step: step, Status: EventDone, Resource: resource, Message: res.ID, Duration: time.Since(start)})

	return nil
}

func (r *run) preflight(ctx context.Context) (string, error) {
	location := r.params.Location
	if location == "" {
		location = r.config.Location
	}

	if !r.config.Preflight {
		if location == "" {
			location = DefaultLocation
		}
		return location, nil
	}

	r.notify(ctx, Event{Step: StepPreflight, Status: EventStarted, Resource: r.params.ResourceGroup})

	fail := func(resource string, err error) (string, error) {
		err = classify(StepPreflight, resource, err)
		var adfErr *Error
		if errors.As(err, &adfErr) && adfErr.Kind == ErrProvisioning {
			adfErr.Kind = ErrValidation
		}
		r.notify(ctx, Event{Step: StepPreflight, Status: EventFailed, Resource: resource, Err: err})
		return "", err
	}

	rgLocation, err := r.client.ResourceGroupLocation(ctx, r.params.ResourceGroup)
	if err != nil {
		return fail(r.params.ResourceGroup, fmt.Errorf("resource group %s: %w", r.params.ResourceGroup, err))
	}
	if location == "" {
		location = rgLocation
	}
	if location == "" {
		location = DefaultLocation
	}

	// the vault is referenced by DNS name and may live in any resource group
	if err := r.client.KeyVaultExists(ctx, r.config.KeyVaultResourceGroup, r.params.KeyVaultName); err != nil {
		return fail(r.params.KeyVaultName, fmt.Errorf("key vault %s: %w", r.params.KeyVaultName, err))
	}

	r.notify(ctx, Event{Step: StepPreflight, Status: EventDone, Resource: r.params.ResourceGroup, Message: location})

	return location, nil
}

func (r *run) createFactory(ctx context.Context, location string) error {
	rg := r.params.ResourceGroup
	name := r.params.FactoryName

	return r.step(ctx, StepFactory, name, func(ctx context.Context) (Resource, error) {
		// only factories created by this run are candidates for rollback
		_, err := r.client.GetFactory(ctx, rg, name)
		exists := err == nil
		if err != nil && !isNotFound(err) {
			return Resource{}, err
		}

		factory, err := r.client.CreateOrUpdateFactory(ctx, rg, name, newFactory(location))
		if err != nil {
			return Resource{}, err
		}
		r.factoryCreated = !exists

		factory, err = r.waitFactory(ctx, factory)
		if err != nil {
			return Resource{}, err
		}

		res := factoryInfo(name, factory)
		r.result.FactoryID = res.ID
		r.result.ProvisioningState = res.ProvisioningState

		return res, nil
	})
}

type terminalStateError struct {
	state string
}

func (e *terminalStateError) Error() string {
	return fmt.Sprintf("factory reached terminal provisioning state %s", e.state)
}

// waitFactory polls the factory until its provisioning state is Succeeded.
// Polling is bounded by the poll timeout.
func (r *run) waitFactory(ctx context.Context, factory *armdatafactory.Factory) (*armdatafactory.Factory, error) {
	rg := r.params.ResourceGroup
	name := r.params.FactoryName

	switch state := provisioningState(factory); state {
	case StateSucceeded:
		return factory, nil
	case StateFailed, StateCanceled:
		return nil, newError(ErrProvisioning, StepFactory, name, &terminalStateError{state: state})
	}

	pollCtx, cancel := context.WithTimeout(ctx, r.config.PollTimeout)
	defer cancel()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.config.PollInterval
	eb.MaxInterval = r.config.MaxPollInterval
	eb.MaxElapsedTime = 0
	eb.Reset()

	current := factory
	lastState := provisioningState(factory)

	err := backoff.RetryNotify(func() error {
		f, err := r.client.GetFactory(pollCtx, rg, name)
		if err != nil {
			if pollCtx.Err() != nil {
				return backoff.Permanent(pollCtx.Err())
			} else if isNotFound(err) {
				// the factory may not be visible right after creation
				return err
			}
			return backoff.Permanent(err)
		}

		current = f
		lastState = provisioningState(f)

		switch lastState {
		case StateSucceeded:
			return nil
		case StateFailed, StateCanceled:
			return backoff.Permanent(&terminalStateError{state: lastState})
		}

		return fmt.Errorf("factory provisioning state is %q", lastState)
	}, backoff.WithContext(eb, pollCtx), func(err error, next time.Duration) {
		r.notify(ctx, Event{Step: StepFactory, Status: EventProgress, Resource: name, Message: lastState})
	})
	if err != nil {
		var stateErr *terminalStateError
		switch {
		case errors.As(err, &stateErr):
			return nil, newError(ErrProvisioning, StepFactory, name, stateErr)
		case ctx.Err() == nil && pollCtx.Err() != nil:
			return nil, newError(
				ErrTimeout, StepFactory, name,
				fmt.Errorf("factory not ready after %s, last provisioning state %q", r.config.PollTimeout, lastState),
			)
		}
		return nil, err
	}

	return current, nil
}

func (r *run) rollback(ctx context.Context, cause error) {
	if !r.factoryCreated {
		if len(r.result.Created) > 0 {
			r.logger.Warn("partial provisioning left in place", "resources", len(r.result.Created), "error", cause.Error())
		}
		return
	} else if !r.config.Rollback {
		r.logger.Warn("rollback disabled, partial provisioning left in place", "resources", len(r.result.Created))
		return
	}

	name := r.params.FactoryName

	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.RollbackTimeout)
	defer cancel()

	r.notify(ctx, Event{Step: StepRollback, Status: EventStarted, Resource: name, Message: cause.Error()})

	if err := r.client.DeleteFactory(rbCtx, r.params.ResourceGroup, name); err != nil {
		err = classify(StepRollback, name, err)
		r.logger.Error("rollback failed", "error", err.Error())
		r.notify(ctx, Event{Step: StepRollback, Status: EventFailed, Resource: name, Err: err})
		return
	}

	r.result.Created = nil
	r.result.FactoryID = ""
	r.result.ProvisioningState = ""

	r.logger.Info("factory deleted after failure")
	r.notify(ctx, Event{Step: StepRollback, Status: EventDone, Resource: name})
}

func factoryInfo(name string, f *armdatafactory.Factory) Resource {
	res := Resource{Type: FactoryResource, Name: name, ProvisioningState: provisioningState(f)}
	if f != nil && f.ID != nil {
		res.ID = *f.ID
	}
	return res
}

func linkedServiceInfo(name string, ls *armdatafactory.LinkedServiceResource) Resource {
	res := Resource{Type: LinkedServiceResource, Name: name}
	if ls != nil && ls.ID != nil {
		res.ID = *ls.ID
	}
	return res
}

func datasetInfo(name string, ds *armdatafactory.DatasetResource) Resource {
	res := Resource{Type: DatasetResource, Name: name}
	if ds != nil && ds.ID != nil {
		res.ID = *ds.ID
	}
	return res
}

func pipelineInfo(name string, p *armdatafactory.PipelineResource) Resource {
	res := Resource{Type: PipelineResource, Name: name}
	if p != nil && p.ID != nil {
		res.ID = *p.ID
	}
	return res
}
