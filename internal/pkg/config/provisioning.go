// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	"go.ciq.dev/adfstage/internal/pkg/adf"
)

const (
	DefaultProvisioningTimeout = 15 * time.Minute
	DefaultSessionIdleTimeout  = time.Hour
	DefaultSessionCookieName   = "adfstage_session"
)

type ProvisioningConfig struct {
	// Timeout bounds a whole provisioning run.
	Timeout         time.Duration `yaml:"timeout"`
	PollInterval    time.Duration `yaml:"poll-interval"`
	MaxPollInterval time.Duration `yaml:"max-poll-interval"`
	PollTimeout     time.Duration `yaml:"poll-timeout"`
	Rollback        bool          `yaml:"rollback"`
	RollbackTimeout time.Duration `yaml:"rollback-timeout"`
	Preflight       bool          `yaml:"preflight"`
}

func (pc *ProvisioningConfig) GetTimeout() time.Duration {
	if pc.Timeout <= 0 {
		return DefaultProvisioningTimeout
	}

	return pc.Timeout
}

type SessionConfig struct {
	CookieName  string        `yaml:"cookie-name"`
	IdleTimeout time.Duration `yaml:"idle-timeout"`
}

func (sc *SessionConfig) GetCookieName() string {
	if sc.CookieName == "" {
		return DefaultSessionCookieName
	}

	return sc.CookieName
}

func (sc *SessionConfig) GetIdleTimeout() time.Duration {
	if sc.IdleTimeout <= 0 {
		return DefaultSessionIdleTimeout
	}

	return sc.IdleTimeout
}

// DriverConfig returns the provisioning driver configuration.
func (c *AdfStageConfig) DriverConfig() adf.Config {
	return adf.Config{
		Location:              c.Azure.Location,
		KeyVaultDNSSuffix:     c.Azure.KeyVaultDNSSuffix,
		KeyVaultResourceGroup: c.Azure.KeyVaultResourceGroup,
		Names:                 c.Names,
		PollInterval:          c.Provisioning.PollInterval,
		MaxPollInterval:       c.Provisioning.MaxPollInterval,
		PollTimeout:           c.Provisioning.PollTimeout,
		Rollback:              c.Provisioning.Rollback,
		RollbackTimeout:       c.Provisioning.RollbackTimeout,
		Preflight:             c.Provisioning.Preflight,
	}
}
