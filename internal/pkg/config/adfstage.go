// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/distribution/distribution/v3/configuration"
	"go.ciq.dev/adfstage/internal/pkg/adf"
	"go.ciq.dev/adfstage/internal/pkg/log"
	"go.ciq.dev/adfstage/internal/pkg/storage"
)

const (
	DefaultConfigDir       = "/etc/adfstage"
	AdfStageConfigFile     = "adfstage.yaml"
	DefaultAdfStageDataDir = "/tmp/adfstage"
)

//go:embed default/adfstage.yaml
var defaultAdfStageConfig string

type AzureConfig struct {
	// Cloud is one of public, china or government.
	Cloud    string `yaml:"cloud"`
	Location string `yaml:"location"`
	// ClientSecret is the service principal secret, prefer the
	// ADFSTAGE_AZURE_CLIENTSECRET environment variable or ClientSecretFile.
	ClientSecret          string `yaml:"client-secret"`
	ClientSecretFile      string `yaml:"client-secret-file"`
	KeyVaultDNSSuffix     string `yaml:"keyvault-dns-suffix"`
	KeyVaultResourceGroup string `yaml:"keyvault-resource-group"`
}

type AdfStageConfig struct {
	Version         string             `yaml:"version"`
	Log             log.Config         `yaml:"log"`
	Addr            string             `yaml:"addr"`
	Profiling       bool               `yaml:"profiling"`
	DataDir         string             `yaml:"datadir"`
	Storage         storage.Config     `yaml:"storage"`
	Azure           AzureConfig        `yaml:"azure"`
	Provisioning    ProvisioningConfig `yaml:"provisioning"`
	Names           adf.Names          `yaml:"names"`
	Session         SessionConfig      `yaml:"session"`
	ConfigDirectory string             `yaml:"-"`
}

func (c AdfStageConfig) ListenPort() (string, error) {
	_, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return "", err
	}
	return port, nil
}

// ClientSecret returns the configured service principal secret, read
// from the secret file when not set directly. A relative secret file
// is resolved against the configuration directory.
func (c AdfStageConfig) ClientSecret() (string, error) {
	if c.Azure.ClientSecret != "" {
		return c.Azure.ClientSecret, nil
	} else if c.Azure.ClientSecretFile == "" {
		return "", fmt.Errorf("no azure client secret configured")
	}

	path := c.Azure.ClientSecretFile
	if !filepath.IsAbs(path) && c.ConfigDirectory != "" {
		path = filepath.Join(c.ConfigDirectory, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("while reading azure client secret file: %w", err)
	}

	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("azure client secret file %s is empty", path)
	}

	return secret, nil
}

type AdfStageConfigV1 AdfStageConfig

func ParseAdfStageConfig(dir string) (*AdfStageConfig, error) {
	customDir := false
	filename := filepath.Join(DefaultConfigDir, AdfStageConfigFile)
	if dir != "" {
		filename = filepath.Join(dir, AdfStageConfigFile)
		customDir = true
	}

	configDir := filepath.Dir(filename)

	var configReader io.Reader

	f, err := os.Open(filename)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || customDir {
			return nil, err
		}
		configReader = strings.NewReader(defaultAdfStageConfig)
		configDir = ""
	} else {
		defer f.Close()
		configReader = f
	}

	configBuffer := new(bytes.Buffer)
	if _, err := io.Copy(configBuffer, configReader); err != nil {
		return nil, err
	}

	return parse(configBuffer.Bytes(), configDir)
}

func parse(data []byte, configDir string) (*AdfStageConfig, error) {
	configParser := configuration.NewParser("adfstage", []configuration.VersionedParseInfo{
		{
			Version: configuration.MajorMinorVersion(1, 0),
			ParseAs: reflect.TypeOf(AdfStageConfigV1{}),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				if v1, ok := c.(*AdfStageConfigV1); ok {
					v1.ConfigDirectory = configDir
					return (*AdfStageConfig)(v1), nil
				}
				return nil, fmt.Errorf("expected *AdfStageConfigV1, received %#v", c)
			},
		},
	})

	adfStageConfig := new(AdfStageConfig)

	if err := configParser.Parse(data, adfStageConfig); err != nil {
		return nil, err
	}

	if adfStageConfig.DataDir == "" {
		adfStageConfig.DataDir = DefaultAdfStageDataDir
	}

	return adfStageConfig, nil
}
