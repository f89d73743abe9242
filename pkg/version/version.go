// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package version

// Semver is overridden at build time with
// -ldflags "-X go.ciq.dev/adfstage/pkg/version.Semver=..."
var Semver = "0.1.0-dev"
