// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeToString(t *testing.T) {
	require.Empty(t, TimeToString(0))

	now := time.Now()
	parsed, err := time.ParseInLocation(TimeLayout, TimeToString(now.Unix()), time.Local)
	require.NoError(t, err)
	require.Equal(t, now.Unix(), parsed.Unix())
}

func TestDurationSince(t *testing.T) {
	require.Zero(t, DurationSince(0, 10))
	require.Equal(t, 90*time.Second, DurationSince(10, 100))
	require.GreaterOrEqual(t, DurationSince(time.Now().Unix()-5, 0), 5*time.Second)
}
