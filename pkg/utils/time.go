// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package utils

import "time"

// TimeLayout is the layout of the dates reported to users.
const TimeLayout = time.DateTime + " MST"

// TimeToString formats a unix timestamp, zero gives an empty string.
func TimeToString(t int64) string {
	if t == 0 {
		return ""
	}
	return time.Unix(t, 0).Format(TimeLayout)
}

// DurationSince returns the time elapsed between the unix
// timestamps start and end, end defaults to now when zero.
func DurationSince(start, end int64) time.Duration {
	if start == 0 {
		return 0
	}
	if end == 0 {
		end = time.Now().Unix()
	}
	return time.Duration(end-start) * time.Second
}
