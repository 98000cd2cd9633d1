// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package cmdutil

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// durationRegex matches duration strings with optional days, hours, minutes, and seconds
	// Supports formats like: "7d", "1d 12h", "1d12h30m", "1h30m", "3600s"
	durationRegex = regexp.MustCompile(`^(?:(\d+)d)?(?:\s*)(?:(\d+)h)?(?:\s*)(?:(\d+)m)?(?:\s*)(?:(\d+)s)?$`)

	durationUnits = []struct {
		name string
		unit time.Duration
	}{
		{name: "days", unit: 24 * time.Hour},
		{name: "hours", unit: time.Hour},
		{name: "minutes", unit: time.Minute},
		{name: "seconds", unit: time.Second},
	}
)

// ParseDuration parses a duration string that supports days in addition to standard Go duration units.
//
// Supported formats:
//   - "7d" (days only)
//   - "1d 12h 30m" (multi-unit with spaces)
//   - "1d12h30m" (multi-unit without spaces)
//   - "1h30m" (standard Go format)
//
// Negative durations are rejected.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("duration string is empty")
	}

	// Try standard Go duration parsing first (handles formats like "1h30m", "5m", "100s")
	if !strings.Contains(s, "d") {
		d, err := time.ParseDuration(s)
		if err == nil {
			if d < 0 {
				return 0, fmt.Errorf("duration must be non-negative: %s", s)
			}
			return d, nil
		}
	}

	matches := durationRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid duration format: %s (expected format: e.g., '7d', '1d 12h', '1h30m')", s)
	}

	var total time.Duration
	for i, u := range durationUnits {
		raw := matches[i+1]
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value: %s", u.name, raw)
		}
		if n > math.MaxInt64/int64(u.unit) {
			return 0, fmt.Errorf("duration %s overflows: too many %s", s, u.name)
		}
		part := time.Duration(n) * u.unit
		if total > math.MaxInt64-part {
			return 0, fmt.Errorf("duration %s overflows", s)
		}
		total += part
	}

	if total == 0 {
		return 0, fmt.Errorf("duration must specify at least one unit (d, h, m, s): %s", s)
	}
	return total, nil
}

// ParseTTLSeconds converts a day-aware duration string into the whole-second form used by
// Kubernetes TTL fields. An empty string means no TTL and returns nil.
func ParseTTLSeconds(s string) (*int32, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	d, err := ParseDuration(s)
	if err != nil {
		return nil, err
	}
	seconds := int64(d / time.Second)
	if seconds < 0 {
		return nil, fmt.Errorf("duration %s must not be negative", s)
	}
	if seconds > math.MaxInt32 {
		return nil, fmt.Errorf("duration %s exceeds the maximum of %d seconds", s, math.MaxInt32)
	}

	ttl := int32(seconds)
	return &ttl, nil
}
