// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package health

import "time"

// Metrics exposes the current health state of an embedding provider for
// operator visibility. All fields are point-in-time snapshots safe to
// serialize to JSON.
type Metrics struct {
	FailureCount  int64      `json:"failure_count" yaml:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty" yaml:"last_failure_at,omitempty"`
	LastError     string     `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty" yaml:"cooldown_until,omitempty"`
	Available     bool       `json:"available" yaml:"available"`
}

// Queue is a snapshot of the background embedding queue counters.
type Queue struct {
	Capacity  int   `json:"capacity" yaml:"capacity"`
	Pending   int   `json:"pending" yaml:"pending"`
	Enqueued  int64 `json:"enqueued" yaml:"enqueued"`
	Processed int64 `json:"processed" yaml:"processed"`
	Failed    int64 `json:"failed" yaml:"failed"`
	Dropped   int64 `json:"dropped" yaml:"dropped"`
}
