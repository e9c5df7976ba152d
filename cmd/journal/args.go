// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

const dateLayout = "2006-01-02"

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, sigilerr.Errorf(sigilerr.CodeCLIInvalidArgument, "invalid entry id %q: must be a positive integer", s)
	}
	return id, nil
}

// parseTime accepts RFC 3339 or a bare date. A bare date used as an upper
// bound means the end of that day.
func parseTime(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, sigilerr.Errorf(sigilerr.CodeCLIInvalidArgument,
			"invalid time %q: use YYYY-MM-DD or RFC 3339", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// timeFlag returns the parsed value of a time flag, or nil when unset.
func timeFlag(cmd *cobra.Command, name string, endOfDay bool) (*time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s, endOfDay)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// int64Flag returns a pointer to the flag value when the flag was set.
func int64Flag(cmd *cobra.Command, name string) *int64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt64(name)
	return &v
}

func entryTypes(values []string) ([]store.EntryType, error) {
	out := lo.Map(values, func(v string, _ int) store.EntryType { return store.EntryType(strings.TrimSpace(v)) })
	for _, t := range out {
		if !t.Valid() {
			return nil, sigilerr.Errorf(sigilerr.CodeCLIInvalidArgument, "unknown entry type %q", t)
		}
	}
	return out, nil
}

// scopeFilter maps --scope to the IsPersonal filter.
func scopeFilter(scope string) (*bool, error) {
	switch scope {
	case "", "all":
		return nil, nil
	case "personal":
		return lo.ToPtr(true), nil
	case "project":
		return lo.ToPtr(false), nil
	}
	return nil, sigilerr.Errorf(sigilerr.CodeCLIInvalidArgument, "invalid scope %q: use personal, project or all", scope)
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "only entries at or after this time (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().String("to", "", "only entries at or before this time")
	cmd.Flags().StringSlice("type", nil, "filter by entry type (repeatable)")
	cmd.Flags().StringSlice("tag", nil, "filter by tag, any of (repeatable)")
	cmd.Flags().String("scope", "all", "personal, project or all")
}

// filterQuery builds the shared part of a search query from filter flags.
func filterQuery(cmd *cobra.Command) (store.SearchQuery, error) {
	var q store.SearchQuery
	var err error

	if q.From, err = timeFlag(cmd, "from", false); err != nil {
		return q, err
	}
	if q.To, err = timeFlag(cmd, "to", true); err != nil {
		return q, err
	}
	types, _ := cmd.Flags().GetStringSlice("type")
	if q.EntryTypes, err = entryTypes(types); err != nil {
		return q, err
	}
	q.Tags, _ = cmd.Flags().GetStringSlice("tag")
	scope, _ := cmd.Flags().GetString("scope")
	if q.IsPersonal, err = scopeFilter(scope); err != nil {
		return q, err
	}
	return q, nil
}
