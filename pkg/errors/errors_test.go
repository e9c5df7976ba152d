// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	sigilerr "github.com/sigil-dev/journal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := sigilerr.New(
		sigilerr.CodeStoreEntryGetNotFound,
		"entry not found",
		sigilerr.FieldEntryID(42),
		sigilerr.Field("provider", "openai"),
	)

	require.Error(t, err)
	assert.Equal(t, sigilerr.CodeStoreEntryGetNotFound, sigilerr.CodeOf(err))
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeStoreEntryGetNotFound))

	fields := sigilerr.FieldsOf(err)
	assert.Equal(t, int64(42), fields["entry_id"])
	assert.Equal(t, "openai", fields["provider"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, sigilerr.CodeStoreDatabaseFailure, sigilerr.CodeOf(err))
	assert.Contains(t, err.Error(), "write failed")
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf / With
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := sigilerr.Wrap(root, sigilerr.CodeStoreEntryUpdateNotFound, "updating entry", sigilerr.FieldEntryID(7))

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.True(t, sigilerr.IsNotFound(err))
	assert.Equal(t, int64(7), sigilerr.FieldsOf(err)["entry_id"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, sigilerr.Wrap(nil, sigilerr.CodeJournalInternalFailure, "ignored"))
	assert.NoError(t, sigilerr.Wrapf(nil, sigilerr.CodeJournalInternalFailure, "ignored %s", "arg"))
	assert.NoError(t, sigilerr.With(nil, sigilerr.FieldTag("x")))
}

func TestWithAddsContextWithoutChangingCode(t *testing.T) {
	base := sigilerr.New(sigilerr.CodeStoreTagValidateInvalid, "bad tag")
	withCtx := sigilerr.With(base, sigilerr.FieldTag("<b>"))

	assert.Equal(t, sigilerr.CodeStoreTagValidateInvalid, sigilerr.CodeOf(withCtx))
	assert.Equal(t, "<b>", sigilerr.FieldsOf(withCtx)["tag"])
}

func TestWithOnPlainErrorDefaultsToInternalCode(t *testing.T) {
	enriched := sigilerr.With(stderrors.New("something broke"), sigilerr.FieldProvider("hash"))
	assert.Equal(t, sigilerr.CodeJournalInternalFailure, sigilerr.CodeOf(enriched))
	assert.Equal(t, sigilerr.KindInternal, sigilerr.KindOf(enriched))
}

func TestCodeOfReturnsInnermostCode(t *testing.T) {
	root := stderrors.New("io error")
	l1 := sigilerr.Wrap(root, sigilerr.CodeStoreDatabaseFailure, "store layer")
	l2 := sigilerr.Wrapf(l1, sigilerr.CodeJournalInternalFailure, "service layer %d", 2)
	l3 := fmt.Errorf("cli: %w", l2)

	assert.Equal(t, sigilerr.CodeStoreDatabaseFailure, sigilerr.CodeOf(l3))
	assert.ErrorIs(t, l3, root)
	assert.Equal(t, sigilerr.KindStorage, sigilerr.KindOf(l3))
}

func TestCodeOfWithoutCode(t *testing.T) {
	assert.Equal(t, sigilerr.Code(""), sigilerr.CodeOf(nil))
	assert.Equal(t, sigilerr.Code(""), sigilerr.CodeOf(stderrors.New("plain")))
	assert.Nil(t, sigilerr.FieldsOf(nil))
	assert.Nil(t, sigilerr.FieldsOf(stderrors.New("plain")))
	assert.False(t, sigilerr.HasCode(nil, sigilerr.CodeStoreDatabaseFailure))
}

func TestFieldsWithEmptyKeyAreIgnored(t *testing.T) {
	err := sigilerr.New(sigilerr.CodeStoreDatabaseFailure, "oops",
		sigilerr.Field("", "should-be-dropped"),
		sigilerr.FieldTag("kept"),
	)
	fields := sigilerr.FieldsOf(err)
	assert.Equal(t, "kept", fields["tag"])
	assert.NotContains(t, fields, "")
}

// ---------------------------------------------------------------------------
// Unavailable
// ---------------------------------------------------------------------------

func TestUnavailableCarriesReason(t *testing.T) {
	for _, reason := range []string{sigilerr.ReasonEmpty, sigilerr.ReasonStaleModel, sigilerr.ReasonProviderUnavailable} {
		t.Run(reason, func(t *testing.T) {
			err := sigilerr.Unavailable(reason, "semantic search unavailable", sigilerr.FieldProvider("hash"))
			assert.True(t, sigilerr.IsIndexUnavailable(err))
			assert.Equal(t, reason, sigilerr.ReasonOf(err))
			assert.Equal(t, "hash", sigilerr.FieldsOf(err)["provider"])
			assert.Equal(t, sigilerr.KindIndexUnavailable, sigilerr.KindOf(err))
			assert.Equal(t, 5, sigilerr.ExitCode(err))
		})
	}
}

func TestReasonOfSurvivesWrapping(t *testing.T) {
	inner := sigilerr.Unavailable(sigilerr.ReasonStaleModel, "model changed")
	outer := sigilerr.Errorf(sigilerr.CodeVectorIndexUnavailable, "searching: %w", inner)
	assert.Equal(t, sigilerr.ReasonStaleModel, sigilerr.ReasonOf(outer))
	assert.Empty(t, sigilerr.ReasonOf(stderrors.New("plain")))
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

func TestKindAndExitCode(t *testing.T) {
	tests := []struct {
		code sigilerr.Code
		kind sigilerr.Kind
		exit int
	}{
		{sigilerr.CodeStoreEntryValidateInvalid, sigilerr.KindValidation, 2},
		{sigilerr.CodeStoreSearchInvalidInput, sigilerr.KindValidation, 2},
		{sigilerr.CodeConfigValidateInvalidValue, sigilerr.KindValidation, 2},
		{sigilerr.CodeConfigParseInvalidFormat, sigilerr.KindValidation, 2},
		{sigilerr.CodeEmbeddingRequestInvalid, sigilerr.KindValidation, 2},
		{sigilerr.CodeGraphQueryInvalidInput, sigilerr.KindValidation, 2},
		{sigilerr.CodeStoreEntryGetNotFound, sigilerr.KindNotFound, 3},
		{sigilerr.CodeStoreRelationshipLinkNotFound, sigilerr.KindNotFound, 3},
		{sigilerr.CodeStoreRelationshipLinkConflict, sigilerr.KindConflict, 4},
		{sigilerr.CodeVectorRebuildConflict, sigilerr.KindConflict, 4},
		{sigilerr.CodeVectorIndexUnavailable, sigilerr.KindIndexUnavailable, 5},
		{sigilerr.CodeStoreDatabaseFailure, sigilerr.KindStorage, 6},
		{sigilerr.CodeStoreSchemaFailure, sigilerr.KindStorage, 6},
		{sigilerr.CodeEmbeddingUpstreamFailure, sigilerr.KindInternal, 1},
		{sigilerr.CodeJournalInternalFailure, sigilerr.KindInternal, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := sigilerr.New(tt.code, "boom")
			assert.Equal(t, tt.kind, sigilerr.KindOf(err))
			assert.Equal(t, tt.exit, sigilerr.ExitCode(err))
		})
	}
}

func TestExitCodeNilAndPlain(t *testing.T) {
	assert.Equal(t, 0, sigilerr.ExitCode(nil))
	assert.Equal(t, sigilerr.Kind(""), sigilerr.KindOf(nil))
	assert.Equal(t, 1, sigilerr.ExitCode(stderrors.New("plain")))
}

func TestPredicates(t *testing.T) {
	assert.True(t, sigilerr.IsUpstreamFailure(sigilerr.New(sigilerr.CodeEmbeddingUpstreamFailure, "503")))
	assert.True(t, sigilerr.IsCancelled(sigilerr.New(sigilerr.CodeVectorRebuildCancelled, "stopped")))
	assert.False(t, sigilerr.IsStorageFailure(sigilerr.New(sigilerr.CodeJournalInternalFailure, "x")))

	for _, err := range []error{nil, stderrors.New("plain"), sigilerr.New(sigilerr.CodeStoreDatabaseFailure, "db")} {
		assert.False(t, sigilerr.IsNotFound(err))
		assert.False(t, sigilerr.IsConflict(err))
		assert.False(t, sigilerr.IsInvalidInput(err))
		assert.False(t, sigilerr.IsIndexUnavailable(err))
		assert.False(t, sigilerr.IsUpstreamFailure(err))
		assert.False(t, sigilerr.IsCancelled(err))
	}
}

// ---------------------------------------------------------------------------
// Join
// ---------------------------------------------------------------------------

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("first")
	b := stderrors.New("second")
	joined := sigilerr.Join(a, b)

	require.Error(t, joined)
	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
	assert.Equal(t, sigilerr.CodeJournalInternalFailure, sigilerr.CodeOf(joined))
}
