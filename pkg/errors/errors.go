// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreEntryValidateInvalid     Code = "store.entry.validate.invalid_input"
	CodeStoreEntryGetNotFound         Code = "store.entry.get.not_found"
	CodeStoreEntryUpdateNotFound      Code = "store.entry.update.not_found"
	CodeStoreSearchInvalidInput       Code = "store.search.query.invalid_input"
	CodeStoreTagValidateInvalid       Code = "store.tag.validate.invalid_input"
	CodeStoreRelationshipInvalid      Code = "store.relationship.validate.invalid_input"
	CodeStoreRelationshipLinkNotFound Code = "store.relationship.link.not_found"
	CodeStoreRelationshipLinkConflict Code = "store.relationship.link.conflict"
	CodeStoreStatsInvalidInput        Code = "store.stats.query.invalid_input"
	CodeStoreDatabaseFailure          Code = "store.database.failure"
	CodeStoreSchemaFailure            Code = "store.schema.migrate.failure"
	CodeStoreConfigInvalid            Code = "store.config.invalid_input"
	CodeStoreBackendUnsupported       Code = "store.backend.unsupported"
	CodeStoreVectorDimensionInvalid   Code = "store.vector.dimension.invalid_input"
	CodeStoreVectorGenerationNotFound Code = "store.vector.generation.not_found"
	CodeStoreVectorGenerationActive   Code = "store.vector.generation.conflict"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
	CodeConfigInitConflict         Code = "config.init.conflict"

	CodeEmbeddingRequestInvalid   Code = "embedding.request.invalid"
	CodeEmbeddingResponseInvalid  Code = "embedding.response.invalid"
	CodeEmbeddingUpstreamFailure  Code = "embedding.upstream.failure"
	CodeEmbeddingProviderNotFound Code = "embedding.registry.not_found"
	CodeEmbeddingConfigInvalid    Code = "embedding.config.invalid_value"

	CodeVectorIndexUnavailable Code = "vector.index.unavailable"
	CodeVectorRebuildConflict  Code = "vector.rebuild.conflict"
	CodeVectorRebuildCancelled Code = "vector.rebuild.cancelled"
	CodeVectorQueryInvalid     Code = "vector.query.invalid_input"

	CodeGraphQueryInvalidInput Code = "graph.query.invalid_input"

	CodeJournalExportInvalidInput Code = "journal.export.invalid_input"
	CodeJournalInternalFailure    Code = "journal.internal.failure"

	CodeSecretNotFound       Code = "secret.store.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretDeleteFailure  Code = "secret.delete.failure"
	CodeSecretListFailure    Code = "secret.list.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"
	CodeSecretInvalidInput   Code = "secret.input.invalid"

	CodeCLISetupFailure    Code = "cli.setup.failure"
	CodeCLIInvalidArgument Code = "cli.argument.invalid_input"
)

// Kind names a member of the error taxonomy callers branch on.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindIndexUnavailable Kind = "index_unavailable"
	KindStorage          Kind = "storage"
	KindInternal         Kind = "internal"
)

// Reasons carried in the "reason" field of vector.index.unavailable errors.
const (
	ReasonEmpty               = "empty"
	ReasonStaleModel          = "stale_model"
	ReasonProviderUnavailable = "provider_unavailable"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// FieldValue creates a structured error field.
func FieldValue(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Field is kept as the primary helper for terse callsites.
func Field(key string, value any) Attr {
	return FieldValue(key, value)
}

func FieldEntryID(value int64) Attr {
	return Field("entry_id", value)
}

func FieldTag(value string) Attr {
	return Field("tag", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldReason(value string) Attr {
	return Field("reason", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeJournalInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

// Unavailable builds a vector.index.unavailable error carrying reason.
func Unavailable(reason, msg string, fields ...Attr) error {
	return New(CodeVectorIndexUnavailable, msg, append([]Attr{FieldReason(reason)}, fields...)...)
}

// CodeOf returns the innermost code in the chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

// ReasonOf returns the "reason" field of an index-unavailable error.
func ReasonOf(err error) string {
	r, _ := FieldsOf(err)["reason"].(string)
	return r
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsIndexUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

func IsStorageFailure(err error) bool {
	code := CodeOf(err)
	return strings.HasPrefix(string(code), "store.") && reason(code) == "failure"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func IsCancelled(err error) bool {
	return reason(CodeOf(err)) == "cancelled"
}

// KindOf classifies err into the taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case IsInvalidInput(err):
		return KindValidation
	case IsNotFound(err):
		return KindNotFound
	case IsConflict(err):
		return KindConflict
	case IsIndexUnavailable(err):
		return KindIndexUnavailable
	case IsStorageFailure(err):
		return KindStorage
	default:
		return KindInternal
	}
}

// ExitCode maps err to a process exit status for the CLI.
func ExitCode(err error) int {
	switch KindOf(err) {
	case "":
		return 0
	case KindValidation:
		return 2
	case KindNotFound:
		return 3
	case KindConflict:
		return 4
	case KindIndexUnavailable:
		return 5
	case KindStorage:
		return 6
	default:
		return 1
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeJournalInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
