// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

// NewStorageError builds a MigrateStorageError, prefixing the message
// with the pipeline stage that invoked the storage CLI (per spec.md §7 -
// "message prefixed with the stage name and includes captured stderr").
func NewStorageError(stage, details string) *RodentError {
	return New(MigrateStorageError, stage+": "+details)
}

// NewLinkError builds a MigrateLinkError for receiver-link transport or
// framing failures (connect failure, idle timeout, unexpected end,
// malformed JSON, unknown event id).
func NewLinkError(details string) *RodentError {
	return New(MigrateLinkError, details)
}

// NewProtocolError builds a MigrateProtocolError for event-schema
// violations (missing fields, wrong types, untimely sync-success).
func NewProtocolError(details string) *RodentError {
	return New(MigrateProtocolError, details)
}

// NewRemoteError wraps an asynchronous {type:"error"} message from the
// receiver, surfaced verbatim to the supervisor with a "sync error:"
// prefix per spec.md §7.
func NewRemoteError(message string) *RodentError {
	return New(MigrateRemoteError, "sync error: "+message)
}

// NewSetupError builds a MigrateSetupError for bootstrap failures (admin
// IP resolution, control-listener bind).
func NewSetupError(details string) *RodentError {
	return New(MigrateSetupError, details)
}
