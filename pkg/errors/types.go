/*
 * Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
 * Copyright 2024-2025 The StrataSTOR Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package errors

import "net/http"

const (
	DomainConfig    Domain = "CONFIG"
	DomainServer    Domain = "SERVER"
	DomainZFS       Domain = "ZFS"
	DomainCommand   Domain = "CMD"
	DomainLifecycle Domain = "LIFECYCLE"
	DomainMisc      Domain = "MISC"
	DomainMigrate   Domain = "MIGRATE"
)

// ErrorCode represents unique error identifiers
type ErrorCode int

// Domain represents the subsystem where the error originated
type Domain string

type RodentError struct {
	Code    ErrorCode `json:"code"`
	Domain  Domain    `json:"domain"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	HTTPStatus int `json:"-"`

	// Metadata carries additional contextual information that doesn't fit
	// into the standard error fields but is valuable for debugging and API
	// responses - command argv, captured stderr, wrapped error provenance.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Error code ranges:
// 1000-1099: Configuration errors
// 1100-1199: Server errors
// 1300-1399: Command execution
// 1500-1599: Lifecycle management
// 1600-1699: Misc errors
// 2000-2199: ZFS operations (2000-2099 general/send-receive, 2100-2199 naming)
// 2900-2999: Migration sync sender errors
const (
	// Configuration Errors (1000-1099)
	ConfigNotFound           = 1000 + iota // Config file not found
	ConfigInvalid                          // Invalid config format
	ConfigLoadFailed                       // Failed to load config
	ConfigWriteFailed                      // Failed to write config
	ConfigPermissionDenied                 // Permission denied accessing config
	ConfigDirectoryError                   // Config directory error
	ConfigValidationFailed                 // Config validation failed
	ConfigMarshalFailed                    // Config serialization failed
	ConfigUnmarshalFailed                  // Config deserialization failed
	ConfigHomeDirectoryError               // Error getting home directory
	ConfigReadError                        // Error reading config
	ConfigWriteError                       // Error writing config
	ConfigParseError                       // Error parsing config
)

const (
	// Server Errors (1100-1199)
	ServerStart             = 1100 + iota // Failed to start server
	ServerShutdown                        // Error during shutdown
	ServerBind                            // Failed to bind port
	ServerTimeout                         // Operation timeout
	ServerRequestValidation               // Request validation failed
	ServerContextCancelled                // Context cancelled
	ServerInternalError                   // Unclassified internal error
	ServerBadRequest                      // Bad request error
)

const (
	// TODO: Remove redundant error codes
	// ZFS Operations (2000-2099)
	ZFSCommandFailed    = 2000 + iota // ZFS command execution failed
	ZFSPoolNotFound                   // Pool not found
	ZFSPermissionDenied               // Permission denied
	ZFSPropertyError                  // Property operation failed
	ZFSMountError                     // Mount operation failed
	ZFSIOError                        // I/O error during operation

	ZFSDatasetNotFound // Dataset not found
	ZFSDatasetSnapshot
	ZFSDatasetSend
	ZFSDatasetReceive
	ZFSDatasetNoReceiveToken

	ZFSSnapshotList
	ZFSSnapshotFailed
)

const (
	// ZFS name validation (2100-2199)
	ZFSNameLeadingSlash = 2100 + iota
	ZFSNameEmptyComponent
	ZFSNameTrailingSlash
	ZFSNameInvalidChar
	ZFSNameMultipleDelimiters // multiple '@'/'#' delimiters found
	ZFSNameNoLetter           // pool doesn't begin with a letter
	ZFSNameReserved
	ZFSNameDiskLike
	ZFSNameTooLong
	ZFSNameSelfRef   // "."
	ZFSNameParentRef // ".."
	ZFSNameNoAtSign  // Missing "@" in snapshot
	ZFSNameNoPound   // Missing "#" in bookmark
	ZFSNameInvalid
)

const (
	// Command Execution (1300-1399)
	CommandNotFound     = 1300 + iota // Command not found
	CommandExecution                  // Execution failed
	CommandTimeout                    // Command timed out
	CommandPermission                 // Permission denied
	CommandInvalidInput                // Invalid command input
	CommandOutputParse                // Output parsing failed
	CommandSignal                     // Signal handling failed
	CommandContext                    // Context handling error
	CommandPipe                       // Command pipe error
	CommandWorkDir                    // Working directory error
)

const (
	// Lifecycle Management (1500-1599)
	LifecyclePID      = 1500 + iota // PID file operation failed
	LifecycleShutdown               // Shutdown process error
	LifecycleSignal                 // Signal handling error
	LifecycleHook                   // Lifecycle hook error
	LifecycleState                  // State transition error
	LifecycleDaemon                 // Daemon operation failed
)

const (
	// Misc (1600-1699)
	RodentMisc = 1600 + iota // Miscellaneous program error
	FSError
	NotFoundError // Not found error
	LoggerError   // Logger error
)

const (
	// Migration sync sender errors (2900-2999) - see DESIGN.md
	MigrateStorageError  = 2900 + iota // storage CLI adapter failure (zfs list/snapshot/send)
	MigrateLinkError                   // receiver-link transport/framing failure
	MigrateProtocolError               // event schema violation
	MigrateRemoteError                 // asynchronous {type:"error"} from the receiver
	MigrateSetupError                  // bootstrap failure (admin IP, listener bind)
)

var errorDefinitions = map[ErrorCode]struct {
	message    string
	domain     Domain
	httpStatus int
}{
	ConfigNotFound:           {"Config file not found", DomainConfig, http.StatusNotFound},
	ConfigInvalid:            {"Invalid config format", DomainConfig, http.StatusBadRequest},
	ConfigLoadFailed:         {"Failed to load config", DomainConfig, http.StatusInternalServerError},
	ConfigWriteFailed:        {"Failed to write config", DomainConfig, http.StatusInternalServerError},
	ConfigPermissionDenied:   {"Permission denied accessing config", DomainConfig, http.StatusForbidden},
	ConfigDirectoryError:     {"Config directory error", DomainConfig, http.StatusInternalServerError},
	ConfigValidationFailed:   {"Config validation failed", DomainConfig, http.StatusBadRequest},
	ConfigMarshalFailed:      {"Config serialization failed", DomainConfig, http.StatusInternalServerError},
	ConfigUnmarshalFailed:    {"Config deserialization failed", DomainConfig, http.StatusInternalServerError},
	ConfigHomeDirectoryError: {"Error getting home directory", DomainConfig, http.StatusInternalServerError},
	ConfigReadError:          {"Error reading config", DomainConfig, http.StatusInternalServerError},
	ConfigWriteError:         {"Error writing config", DomainConfig, http.StatusInternalServerError},
	ConfigParseError:         {"Error parsing config", DomainConfig, http.StatusBadRequest},

	ServerStart:             {"Failed to start server", DomainServer, http.StatusInternalServerError},
	ServerShutdown:          {"Error during shutdown", DomainServer, http.StatusInternalServerError},
	ServerBind:              {"Failed to bind port", DomainServer, http.StatusInternalServerError},
	ServerTimeout:           {"Operation timeout", DomainServer, http.StatusGatewayTimeout},
	ServerRequestValidation: {"Request validation failed", DomainServer, http.StatusBadRequest},
	ServerContextCancelled:  {"Context cancelled", DomainServer, http.StatusInternalServerError},
	ServerInternalError:     {"Internal server error", DomainServer, http.StatusInternalServerError},
	ServerBadRequest:        {"Bad request", DomainServer, http.StatusBadRequest},

	ZFSCommandFailed:         {"ZFS command execution failed", DomainZFS, http.StatusInternalServerError},
	ZFSPoolNotFound:          {"Pool not found", DomainZFS, http.StatusNotFound},
	ZFSPermissionDenied:      {"Permission denied", DomainZFS, http.StatusForbidden},
	ZFSPropertyError:         {"Property operation failed", DomainZFS, http.StatusInternalServerError},
	ZFSMountError:            {"Mount operation failed", DomainZFS, http.StatusInternalServerError},
	ZFSIOError:               {"I/O error during operation", DomainZFS, http.StatusInternalServerError},
	ZFSDatasetNotFound:       {"Dataset not found", DomainZFS, http.StatusNotFound},
	ZFSDatasetSnapshot:       {"Snapshot operation failed", DomainZFS, http.StatusInternalServerError},
	ZFSDatasetSend:           {"Send operation failed", DomainZFS, http.StatusInternalServerError},
	ZFSDatasetReceive:        {"Receive operation failed", DomainZFS, http.StatusInternalServerError},
	ZFSDatasetNoReceiveToken: {"No resume token available", DomainZFS, http.StatusNotFound},
	ZFSSnapshotList:          {"Failed to list snapshots", DomainZFS, http.StatusInternalServerError},
	ZFSSnapshotFailed:        {"Snapshot operation failed", DomainZFS, http.StatusInternalServerError},

	ZFSNameLeadingSlash:       {"Leading slash in name", DomainZFS, http.StatusBadRequest},
	ZFSNameEmptyComponent:     {"Empty component in name", DomainZFS, http.StatusBadRequest},
	ZFSNameTrailingSlash:      {"Trailing slash in name", DomainZFS, http.StatusBadRequest},
	ZFSNameInvalidChar:        {"Invalid character in name", DomainZFS, http.StatusBadRequest},
	ZFSNameMultipleDelimiters: {"Multiple delimiters in name", DomainZFS, http.StatusBadRequest},
	ZFSNameNoLetter:           {"Name must begin with a letter", DomainZFS, http.StatusBadRequest},
	ZFSNameReserved:           {"Name is reserved", DomainZFS, http.StatusBadRequest},
	ZFSNameDiskLike:           {"Reserved disk name (c[0-9].*)", DomainZFS, http.StatusBadRequest},
	ZFSNameTooLong:            {"Name is too long", DomainZFS, http.StatusBadRequest},
	ZFSNameSelfRef:            {"Name is self reference", DomainZFS, http.StatusBadRequest},
	ZFSNameParentRef:          {"Name is parent reference", DomainZFS, http.StatusBadRequest},
	ZFSNameNoAtSign:           {"Missing '@' in snapshot name", DomainZFS, http.StatusBadRequest},
	ZFSNameNoPound:            {"Missing '#' in bookmark name", DomainZFS, http.StatusBadRequest},
	ZFSNameInvalid:            {"Invalid name", DomainZFS, http.StatusBadRequest},

	CommandNotFound:     {"Command not found", DomainCommand, http.StatusBadRequest},
	CommandExecution:    {"Execution failed", DomainCommand, http.StatusInternalServerError},
	CommandTimeout:      {"Command timed out", DomainCommand, http.StatusGatewayTimeout},
	CommandPermission:   {"Permission denied", DomainCommand, http.StatusForbidden},
	CommandInvalidInput: {"Invalid command input", DomainCommand, http.StatusBadRequest},
	CommandOutputParse:  {"Output parsing failed", DomainCommand, http.StatusInternalServerError},
	CommandSignal:       {"Signal handling failed", DomainCommand, http.StatusInternalServerError},
	CommandContext:      {"Context handling error", DomainCommand, http.StatusInternalServerError},
	CommandPipe:         {"Command pipe error", DomainCommand, http.StatusInternalServerError},
	CommandWorkDir:      {"Working directory error", DomainCommand, http.StatusInternalServerError},

	LifecyclePID:      {"PID file operation failed", DomainLifecycle, http.StatusInternalServerError},
	LifecycleShutdown: {"Shutdown process error", DomainLifecycle, http.StatusInternalServerError},
	LifecycleSignal:   {"Signal handling error", DomainLifecycle, http.StatusInternalServerError},
	LifecycleHook:     {"Lifecycle hook error", DomainLifecycle, http.StatusInternalServerError},
	LifecycleState:    {"State transition error", DomainLifecycle, http.StatusInternalServerError},
	LifecycleDaemon:   {"Daemon operation failed", DomainLifecycle, http.StatusInternalServerError},

	RodentMisc:    {"Miscellaneous program error", DomainMisc, http.StatusInternalServerError},
	FSError:       {"Filesystem error", DomainMisc, http.StatusInternalServerError},
	NotFoundError: {"Not found", DomainMisc, http.StatusNotFound},
	LoggerError:   {"Logger error", DomainMisc, http.StatusInternalServerError},

	MigrateStorageError:  {"Storage CLI adapter failure", DomainMigrate, http.StatusInternalServerError},
	MigrateLinkError:     {"Receiver-link failure", DomainMigrate, http.StatusBadGateway},
	MigrateProtocolError: {"Receiver-link protocol violation", DomainMigrate, http.StatusBadGateway},
	MigrateRemoteError:   {"Receiver reported a sync error", DomainMigrate, http.StatusBadGateway},
	MigrateSetupError:    {"Worker bootstrap failed", DomainMigrate, http.StatusInternalServerError},
}
