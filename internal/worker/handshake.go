// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package worker implements the worker bootstrap of spec.md §4.7: the
// stdin/stdout handshake with the parent supervisor, logging init, and
// wiring the control server to the rest of the migrate-send packages.
package worker

import (
	"encoding/json"

	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/types"
)

// StartupMessage is the single newline-delimited JSON object the parent
// supervisor writes to the worker's stdin (spec.md §6).
type StartupMessage struct {
	ReqID          string         `json:"req_id"`
	UUID           string         `json:"uuid"`
	TimeoutSeconds *int           `json:"timeoutSeconds,omitempty"`
	Payload        StartupPayload `json:"payload"`
}

// StartupPayload carries the action and the data needed to build a
// MigrationTask.
type StartupPayload struct {
	MigrationTask struct {
		Action string               `json:"action"`
		Record types.MigrationTask  `json:"record"`
	} `json:"migrationTask"`
	VM types.VM `json:"vm"`
}

// TimeoutOrDefault returns TimeoutSeconds if set, else the spec's 60s
// default.
func (m StartupMessage) TimeoutOrDefault() int {
	if m.TimeoutSeconds != nil {
		return *m.TimeoutSeconds
	}
	return 60
}

// ReadyReply is the worker's success reply to the startup message.
type ReadyReply struct {
	Host string `json:"host"`
	Pid  int    `json:"pid"`
	Port int    `json:"port"`
}

// ErrorReply is the worker's failure reply to the startup message.
type ErrorReply struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

func decodeStartupMessage(line []byte) (StartupMessage, error) {
	var msg StartupMessage
	err := json.Unmarshal(line, &msg)
	return msg, err
}
