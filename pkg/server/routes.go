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

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DatasetStatus is one dataset's reported pipeline position, for the
// diagnostic status endpoint.
type DatasetStatus struct {
	ZFSFilesystem string `json:"zfsFilesystem"`
	State         string `json:"state"`
	EstimatedSize int64  `json:"estimatedSize"`
}

// MigrationStatus is the worker's current-sync snapshot reported at
// `GET /debug/migrate/status` - read-only, no control-plane semantics
// (SPEC_FULL.md §10).
type MigrationStatus struct {
	SourceVMID      string          `json:"sourceVmId"`
	TargetVMID      string          `json:"targetVmId"`
	CurrentProgress int64           `json:"currentProgress"`
	TotalProgress   int64           `json:"totalProgress"`
	Datasets        []DatasetStatus `json:"datasets"`
}

// StatusProvider is implemented by whatever owns the live MigrationTask
// and progress counters (internal/worker) - injected so pkg/server does
// not import the migrate packages directly.
type StatusProvider interface {
	MigrationStatus() MigrationStatus
}

func registerDebugRoutes(engine *gin.Engine, status StatusProvider) {
	v1 := engine.Group("/debug/migrate")
	{
		v1.GET("/status", func(c *gin.Context) {
			if status == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no active worker status"})
				return
			}
			c.JSON(http.StatusOK, status.MigrationStatus())
		})
	}
}
