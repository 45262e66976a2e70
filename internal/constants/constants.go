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

package constants

const (
	RodentVersion     = "v0.0.1"
	RodentPIDFilePath = "/var/run/rodent-migrate-send.pid"

	// config
	SystemConfigDir = "/etc/rodent"
	UserConfigDir   = "~/.rodent"
	ConfigFileName  = "migrate-send.yml"
	StateFileName   = "rodent_state.yml"

	// Migration snapshot naming, per spec: <SNAPSHOT_PREFIX><N>.
	SnapshotPrefix = "vm-migration-"
)

// Version, CommitSHA and BuildTime are overridden at link time via
// -ldflags "-X .../internal/constants.Version=...".
var (
	Version   = RodentVersion
	CommitSHA = "unknown"
	BuildTime = "unknown"
)
