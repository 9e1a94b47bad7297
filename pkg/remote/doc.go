// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package remote runs commands and transfers files on cluster nodes over SSH.
//
// Runner is the seam every provisioning step goes through. Client is the SSH
// implementation; remotetest.Fake records calls for tests.
//
// Files are written without sftp: WriteFile streams the content to
// /tmp/homelab-<sha256> and moves it into place with `sudo install`, so
// root-owned paths such as /boot/firmware work with passwordless sudo.
//
// Reboot issues `sudo reboot`, tolerates the dropped connection and redials
// until the node answers again or the timeout (5m by default) elapses.
package remote
