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

// Package node prepares bare-metal machines before k3s is installed.
//
// Every board gets the packages Longhorn needs (open-iscsi, nfs-common).
// Raspberry Pi 5 nodes additionally get a managed /boot/firmware/config.txt,
// an EEPROM boot order that prefers NVMe, and memory cgroups enabled on the
// kernel command line. The node is rebooted only when one of those changed,
// so running the bootstrap twice is a no-op the second time.
//
// SystemdDropIn renders the per-node environment for the k3s service.
package node
