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

package remote

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// TempTemplate is the mktemp template uploads are staged under.
const TempTemplate = "/tmp/homelab.XXXXXXXXXX"

// ValidatePath rejects relative paths and paths that are not clean.
func ValidatePath(p string) error {
	if p == "" || !path.IsAbs(p) {
		return errors.Newf(errors.ErrCodeInvalidRequest, "remote path %q must be absolute", p)
	}
	if path.Clean(p) != p {
		return errors.Newf(errors.ErrCodeInvalidRequest, "remote path %q is not clean", p)
	}
	return nil
}

// Quote single-quotes s for a POSIX shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ReadCommand prints path with root privileges.
func ReadCommand(p string) string {
	return "sudo cat -- " + Quote(p)
}

// UploadCommand copies stdin into a private temporary file and installs it
// at dst with mode, creating parent directories. The temporary file is
// owner-only and removed on exit whether or not install succeeds.
func UploadCommand(dst string, mode os.FileMode) string {
	return fmt.Sprintf(`umask 077; t=$(mktemp %s) || exit 1; trap 'rm -f "$t"' EXIT; cat > "$t" && sudo install -D -m %04o "$t" %s`,
		Quote(TempTemplate), mode.Perm(), Quote(dst))
}
