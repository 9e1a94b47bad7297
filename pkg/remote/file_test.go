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
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelab-stack/homelab/pkg/errors"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"absolute", "/boot/firmware/config.txt", false},
		{"root", "/", false},
		{"empty", "", true},
		{"relative", "boot/config.txt", true},
		{"dot segments", "/boot/../etc/passwd", true},
		{"trailing slash", "/boot/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{"with space", "'with space'"},
		{"it's", `'it'\''s'`},
		{"", "''"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Quote(tt.in), tt.in)
	}
}

func TestCommands(t *testing.T) {
	assert.Equal(t, "sudo cat -- '/etc/rancher/k3s/k3s.yaml'", ReadCommand("/etc/rancher/k3s/k3s.yaml"))
	assert.Contains(t, UploadCommand("/boot/firmware/config.txt", os.ModeDir|0o755), "-m 0755 ")
}

func TestUploadCommand(t *testing.T) {
	cmd := UploadCommand("/etc/rancher/k3s/cluster-token", 0o600)
	assert.Equal(t,
		`umask 077; t=$(mktemp '/tmp/homelab.XXXXXXXXXX') || exit 1; trap 'rm -f "$t"' EXIT; `+
			`cat > "$t" && sudo install -D -m 0600 "$t" '/etc/rancher/k3s/cluster-token'`,
		cmd)

	// the staging file is private, unpredictable and always removed
	assert.True(t, strings.HasPrefix(cmd, "umask 077;"))
	assert.Less(t, strings.Index(cmd, "trap "), strings.Index(cmd, "cat > "))
	assert.NotContains(t, cmd, "/tmp/homelab-")
}
