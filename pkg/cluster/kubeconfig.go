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

package cluster

import (
	"log/slog"
	"maps"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// RewriteKubeconfig points the current context of a k3s kubeconfig at
// address and renames its cluster, user and context to name.
func RewriteKubeconfig(data []byte, address, name string) ([]byte, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "cluster name is required")
	}
	in, err := clientcmd.Load(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, "failed to parse kubeconfig", err)
	}

	current, ok := in.Contexts[in.CurrentContext]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "kubeconfig has no current context %q", in.CurrentContext)
	}
	cluster, ok := in.Clusters[current.Cluster]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "kubeconfig has no cluster %q", current.Cluster)
	}
	user, ok := in.AuthInfos[current.AuthInfo]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "kubeconfig has no user %q", current.AuthInfo)
	}

	server, err := replaceLoopback(cluster.Server, address)
	if err != nil {
		return nil, err
	}
	cluster.Server = server

	out := clientcmdapi.NewConfig()
	out.Clusters[name] = cluster
	out.AuthInfos[name] = user
	out.Contexts[name] = &clientcmdapi.Context{Cluster: name, AuthInfo: name, Namespace: current.Namespace}
	out.CurrentContext = name

	b, err := clientcmd.Write(*out)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to serialize kubeconfig", err)
	}
	return b, nil
}

func replaceLoopback(server, address string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid server URL %q", server)
	}
	host := u.Hostname()
	if address == "" || (host != "127.0.0.1" && host != "localhost" && host != "::1") {
		return server, nil
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(address, port)
	} else {
		u.Host = address
	}
	return u.String(), nil
}

// MergeKubeconfig merges data into the kubeconfig at path, replacing
// entries with the same names. The current context switches to the merged
// one when setCurrent is true or the file had none.
func MergeKubeconfig(path string, data []byte, setCurrent bool) error {
	in, err := clientcmd.Load(data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "failed to parse kubeconfig", err)
	}

	existing := clientcmdapi.NewConfig()
	if _, statErr := os.Stat(path); statErr == nil {
		existing, err = clientcmd.LoadFromFile(path)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to load kubeconfig %s", path)
		}
	}

	maps.Copy(existing.Clusters, in.Clusters)
	maps.Copy(existing.AuthInfos, in.AuthInfos)
	maps.Copy(existing.Contexts, in.Contexts)
	if setCurrent || existing.CurrentContext == "" {
		existing.CurrentContext = in.CurrentContext
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to create %s", filepath.Dir(path))
	}
	if err := clientcmd.WriteToFile(*existing, path); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to write kubeconfig %s", path)
	}
	slog.Info("kubeconfig merged", "path", path, "context", in.CurrentContext, "current", existing.CurrentContext)
	return nil
}
