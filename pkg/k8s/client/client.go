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

package client

import (
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

// Interface is an alias for kubernetes.Interface to allow easier mocking in tests.
type Interface = kubernetes.Interface

// DefaultKubeconfigPath returns ~/.kube/config.
func DefaultKubeconfigPath() string {
	return filepath.Join(homedir.HomeDir(), clientcmd.RecommendedHomeDir, clientcmd.RecommendedFileName)
}

// ResolveKubeconfig returns the kubeconfig path to use for path.
func ResolveKubeconfig(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv(clientcmd.RecommendedConfigPathEnvVar); env != "" {
		return filepath.SplitList(env)[0]
	}
	return DefaultKubeconfigPath()
}

// BuildKubeClient creates a Kubernetes client from the given kubeconfig file.
// An empty path is resolved with ResolveKubeconfig.
func BuildKubeClient(kubeconfig string) (Interface, *rest.Config, error) {
	path := ResolveKubeconfig(kubeconfig)
	if _, err := os.Stat(path); err != nil {
		return nil, nil, errors.Wrapf(errors.ErrCodeNotFound, err, "kubeconfig %s not found", path)
	}

	config, err := clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to build kube config from %s", path)
	}
	config.Timeout = defaults.K8sAPITimeout

	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInternal, "failed to create kubernetes client", err)
	}

	return client, config, nil
}

// NewFromKubeconfig creates a Kubernetes client from kubeconfig content,
// such as the one read from a k3s server.
func NewFromKubeconfig(data []byte) (Interface, *rest.Config, error) {
	config, err := clientcmd.RESTConfigFromKubeConfig(data)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidConfig, "failed to parse kubeconfig", err)
	}
	config.Timeout = defaults.K8sAPITimeout

	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInternal, "failed to create kubernetes client", err)
	}
	return client, config, nil
}
