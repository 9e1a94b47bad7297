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

// Package node lists cluster nodes and reports their readiness.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// Node is the summary printed by `homelab cluster status`.
type Node struct {
	// Name is the name of the node.
	Name string `json:"name" yaml:"name"`
	// Role lists the k3s roles of the node, derived from its labels.
	Role string `json:"role" yaml:"role"`
	// Ready reports the NodeReady condition.
	Ready bool `json:"ready" yaml:"ready"`
	// Version is the kubelet version.
	Version string `json:"version" yaml:"version"`
	// Age is the age of the node as a duration since its creation.
	Age string `json:"age" yaml:"age"`
	// IP is the internal IP address of the node.
	IP string `json:"ip,omitempty" yaml:"ip,omitempty"`
}

// Summary lists all nodes sorted by name.
func Summary(ctx context.Context, client k8s.Interface) ([]*Node, error) {
	list, err := List(ctx, client, "")
	if err != nil {
		return nil, err
	}

	nodes := make([]*Node, 0, len(list))
	for _, n := range list {
		nodes = append(nodes, &Node{
			Name:    n.Name,
			Role:    ParseNodeRole(n),
			Ready:   IsReady(n),
			Version: n.Status.NodeInfo.KubeletVersion,
			Age:     FormatAge(n.CreationTimestamp.Time),
			IP:      getNodeIP(n, v1.NodeInternalIP),
		})
	}

	sort.Slice(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})

	return nodes, nil
}

const (
	MinuteDuration = time.Minute
	HourDuration   = time.Hour
	DayDuration    = 24 * HourDuration
)

// FormatAge formats the age of a node as a human-readable string with at
// most two units. Nodes younger than a minute are "0m".
func FormatAge(createdOn time.Time) string {
	d := metav1.Now().Sub(createdOn)

	if d < MinuteDuration {
		return "0m"
	}

	days := d / DayDuration
	d -= days * DayDuration

	hours := d / HourDuration
	d -= hours * HourDuration

	minutes := d / MinuteDuration

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d days", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d hours", hours))
	}
	if minutes > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d minutes", minutes))
	}

	if len(parts) > 1 {
		return parts[0] + " " + parts[1]
	}
	return parts[0]
}

const nodeListPageSize int64 = 100

// List returns all nodes matching labelSelector, following continue tokens.
func List(ctx context.Context, client k8s.Interface, labelSelector string) ([]*v1.Node, error) {
	if client == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "kubernetes client is required")
	}

	var all []*v1.Node
	continueToken := ""
	for {
		list, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{
			LabelSelector: labelSelector,
			Limit:         nodeListPageSize,
			Continue:      continueToken,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeUnavailable, "failed to list nodes", err)
		}

		for i := range list.Items {
			all = append(all, &list.Items[i])
		}

		slog.Debug("fetched nodes page",
			slog.Int("pageSize", len(list.Items)),
			slog.Int("totalFetched", len(all)),
			slog.Bool("hasMore", list.Continue != ""),
		)

		continueToken = list.Continue
		if continueToken == "" || len(list.Items) == 0 {
			break
		}
	}

	return all, nil
}

// IsReady reports whether the node has a true NodeReady condition.
func IsReady(n *v1.Node) bool {
	for _, c := range n.Status.Conditions {
		if c.Type == v1.NodeReady {
			return c.Status == v1.ConditionTrue
		}
	}
	return false
}

const (
	NodeRoleLabelPrefix = "node-role.kubernetes.io/"
	NodeRoleWorker      = "worker"
)

// ParseNodeRole joins the node-role labels of n, sorted. k3s labels servers
// with control-plane, etcd and master; nodes without a role label are workers.
func ParseNodeRole(n *v1.Node) string {
	var roles []string
	for k := range n.Labels {
		if role, ok := strings.CutPrefix(k, NodeRoleLabelPrefix); ok && role != "" {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return NodeRoleWorker
	}
	slices.Sort(roles)
	return strings.Join(roles, ",")
}

// getNodeIP retrieves the IP address of the node for the specified address type.
func getNodeIP(node *v1.Node, ipType v1.NodeAddressType) string {
	for _, addr := range node.Status.Addresses {
		if addr.Type == ipType {
			return addr.Address
		}
	}
	return ""
}
