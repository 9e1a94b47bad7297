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

package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func testNode(name string, ready bool, labels map[string]string) *v1.Node {
	status := v1.ConditionFalse
	if ready {
		status = v1.ConditionTrue
	}
	return &v1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name:              name,
			Labels:            labels,
			CreationTimestamp: metav1.NewTime(time.Now().Add(-26 * time.Hour)),
		},
		Status: v1.NodeStatus{
			Conditions: []v1.NodeCondition{{Type: v1.NodeReady, Status: status}},
			Addresses:  []v1.NodeAddress{{Type: v1.NodeInternalIP, Address: "192.168.1.11"}},
			NodeInfo:   v1.NodeSystemInfo{KubeletVersion: "v1.33.3+k3s1"},
		},
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		name     string
		age      time.Duration
		expected string
	}{
		{"less than a minute", 30 * time.Second, "0m"},
		{"minutes", 5 * time.Minute, "5 minutes"},
		{"hours and minutes", 2*time.Hour + 30*time.Minute, "2 hours 30 minutes"},
		{"days and hours", 3*24*time.Hour + 4*time.Hour, "3 days 4 hours"},
		{"exact day", 24 * time.Hour, "1 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatAge(time.Now().Add(-tt.age-time.Second)))
		})
	}
}

func TestParseNodeRole(t *testing.T) {
	server := testNode("rp0", true, map[string]string{
		"node-role.kubernetes.io/control-plane": "true",
		"node-role.kubernetes.io/master":        "true",
		"node-role.kubernetes.io/etcd":          "true",
		"kubernetes.io/hostname":                "rp0",
	})
	assert.Equal(t, "control-plane,etcd,master", ParseNodeRole(server))

	agent := testNode("rp3", true, map[string]string{"kubernetes.io/hostname": "rp3"})
	assert.Equal(t, NodeRoleWorker, ParseNodeRole(agent))
}

func TestIsReady(t *testing.T) {
	assert.True(t, IsReady(testNode("a", true, nil)))
	assert.False(t, IsReady(testNode("b", false, nil)))
	assert.False(t, IsReady(&v1.Node{}))
}

func TestSummary(t *testing.T) {
	client := fake.NewClientset(
		testNode("rp1", false, nil),
		testNode("rp0", true, map[string]string{"node-role.kubernetes.io/control-plane": "true"}),
	)

	nodes, err := Summary(context.Background(), client)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "rp0", nodes[0].Name)
	assert.Equal(t, "control-plane", nodes[0].Role)
	assert.True(t, nodes[0].Ready)
	assert.Equal(t, "v1.33.3+k3s1", nodes[0].Version)
	assert.Equal(t, "192.168.1.11", nodes[0].IP)
	assert.Equal(t, "1 days 2 hours", nodes[0].Age)

	assert.Equal(t, "rp1", nodes[1].Name)
	assert.False(t, nodes[1].Ready)
}

func TestListRequiresClient(t *testing.T) {
	_, err := List(context.Background(), nil, "")
	require.Error(t, err)
}
