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

package component

import (
	"fmt"
	"maps"
	"strings"

	certmanagerv1 "github.com/cert-manager/cert-manager/pkg/apis/certmanager/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	gatewayapiv1 "sigs.k8s.io/gateway-api/apis/v1"
	"sigs.k8s.io/yaml"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// Scheme knows every typed object a component may render.
var Scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(Scheme))
	utilruntime.Must(certmanagerv1.AddToScheme(Scheme))
	utilruntime.Must(gatewayapiv1.AddToScheme(Scheme))
}

// clusterScoped lists the kinds rendered without a namespace.
var clusterScoped = map[string]bool{
	"Namespace":                true,
	"ClusterRole":              true,
	"ClusterRoleBinding":       true,
	"StorageClass":             true,
	"ClusterIssuer":            true,
	"CustomResourceDefinition": true,
	"PriorityClass":            true,
	"GatewayClass":             true,
}

// IsClusterScoped reports whether kind is rendered without a namespace.
func IsClusterScoped(kind string) bool {
	return clusterScoped[kind]
}

// SetTypeMeta fills in apiVersion and kind from the scheme when unset.
func SetTypeMeta(obj runtime.Object) error {
	gvk := obj.GetObjectKind().GroupVersionKind()
	if gvk.Kind != "" && gvk.Version != "" {
		return nil
	}
	gvks, _, err := Scheme.ObjectKinds(obj)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "unknown object type %T", obj)
	}
	obj.GetObjectKind().SetGroupVersionKind(gvks[0])
	return nil
}

// ObjectRef identifies a rendered object.
type ObjectRef struct {
	APIVersion string
	Kind       string
	Namespace  string
	Name       string
}

// String formats the reference as kind/namespace/name.
func (r ObjectRef) String() string {
	if r.Namespace == "" {
		return r.Kind + "/" + r.Name
	}
	return r.Kind + "/" + r.Namespace + "/" + r.Name
}

// RefOf returns the reference of obj, filling type metadata when needed.
func RefOf(obj runtime.Object) (ObjectRef, error) {
	if err := SetTypeMeta(obj); err != nil {
		return ObjectRef{}, err
	}
	accessor, err := meta.Accessor(obj)
	if err != nil {
		return ObjectRef{}, errors.Wrapf(errors.ErrCodeInternal, err, "object %T has no metadata", obj)
	}
	gvk := obj.GetObjectKind().GroupVersionKind()
	apiVersion, kind := gvk.ToAPIVersionAndKind()
	return ObjectRef{
		APIVersion: apiVersion,
		Kind:       kind,
		Namespace:  accessor.GetNamespace(),
		Name:       accessor.GetName(),
	}, nil
}

// ValidateObjects checks every object has a name and namespaced objects
// carry a namespace.
func ValidateObjects(objs []runtime.Object) error {
	var problems []string
	for i, obj := range objs {
		ref, err := RefOf(obj)
		if err != nil {
			return err
		}
		switch {
		case ref.Name == "":
			problems = append(problems, fmt.Sprintf("object %d (%s) has no name", i, ref.Kind))
		case ref.Namespace == "" && !IsClusterScoped(ref.Kind):
			problems = append(problems, fmt.Sprintf("%s has no namespace", ref))
		case ref.Namespace != "" && IsClusterScoped(ref.Kind):
			problems = append(problems, fmt.Sprintf("%s is cluster scoped but has a namespace", ref))
		}
	}
	if len(problems) > 0 {
		return errors.NewWithContext(errors.ErrCodeInternal, "invalid objects: "+strings.Join(problems, "; "),
			map[string]any{"problems": problems})
	}
	return nil
}

// MarshalObject renders obj as a single YAML document without status or
// server populated metadata.
func MarshalObject(obj runtime.Object) ([]byte, error) {
	if err := SetTypeMeta(obj); err != nil {
		return nil, err
	}

	var content map[string]any
	if u, ok := obj.(*unstructured.Unstructured); ok {
		content = maps.Clone(u.Object)
		if md, ok := content["metadata"].(map[string]any); ok {
			content["metadata"] = maps.Clone(md)
		}
	} else {
		var err error
		content, err = runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInternal, err, "failed to convert %T", obj)
		}
	}

	delete(content, "status")
	if md, ok := content["metadata"].(map[string]any); ok {
		delete(md, "creationTimestamp")
	}

	data, err := yaml.Marshal(content)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInternal, err, "failed to marshal %T", obj)
	}
	return append([]byte("---\n"), data...), nil
}

// ManifestName is the file name of the i-th object of a bundle.
func ManifestName(i int, ref ObjectRef) string {
	return fmt.Sprintf("%02d-%s-%s.yaml", i, strings.ToLower(ref.Kind), ref.Name)
}
