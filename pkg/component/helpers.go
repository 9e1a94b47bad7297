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

	certmanagerv1 "github.com/cert-manager/cert-manager/pkg/apis/certmanager/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	gatewayapiv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// AppLabel is the label selecting the pods of an app.
const AppLabel = "app.kubernetes.io/name"

// Labels returns the standard labels for app.
func Labels(app string) map[string]string {
	return map[string]string{
		AppLabel:       app,
		ManagedByLabel: ManagedByValue,
	}
}

// Selector selects the pods of app.
func Selector(app string) *metav1.LabelSelector {
	return &metav1.LabelSelector{
		MatchLabels: map[string]string{AppLabel: app},
	}
}

// ObjectMeta returns metadata for an object belonging to app.
func ObjectMeta(name, namespace, app string) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:      name,
		Namespace: namespace,
		Labels:    Labels(app),
	}
}

// Namespace declares a namespace with extra labels.
func Namespace(name string, labels map[string]string) *corev1.Namespace {
	l := map[string]string{ManagedByLabel: ManagedByValue}
	maps.Copy(l, labels)
	return &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: l,
		},
	}
}

// AmbientNamespace declares a namespace enrolled in the ambient mesh.
func AmbientNamespace(name string) *corev1.Namespace {
	return Namespace(name, AmbientLabels())
}

// ServiceAccount declares a service account for app.
func ServiceAccount(name, namespace, app string) *corev1.ServiceAccount {
	return &corev1.ServiceAccount{
		ObjectMeta: ObjectMeta(name, namespace, app),
	}
}

// ClusterRBAC declares a ClusterRole with rules and binds it to the
// service account of the same name in namespace.
func ClusterRBAC(name, namespace, app string, rules []rbacv1.PolicyRule) (*rbacv1.ClusterRole, *rbacv1.ClusterRoleBinding) {
	role := &rbacv1.ClusterRole{
		ObjectMeta: ObjectMeta(name, "", app),
		Rules:      rules,
	}
	binding := &rbacv1.ClusterRoleBinding{
		ObjectMeta: ObjectMeta(name, "", app),
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "ClusterRole",
			Name:     name,
		},
		Subjects: []rbacv1.Subject{{
			Kind:      rbacv1.ServiceAccountKind,
			Name:      name,
			Namespace: namespace,
		}},
	}
	return role, binding
}

// Custom declares an object of a kind the scheme does not know, such as
// MetalLB or prometheus-operator resources. spec is stored as is.
func Custom(apiVersion, kind, name, namespace, app string, spec map[string]any) *unstructured.Unstructured {
	u := &unstructured.Unstructured{Object: map[string]any{}}
	u.SetAPIVersion(apiVersion)
	u.SetKind(kind)
	u.SetName(name)
	u.SetNamespace(namespace)
	u.SetLabels(Labels(app))
	if spec != nil {
		u.Object["spec"] = spec
	}
	return u
}

// Service declares a ClusterIP service selecting app.
func Service(name, namespace, app string, ports ...corev1.ServicePort) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: ObjectMeta(name, namespace, app),
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{AppLabel: app},
			Ports:    ports,
		},
	}
}

// TCPPort is a named TCP service port targeting the container port of the same name.
func TCPPort(name string, port int32) corev1.ServicePort {
	return corev1.ServicePort{
		Name:       name,
		Port:       port,
		Protocol:   corev1.ProtocolTCP,
		TargetPort: intstr.FromString(name),
	}
}

// PersistentVolumeClaim declares a ReadWriteOnce claim.
func PersistentVolumeClaim(name, namespace, app, storageClass, size string) (*corev1.PersistentVolumeClaim, error) {
	qty, err := resource.ParseQuantity(size)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid storage size %q for %s", size, name)
	}
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: ObjectMeta(name, namespace, app),
		Spec:       ClaimSpec(storageClass, qty),
	}, nil
}

// ClaimSpec is a ReadWriteOnce claim spec of the given size.
func ClaimSpec(storageClass string, size resource.Quantity) corev1.PersistentVolumeClaimSpec {
	return corev1.PersistentVolumeClaimSpec{
		AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
		StorageClassName: ptr.To(storageClass),
		Resources: corev1.VolumeResourceRequirements{
			Requests: corev1.ResourceList{corev1.ResourceStorage: size},
		},
	}
}

// Resources builds container resource requirements from quantity strings.
// Empty strings are skipped.
func Resources(reqCPU, reqMem, limCPU, limMem string) corev1.ResourceRequirements {
	set := func(l corev1.ResourceList, name corev1.ResourceName, v string) {
		if v != "" {
			l[name] = resource.MustParse(v)
		}
	}
	r := corev1.ResourceRequirements{
		Requests: corev1.ResourceList{},
		Limits:   corev1.ResourceList{},
	}
	set(r.Requests, corev1.ResourceCPU, reqCPU)
	set(r.Requests, corev1.ResourceMemory, reqMem)
	set(r.Limits, corev1.ResourceCPU, limCPU)
	set(r.Limits, corev1.ResourceMemory, limMem)
	return r
}

// Web describes a web UI exposed through the istio gateway over HTTPS.
type Web struct {
	// Name prefixes every object.
	Name      string
	Namespace string
	App       string
	Hostname  string

	// Service and Port are the backend.
	Service string
	Port    int32
}

// GatewayWeb declares the certificate, gateway and routes that expose w:
// plain HTTP is redirected to HTTPS and HTTPS is routed to the backend.
func GatewayWeb(env *Environment, w Web) ([]runtime.Object, error) {
	if w.Name == "" || w.Namespace == "" || w.Hostname == "" || w.Service == "" || w.Port == 0 {
		return nil, errors.Newf(errors.ErrCodeInternal, "incomplete web exposure %+v", w)
	}
	app := w.App
	if app == "" {
		app = w.Name
	}
	secretName := w.Name + "-cert"

	cert := &certmanagerv1.Certificate{
		ObjectMeta: ObjectMeta(w.Name, w.Namespace, app),
		Spec: certmanagerv1.CertificateSpec{
			DNSNames:   []string{w.Hostname},
			IssuerRef:  env.Issuer,
			SecretName: secretName,
		},
	}

	gw := &gatewayapiv1.Gateway{
		ObjectMeta: ObjectMeta(w.Name, w.Namespace, app),
		Spec: gatewayapiv1.GatewaySpec{
			GatewayClassName: GatewayClassName,
			Listeners: []gatewayapiv1.Listener{
				{
					Name:     "http",
					Port:     80,
					Protocol: gatewayapiv1.HTTPProtocolType,
				},
				{
					Name:     "https",
					Port:     443,
					Protocol: gatewayapiv1.HTTPSProtocolType,
					TLS: &gatewayapiv1.GatewayTLSConfig{
						Mode: ptr.To(gatewayapiv1.TLSModeTerminate),
						CertificateRefs: []gatewayapiv1.SecretObjectReference{
							{Name: gatewayapiv1.ObjectName(secretName)},
						},
					},
					AllowedRoutes: &gatewayapiv1.AllowedRoutes{
						Namespaces: &gatewayapiv1.RouteNamespaces{
							From: ptr.To(gatewayapiv1.NamespacesFromSame),
						},
					},
				},
			},
		},
	}

	redirect := &gatewayapiv1.HTTPRoute{
		ObjectMeta: ObjectMeta(w.Name+"-httpredirect", w.Namespace, app),
		Spec: gatewayapiv1.HTTPRouteSpec{
			CommonRouteSpec: gatewayapiv1.CommonRouteSpec{
				ParentRefs: []gatewayapiv1.ParentReference{parentRef(w.Name, "http")},
			},
			Rules: []gatewayapiv1.HTTPRouteRule{{
				Filters: []gatewayapiv1.HTTPRouteFilter{{
					Type: gatewayapiv1.HTTPRouteFilterRequestRedirect,
					RequestRedirect: &gatewayapiv1.HTTPRequestRedirectFilter{
						Scheme:     ptr.To("https"),
						StatusCode: ptr.To(301),
					},
				}},
			}},
		},
	}

	route := &gatewayapiv1.HTTPRoute{
		ObjectMeta: ObjectMeta(w.Name, w.Namespace, app),
		Spec: gatewayapiv1.HTTPRouteSpec{
			CommonRouteSpec: gatewayapiv1.CommonRouteSpec{
				ParentRefs: []gatewayapiv1.ParentReference{parentRef(w.Name, "https")},
			},
			Hostnames: []gatewayapiv1.Hostname{gatewayapiv1.Hostname(w.Hostname)},
			Rules: []gatewayapiv1.HTTPRouteRule{{
				BackendRefs: []gatewayapiv1.HTTPBackendRef{{
					BackendRef: gatewayapiv1.BackendRef{
						BackendObjectReference: gatewayapiv1.BackendObjectReference{
							Name: gatewayapiv1.ObjectName(w.Service),
							Port: ptr.To(gatewayapiv1.PortNumber(w.Port)),
						},
					},
				}},
			}},
		},
	}

	return []runtime.Object{cert, gw, redirect, route}, nil
}

func parentRef(gateway, section string) gatewayapiv1.ParentReference {
	return gatewayapiv1.ParentReference{
		Name:        gatewayapiv1.ObjectName(gateway),
		SectionName: ptr.To(gatewayapiv1.SectionName(section)),
	}
}

// RequireFile returns a NOT_FOUND error naming the component and path.
func RequireFile(component, path string, err error) error {
	return errors.WrapWithContext(errors.ErrCodeNotFound,
		fmt.Sprintf("%s: required file %s is missing", component, path), err,
		map[string]any{"component": component, "path": path})
}
