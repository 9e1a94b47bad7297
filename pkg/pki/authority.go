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

package pki

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math"
	"math/big"
	"time"

	certutil "k8s.io/client-go/util/cert"
	"k8s.io/client-go/util/keyutil"

	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// DefaultKeySize is the RSA key size for new authorities.
	DefaultKeySize = 4096

	// DefaultValidity is the lifetime of new authorities.
	DefaultValidity = 100 * 365 * 24 * time.Hour

	// DefaultRootName is the common name of the homelab root CA.
	DefaultRootName = "Homelab Root CA"

	// DefaultIntermediateName is the common name of the CA handed to cert-manager.
	DefaultIntermediateName = "Homelab Cert Manager CA"
)

// Authority is a certificate authority in a chain of trust.
// ChainPEM always equals CertPEM followed by the parent's ChainPEM.
type Authority struct {
	Name     string
	Key      *rsa.PrivateKey
	Cert     *x509.Certificate
	KeyPEM   []byte
	CertPEM  []byte
	ChainPEM []byte
	Parent   *Authority

	opts options
}

type options struct {
	keySize      int
	validity     time.Duration
	organization []string
	now          func() time.Time
}

// Option customises authority creation.
type Option func(*options)

// WithKeySize sets the RSA key size.
func WithKeySize(bits int) Option {
	return func(o *options) { o.keySize = bits }
}

// WithValidity sets the certificate lifetime.
func WithValidity(d time.Duration) Option {
	return func(o *options) { o.validity = d }
}

// WithOrganization sets the subject organization.
func WithOrganization(org ...string) Option {
	return func(o *options) { o.organization = org }
}

func newOptions(opts []Option) options {
	o := options{
		keySize:  DefaultKeySize,
		validity: DefaultValidity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewRootCA creates a self-signed root authority.
func NewRootCA(name string, opts ...Option) (*Authority, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "authority name is required")
	}
	o := newOptions(opts)

	key, err := rsa.GenerateKey(rand.Reader, o.keySize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to generate root key", err)
	}

	tmpl, err := caTemplate(name, o)
	if err != nil {
		return nil, err
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, key.Public(), key)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to self-sign root certificate", err)
	}

	return newAuthority(name, key, der, nil, o)
}

// IssueIntermediateCA creates a child authority signed by a.
// Intermediates inherit the parent's creation options.
func (a *Authority) IssueIntermediateCA(name string) (*Authority, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "authority name is required")
	}
	o := a.opts

	key, err := rsa.GenerateKey(rand.Reader, o.keySize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to generate intermediate key", err)
	}

	tmpl, err := caTemplate(name, o)
	if err != nil {
		return nil, err
	}
	// an intermediate never outlives its issuer
	if tmpl.NotAfter.After(a.Cert.NotAfter) {
		tmpl.NotAfter = a.Cert.NotAfter
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, a.Cert, key.Public(), crypto.Signer(a.Key))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInternal, err, "failed to sign intermediate %q", name)
	}

	return newAuthority(name, key, der, a, o)
}

// Root walks up the chain to the self-signed authority.
func (a *Authority) Root() *Authority {
	cur := a
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// IsRoot reports whether a has no parent.
func (a *Authority) IsRoot() bool {
	return a.Parent == nil
}

// Depth is the number of issuers above a.
func (a *Authority) Depth() int {
	d := 0
	for cur := a.Parent; cur != nil; cur = cur.Parent {
		d++
	}
	return d
}

// Verify checks the certificate against the root using the intermediates in the chain.
func (a *Authority) Verify() error {
	chain, err := certutil.ParseCertsPEM(a.ChainPEM)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to parse chain", err)
	}
	if len(chain) == 0 || !chain[0].Equal(a.Cert) {
		return errors.New(errors.ErrCodeConflict, "chain does not start with the authority certificate")
	}

	roots := x509.NewCertPool()
	intermediates := x509.NewCertPool()
	last := chain[len(chain)-1]
	roots.AddCert(last)
	if len(chain) > 2 {
		for _, c := range chain[1 : len(chain)-1] {
			intermediates.AddCert(c)
		}
	}

	_, err = a.Cert.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   a.Cert.NotBefore.Add(time.Minute),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return errors.Wrapf(errors.ErrCodeConflict, err, "chain of %q does not verify", a.Name)
	}
	return nil
}

func caTemplate(name string, o options) (*x509.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).SetInt64(math.MaxInt64))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to generate serial", err)
	}
	now := o.now().UTC()
	return &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   name,
			Organization: o.organization,
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(o.validity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}, nil
}

func newAuthority(name string, key *rsa.PrivateKey, der []byte, parent *Authority, o options) (*Authority, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to parse issued certificate", err)
	}

	certPEM, err := certutil.EncodeCertificates(cert)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to encode certificate", err)
	}

	keyPEM, err := keyutil.MarshalPrivateKeyToPEM(key)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to encode private key", err)
	}

	return &Authority{
		Name:     name,
		Key:      key,
		Cert:     cert,
		KeyPEM:   keyPEM,
		CertPEM:  certPEM,
		ChainPEM: chainOf(certPEM, parent),
		Parent:   parent,
		opts:     o,
	}, nil
}

func chainOf(certPEM []byte, parent *Authority) []byte {
	if parent == nil {
		return bytes.Clone(certPEM)
	}
	chain := make([]byte, 0, len(certPEM)+len(parent.ChainPEM))
	chain = append(chain, certPEM...)
	return append(chain, parent.ChainPEM...)
}

func (a *Authority) String() string {
	return fmt.Sprintf("%s (depth %d, expires %s)", a.Name, a.Depth(), a.Cert.NotAfter.Format(time.DateOnly))
}
