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
	"crypto/rsa"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	certutil "k8s.io/client-go/util/cert"
	"k8s.io/client-go/util/keyutil"

	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	keySuffix   = ".key"
	certSuffix  = ".crt"
	chainSuffix = ".chain.crt"
)

// DefaultChain is the chain of authorities created by `homelab pki init`.
var DefaultChain = []string{DefaultRootName, DefaultIntermediateName}

// Slug turns an authority name into its file name stem.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Paths returns the key, certificate and chain file paths for name in dir.
func Paths(dir, name string) (key, cert, chain string) {
	stem := filepath.Join(dir, Slug(name))
	return stem + keySuffix, stem + certSuffix, stem + chainSuffix
}

// Save writes the authority key, certificate and chain into dir.
func (a *Authority) Save(dir string) error {
	keyPath, certPath, chainPath := Paths(dir, a.Name)

	if err := keyutil.WriteKey(keyPath, a.KeyPEM); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to write %s", keyPath)
	}
	if err := certutil.WriteCert(certPath, a.CertPEM); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to write %s", certPath)
	}
	if err := certutil.WriteCert(chainPath, a.ChainPEM); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to write %s", chainPath)
	}
	return nil
}

// Exists reports whether the key and certificate for name are present in dir.
func Exists(dir, name string) bool {
	keyPath, certPath, _ := Paths(dir, name)
	for _, p := range []string{keyPath, certPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Load reads a previously saved authority. The parent must be the
// authority that issued it, or nil for a root.
func Load(dir, name string, parent *Authority, opts ...Option) (*Authority, error) {
	keyPath, certPath, _ := Paths(dir, name)

	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeNotFound, err, "failed to read %s", keyPath)
	}
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeNotFound, err, "failed to read %s", certPath)
	}

	parsed, err := keyutil.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to parse %s", keyPath)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "%s is not an RSA key", keyPath)
	}

	certs, err := certutil.ParseCertsPEM(certPEM)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to parse %s", certPath)
	}
	cert := certs[0]

	if !key.PublicKey.Equal(cert.PublicKey) {
		return nil, errors.Newf(errors.ErrCodeConflict, "key %s does not match certificate %s", keyPath, certPath)
	}
	if !cert.IsCA {
		return nil, errors.Newf(errors.ErrCodeConflict, "%s is not a CA certificate", certPath)
	}
	if parent != nil {
		if err := cert.CheckSignatureFrom(parent.Cert); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeConflict, err, "%q was not issued by %q", name, parent.Name)
		}
	} else {
		if !bytes.Equal(cert.RawIssuer, cert.RawSubject) {
			return nil, errors.Newf(errors.ErrCodeConflict, "root %q is not self-signed (issuer %q)", name, cert.Issuer.CommonName)
		}
		if err := cert.CheckSignatureFrom(cert); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeConflict, err, "root %q is not self-signed", name)
		}
	}

	o := newOptions(opts)
	if parent != nil {
		o = parent.opts
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

// LoadOrCreateChain loads each named authority from dir, creating and
// saving any that are missing. names runs from the root downwards and
// the returned authority is the last one.
func LoadOrCreateChain(dir string, names []string, opts ...Option) (*Authority, error) {
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "at least one authority name is required")
	}

	var cur *Authority
	regenerate := false
	for _, name := range names {
		if !regenerate && Exists(dir, name) {
			loaded, err := Load(dir, name, cur, opts...)
			if err != nil {
				return nil, err
			}
			slog.Debug("loaded authority", "name", name, "dir", dir)
			cur = loaded
			continue
		}

		var (
			next *Authority
			err  error
		)
		if cur == nil {
			next, err = NewRootCA(name, opts...)
		} else {
			next, err = cur.IssueIntermediateCA(name)
		}
		if err != nil {
			return nil, err
		}
		if err := next.Save(dir); err != nil {
			return nil, err
		}
		slog.Info("created authority", "name", name, "dir", dir, "expires", next.Cert.NotAfter)

		// descendants of a new authority must be reissued
		regenerate = true
		cur = next
	}
	return cur, nil
}
