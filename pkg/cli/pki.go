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

package cli

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/homelab-stack/homelab/pkg/pki"
	"github.com/homelab-stack/homelab/pkg/serializer"
)

// authorityInfo describes one certificate of the CA chain.
type authorityInfo struct {
	Name      string    `json:"name" yaml:"name"`
	Issuer    string    `json:"issuer" yaml:"issuer"`
	Serial    string    `json:"serial" yaml:"serial"`
	NotBefore time.Time `json:"notBefore" yaml:"notBefore"`
	NotAfter  time.Time `json:"notAfter" yaml:"notAfter"`
}

type authorityChain []authorityInfo

func (c authorityChain) Header() []string {
	return []string{"name", "issuer", "serial", "expires"}
}

func (c authorityChain) Rows() [][]string {
	rows := make([][]string, 0, len(c))
	for _, a := range c {
		rows = append(rows, []string{a.Name, a.Issuer, a.Serial, a.NotAfter.Format(time.DateOnly)})
	}
	return rows
}

// chainOf lists a and its parents from the root down.
func chainOf(a *pki.Authority) authorityChain {
	var out authorityChain
	for cur := a; cur != nil; cur = cur.Parent {
		out = append(authorityChain{{
			Name:      cur.Name,
			Issuer:    cur.Cert.Issuer.CommonName,
			Serial:    hex.EncodeToString(cur.Cert.SerialNumber.Bytes()),
			NotBefore: cur.Cert.NotBefore,
			NotAfter:  cur.Cert.NotAfter,
		}}, out...)
	}
	return out
}

func pkiCmd() *cli.Command {
	return &cli.Command{
		Name:  "pki",
		Usage: "Manage the certificate authority chain",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create or load the CA chain and print it",
				Description: `Loads the root and intermediate authorities from --dir, creating any
that are missing. A new root reissues the intermediate. The intermediate
signs every certificate cert-manager issues in the cluster.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Value: defaultPKIDir,
						Usage: "Directory holding the CA chain",
					},
					&cli.IntFlag{
						Name:  "key-size",
						Value: pki.DefaultKeySize,
						Usage: "RSA key size for newly created authorities",
					},
					formatFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					format, err := serializer.ParseFormat(cmd.String("format"))
					if err != nil {
						return err
					}

					ca, err := pki.LoadOrCreateChain(cmd.String("dir"), pki.DefaultChain,
						pki.WithKeySize(int(cmd.Int("key-size"))))
					if err != nil {
						return err
					}
					if err := ca.Verify(); err != nil {
						return err
					}

					return serializer.NewWriter(format, cmd.Root().Writer).Serialize(ctx, chainOf(ca))
				},
			},
		},
	}
}
