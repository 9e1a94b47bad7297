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

package tailscale

import (
	"bytes"
	stderrors "errors"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// APIURL is the Tailscale control plane API.
	APIURL = "https://api.tailscale.com"

	// DefaultTailnet selects the tailnet owning the OAuth client.
	DefaultTailnet = "-"

	// PolicyScope is the OAuth scope needed to replace the policy file.
	PolicyScope = "policy_file"

	maxErrorBody = 4 << 10
)

// AdminClient talks to the Tailscale API with the admin OAuth client.
type AdminClient struct {
	BaseURL string
	Tailnet string
	HTTP    *http.Client
}

// NewAdminClient returns a client authenticated with the client credentials
// flow against baseURL. An empty baseURL uses APIURL.
func NewAdminClient(ctx context.Context, creds config.OAuthClient, baseURL string) (*AdminClient, error) {
	var missing []string
	if creds.ClientID == "" {
		missing = append(missing, "tailscale.admin.clientId")
	}
	if creds.ClientSecret == "" {
		missing = append(missing, "tailscale.admin.clientSecret")
	}
	if len(missing) > 0 {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidConfig,
			"tailscale admin requires OAuth credentials",
			map[string]any{"missing": missing})
	}

	if baseURL == "" {
		baseURL = APIURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     baseURL + "/api/v2/oauth/token",
		Scopes:       []string{PolicyScope},
	}
	hc := cc.Client(ctx)
	hc.Timeout = defaults.HTTPClientTimeout

	return &AdminClient{
		BaseURL: baseURL,
		Tailnet: DefaultTailnet,
		HTTP:    hc,
	}, nil
}

// SetPolicy replaces the tailnet policy file with policy.
func (c *AdminClient) SetPolicy(ctx context.Context, policy []byte) error {
	endpoint := fmt.Sprintf("%s/api/v2/tailnet/%s/acl", c.BaseURL, url.PathEscape(c.Tailnet))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(policy))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to build policy request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if stderrors.As(err, &re) {
			return errors.Wrap(errors.ErrCodeInvalidConfig,
				"tailscale admin OAuth token request failed", err)
		}
		if ctx.Err() != nil {
			return errors.Wrap(errors.ErrCodeTimeout, "tailscale policy update canceled", err)
		}
		return errors.Wrap(errors.ErrCodeUnavailable, "tailscale API request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	code := errors.ErrCodeUnavailable
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = errors.ErrCodeInvalidConfig
	case http.StatusBadRequest:
		code = errors.ErrCodeInvalidRequest
	}
	return errors.NewWithContext(code, "tailscale rejected the policy file", map[string]any{
		"status": resp.StatusCode,
		"body":   strings.TrimSpace(string(body)),
	})
}
