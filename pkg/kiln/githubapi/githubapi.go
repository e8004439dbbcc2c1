// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	gogithub "github.com/google/go-github/github"
	"golang.org/x/oauth2"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
)

const (
	EnvAPIToken = "KILN_GITHUB_API_TOKEN"

	apiTokenHintMsg = "(hint: consider setting KILN_GITHUB_API_TOKEN env variable to increase API rate limits)"
)

type ClientOpts struct {
	APIToken string
	// BaseURL overrides the public API endpoint (e.g. GitHub Enterprise)
	BaseURL string
}

func NewClient(opts ClientOpts) (*gogithub.Client, error) {
	httpClient := http.DefaultClient

	if len(opts.APIToken) > 0 {
		tokenSrc := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIToken})
		httpClient = oauth2.NewClient(context.Background(), tokenSrc)
	}

	client := gogithub.NewClient(httpClient)

	if len(opts.BaseURL) > 0 {
		baseURL, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("Parsing API base URL: %s", err)
		}
		client.BaseURL = baseURL
	}

	return client, nil
}

// APIToken resolves the token from the referenced secret, falling
// back to the KILN_GITHUB_API_TOKEN env variable.
func APIToken(secretRef *ctlconf.LocalRef, refFetcher ctltool.RefFetcher) (string, error) {
	if secretRef == nil {
		return os.Getenv(EnvAPIToken), nil
	}

	secret, err := refFetcher.GetSecret(secretRef.Name)
	if err != nil {
		return "", err
	}

	var token string

	for name, val := range secret.Data {
		switch name {
		case ctlconf.SecretGithubAPIToken:
			token = string(val)
		default:
			return "", fmt.Errorf("Unknown secret field '%s' in secret '%s'",
				name, secret.Metadata.Name)
		}
	}

	return token, nil
}

// OwnerRepo splits slug into owner and repo, tolerating subpaths
// such as github/codeql-action/analyze.
func OwnerRepo(slug string) (string, string, error) {
	pieces := strings.Split(slug, "/")
	if len(pieces) < 2 || len(pieces[0]) == 0 || len(pieces[1]) == 0 {
		return "", "", fmt.Errorf("Expected slug '%s' to be in 'owner/repo' format", slug)
	}
	return pieces[0], pieces[1], nil
}

// WrapErr describes a failed API call, hinting at rate limits when
// the response indicates an authorization problem.
func WrapErr(desc string, resp *gogithub.Response, err error) error {
	if err == nil {
		return nil
	}

	if resp != nil && resp.Response != nil {
		switch resp.StatusCode {
		case 401, 403:
			return fmt.Errorf("%s: %s %s", desc, err, apiTokenHintMsg)
		}
	}

	return fmt.Errorf("%s: %s", desc, err)
}
