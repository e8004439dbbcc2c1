// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package upstream

import (
	"context"
	"fmt"
	"strings"

	gogithub "github.com/google/go-github/github"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlgh "github.com/gillouche/kiln/pkg/kiln/githubapi"
)

type GithubReleasesSource struct {
	opts   ctlconf.UpstreamGithubRelease
	client *gogithub.Client
}

var _ VersionSource = GithubReleasesSource{}

func NewGithubReleasesSource(opts ctlconf.UpstreamGithubRelease, client *gogithub.Client) GithubReleasesSource {
	return GithubReleasesSource{opts, client}
}

func (s GithubReleasesSource) Desc() string { return "github.com/" + s.opts.Slug }

func (s GithubReleasesSource) Versions() ([]string, error) {
	owner, repo, err := ctlgh.OwnerRepo(s.opts.Slug)
	if err != nil {
		return nil, err
	}

	// Latest 100 releases cover all maintained majors
	listOpts := &gogithub.ListOptions{PerPage: 100}

	releases, resp, err := s.client.Repositories.ListReleases(context.TODO(), owner, repo, listOpts)
	if err != nil {
		return nil, ctlgh.WrapErr(fmt.Sprintf("Listing releases for '%s'", s.opts.Slug), resp, err)
	}

	var versions []string

	for _, release := range releases {
		if release.GetDraft() || release.GetPrerelease() {
			continue
		}

		tagName := release.GetTagName()
		if len(tagName) == 0 {
			continue
		}

		versions = append(versions, strings.TrimPrefix(tagName, s.opts.PrefixOrDefault()))
	}

	return versions, nil
}
