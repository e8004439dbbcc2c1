// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"context"
	"fmt"
	"strings"

	gogithub "github.com/google/go-github/github"

	ctlgh "github.com/gillouche/kiln/pkg/kiln/githubapi"
	ctlrep "github.com/gillouche/kiln/pkg/kiln/report"
)

type PullRequestOpts struct {
	Slug   string
	Branch string
	Base   string
	Title  string
}

type PullRequests struct {
	client *gogithub.Client
}

func NewPullRequests(client *gogithub.Client) PullRequests {
	return PullRequests{client}
}

// Ensure opens a pull request for branch unless one is already open,
// returning its URL either way.
func (p PullRequests) Ensure(opts PullRequestOpts, body string) (string, error) {
	owner, repo, err := ctlgh.OwnerRepo(opts.Slug)
	if err != nil {
		return "", err
	}

	listOpts := &gogithub.PullRequestListOptions{
		State: "open",
		Head:  owner + ":" + opts.Branch,
		Base:  opts.Base,
	}

	prs, resp, err := p.client.PullRequests.List(context.TODO(), owner, repo, listOpts)
	if err != nil {
		return "", ctlgh.WrapErr(fmt.Sprintf("Listing pull requests for '%s'", opts.Slug), resp, err)
	}

	if len(prs) > 0 {
		return prs[0].GetHTMLURL(), nil
	}

	newPR := &gogithub.NewPullRequest{
		Title: gogithub.String(opts.Title),
		Head:  gogithub.String(opts.Branch),
		Base:  gogithub.String(opts.Base),
		Body:  gogithub.String(body),
	}

	pr, resp, err := p.client.PullRequests.Create(context.TODO(), owner, repo, newPR)
	if err != nil {
		return "", ctlgh.WrapErr(fmt.Sprintf("Creating pull request for '%s'", opts.Slug), resp, err)
	}

	return pr.GetHTMLURL(), nil
}

// PRBody renders entries as a reviewable pull request description.
func PRBody(entries []ctlrep.Entry) string {
	var b strings.Builder

	b.WriteString("## Summary\n\n")
	b.WriteString("Automated dependency pin updates.\n\n")
	b.WriteString("### Updated dependencies\n\n")

	for _, entry := range entries {
		b.WriteString("- " + entry.Description() + "\n")
	}

	b.WriteString("\n## Test plan\n\n")
	b.WriteString("- CI rebuilds the affected images\n")
	b.WriteString("- Vulnerability scan and smoke tests gate the push\n")

	return b.String()
}
