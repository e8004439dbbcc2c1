// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package pins

import (
	"context"
	"fmt"

	gogithub "github.com/google/go-github/github"

	ctlgh "github.com/gillouche/kiln/pkg/kiln/githubapi"
	ctlrep "github.com/gillouche/kiln/pkg/kiln/report"
)

// DigestResolver resolves an image ref to its current manifest digest.
type DigestResolver interface {
	Digest(ref string) (string, error)
}

// CommitResolver resolves a git ref within a repo to a commit SHA.
type CommitResolver interface {
	CommitSHA(slug, ref string) (string, error)
}

type GithubCommitResolver struct {
	client *gogithub.Client
}

var _ CommitResolver = GithubCommitResolver{}

func NewGithubCommitResolver(client *gogithub.Client) GithubCommitResolver {
	return GithubCommitResolver{client}
}

func (r GithubCommitResolver) CommitSHA(slug, ref string) (string, error) {
	owner, repo, err := ctlgh.OwnerRepo(slug)
	if err != nil {
		return "", err
	}

	sha, resp, err := r.client.Repositories.GetCommitSHA1(context.TODO(), owner, repo, ref, "")
	if err != nil {
		return "", ctlgh.WrapErr(fmt.Sprintf("Resolving '%s@%s'", slug, ref), resp, err)
	}

	return sha, nil
}

// CheckDockerRefs resolves each ref's tag to its current digest.
// Unpinned refs become warnings that still carry the digest so an
// update can pin them.
func CheckDockerRefs(refs []DockerRef, resolver DigestResolver) ctlrep.Report {
	rep := ctlrep.NewReport()

	for _, ref := range refs {
		entry := ctlrep.Entry{
			File:   ref.File,
			RawRef: ref.Raw,
			Image:  ref.Image,
			Tag:    ref.Tag,
		}

		if ref.Pinned() {
			entry.Type = ctlrep.TypeDockerDigest
			entry.CurrentDigest = ref.Digest
		} else {
			entry.Type = ctlrep.TypeDockerUnpinned
		}

		latest, err := resolver.Digest(ref.Image + ":" + ref.Tag)
		if err != nil {
			entry.Reason = err.Error()
			rep.Warnings = append(rep.Warnings, entry)
			continue
		}

		if !ref.Pinned() {
			entry.LatestDigest = latest
			entry.Reason = "not pinned by digest"
			rep.Warnings = append(rep.Warnings, entry)
			continue
		}

		if latest != ref.Digest {
			entry.LatestDigest = latest
			rep.Updates = append(rep.Updates, entry)
			continue
		}

		rep.UpToDate = append(rep.UpToDate, entry)
	}

	return rep
}

// CheckActionRefs resolves each action's tracking ref to its current
// commit SHA. SHA-pinned refs without a version comment cannot be
// tracked and become warnings.
func CheckActionRefs(refs []ActionRef, resolver CommitResolver) ctlrep.Report {
	rep := ctlrep.NewReport()

	for _, ref := range refs {
		entry := ctlrep.Entry{
			File:   ref.File,
			RawRef: ref.Raw,
			Action: ref.Action,
			Ref:    ref.Ref,
		}

		if !ref.Pinned() {
			entry.Type = ctlrep.TypeActionUnpinned

			latest, err := resolver.CommitSHA(ref.Action, ref.Ref)
			if err != nil {
				entry.Reason = err.Error()
			} else {
				entry.LatestSHA = latest
				entry.Reason = "not pinned to a commit SHA"
			}

			rep.Warnings = append(rep.Warnings, entry)
			continue
		}

		entry.Type = ctlrep.TypeActionPinned
		entry.CurrentSHA = ref.Ref

		if len(ref.Comment) == 0 {
			entry.Reason = "pinned without version comment"
			rep.Warnings = append(rep.Warnings, entry)
			continue
		}

		entry.Ref = ref.Comment

		latest, err := resolver.CommitSHA(ref.Action, ref.Comment)
		if err != nil {
			entry.Reason = err.Error()
			rep.Warnings = append(rep.Warnings, entry)
			continue
		}

		if latest != ref.Ref {
			entry.LatestSHA = latest
			rep.Updates = append(rep.Updates, entry)
			continue
		}

		rep.UpToDate = append(rep.UpToDate, entry)
	}

	return rep
}
