// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package pins_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	ctlpins "github.com/gillouche/kiln/pkg/kiln/pins"
	ctlrep "github.com/gillouche/kiln/pkg/kiln/report"
)

type fakeDigestResolver struct {
	digests map[string]string
}

func (r fakeDigestResolver) Digest(ref string) (string, error) {
	digest, found := r.digests[ref]
	if !found {
		return "", fmt.Errorf("Unknown ref '%s'", ref)
	}
	return digest, nil
}

type fakeCommitResolver struct {
	shas map[string]string
}

func (r fakeCommitResolver) CommitSHA(slug, ref string) (string, error) {
	sha, found := r.shas[slug+"@"+ref]
	if !found {
		return "", fmt.Errorf("Unknown ref '%s@%s'", slug, ref)
	}
	return sha, nil
}

func TestCheckDockerRefs(t *testing.T) {
	resolver := fakeDigestResolver{digests: map[string]string{
		"python:3.12-slim":     "sha256:new",
		"golang:1.21-bookworm": "sha256:same",
	}}

	rep := ctlpins.CheckDockerRefs([]ctlpins.DockerRef{
		{File: "a/Dockerfile", Raw: "python:3.12-slim@sha256:old", Image: "python", Tag: "3.12-slim", Digest: "sha256:old"},
		{File: "b/Dockerfile", Raw: "golang:1.21-bookworm@sha256:same", Image: "golang", Tag: "1.21-bookworm", Digest: "sha256:same"},
		{File: "c/Dockerfile", Raw: "python:3.12-slim", Image: "python", Tag: "3.12-slim"},
		{File: "d/Dockerfile", Raw: "missing:1.0", Image: "missing", Tag: "1.0", Digest: "sha256:old"},
	}, resolver)

	require.Len(t, rep.Updates, 1)
	require.Equal(t, ctlrep.TypeDockerDigest, rep.Updates[0].Type)
	require.Equal(t, "sha256:old", rep.Updates[0].CurrentDigest)
	require.Equal(t, "sha256:new", rep.Updates[0].LatestDigest)

	require.Len(t, rep.UpToDate, 1)
	require.Equal(t, "b/Dockerfile", rep.UpToDate[0].File)

	require.Len(t, rep.Warnings, 2)

	unpinned := rep.Warnings[0]
	require.Equal(t, ctlrep.TypeDockerUnpinned, unpinned.Type)
	require.Equal(t, "not pinned by digest", unpinned.Reason)
	// Digest still resolves so an update can pin the ref
	require.Equal(t, "sha256:new", unpinned.LatestDigest)

	unresolvable := rep.Warnings[1]
	require.Equal(t, "d/Dockerfile", unresolvable.File)
	require.Contains(t, unresolvable.Reason, "Unknown ref")
}

func TestCheckActionRefs(t *testing.T) {
	resolver := fakeCommitResolver{shas: map[string]string{
		"actions/checkout@v4.1.1": "fedcba9876543210fedcba9876543210fedcba98",
		"actions/cache@v4.0.0":    "0123456789abcdef0123456789abcdef01234567",
		"actions/setup-go@v5":     "abcdefabcdefabcdefabcdefabcdefabcdefabcd",
	}}

	rep := ctlpins.CheckActionRefs([]ctlpins.ActionRef{
		{
			File:    "ci.yml",
			Action:  "actions/checkout",
			Ref:     "0123456789abcdef0123456789abcdef01234567",
			Comment: "v4.1.1",
		},
		{
			File:    "ci.yml",
			Action:  "actions/cache",
			Ref:     "0123456789abcdef0123456789abcdef01234567",
			Comment: "v4.0.0",
		},
		{
			File:   "ci.yml",
			Action: "actions/setup-go",
			Ref:    "v5",
		},
		{
			File:   "ci.yml",
			Action: "actions/upload-artifact",
			Ref:    "0123456789abcdef0123456789abcdef01234567",
		},
	}, resolver)

	require.Len(t, rep.Updates, 1)
	update := rep.Updates[0]
	require.Equal(t, ctlrep.TypeActionPinned, update.Type)
	require.Equal(t, "actions/checkout", update.Action)
	require.Equal(t, "v4.1.1", update.Ref)
	require.Equal(t, "0123456789abcdef0123456789abcdef01234567", update.CurrentSHA)
	require.Equal(t, "fedcba9876543210fedcba9876543210fedcba98", update.LatestSHA)

	require.Len(t, rep.UpToDate, 1)
	require.Equal(t, "actions/cache", rep.UpToDate[0].Action)

	require.Len(t, rep.Warnings, 2)

	unpinned := rep.Warnings[0]
	require.Equal(t, ctlrep.TypeActionUnpinned, unpinned.Type)
	require.Equal(t, "not pinned to a commit SHA", unpinned.Reason)
	require.Equal(t, "abcdefabcdefabcdefabcdefabcdefabcdefabcd", unpinned.LatestSHA)

	uncommented := rep.Warnings[1]
	require.Equal(t, "pinned without version comment", uncommented.Reason)
}
