// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package pins_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	ctlpins "github.com/gillouche/kiln/pkg/kiln/pins"
)

func TestFindDockerRefs(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "images/python/Dockerfile", `
ARG PY_VERSION=3.12
FROM python:3.12-slim@sha256:abc AS build
FROM base:${PY_VERSION}
FROM build
FROM scratch
COPY --from=build /out /out
`)
	writeFile(t, root, "images/golang/Dockerfile", "FROM golang:1.21-bookworm\n")

	refs, err := ctlpins.FindDockerRefs(root)
	require.NoError(t, err)

	// Stage refs, scratch and unresolved variables are not pinnable
	require.Equal(t, []ctlpins.DockerRef{
		{
			File:   "images/golang/Dockerfile",
			Raw:    "golang:1.21-bookworm",
			Image:  "golang",
			Tag:    "1.21-bookworm",
			Digest: "",
		},
		{
			File:   "images/python/Dockerfile",
			Raw:    "python:3.12-slim@sha256:abc",
			Image:  "python",
			Tag:    "3.12-slim",
			Digest: "sha256:abc",
		},
	}, refs)

	require.True(t, refs[1].Pinned())
	require.False(t, refs[0].Pinned())
}

func TestFindActionRefs(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, ".github/workflows/ci.yml", `
jobs:
  build:
    steps:
      - uses: actions/checkout@0123456789abcdef0123456789abcdef01234567 # v4.1.1
      - uses: actions/setup-go@v5
      - uses: ./local/action
      - uses: docker://alpine:3.19
      - name: Build
        run: make build
`)
	writeFile(t, root, ".github/workflows/release.yaml", `
jobs:
  release:
    steps:
      - uses: "goreleaser/goreleaser-action@v5"
`)

	refs, err := ctlpins.FindActionRefs(root)
	require.NoError(t, err)

	require.Equal(t, []ctlpins.ActionRef{
		{
			File:    ".github/workflows/ci.yml",
			Raw:     "actions/checkout@0123456789abcdef0123456789abcdef01234567",
			Action:  "actions/checkout",
			Ref:     "0123456789abcdef0123456789abcdef01234567",
			Comment: "v4.1.1",
		},
		{
			File:   ".github/workflows/ci.yml",
			Raw:    "actions/setup-go@v5",
			Action: "actions/setup-go",
			Ref:    "v5",
		},
		{
			File:   ".github/workflows/release.yaml",
			Raw:    "goreleaser/goreleaser-action@v5",
			Action: "goreleaser/goreleaser-action",
			Ref:    "v5",
		},
	}, refs)

	require.True(t, refs[0].Pinned())
	require.False(t, refs[1].Pinned())
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(relPath))
	err := os.MkdirAll(filepath.Dir(path), 0700)
	require.NoError(t, err)
	err = os.WriteFile(path, []byte(content), 0600)
	require.NoError(t, err)
}
