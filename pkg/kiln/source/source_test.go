// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package source_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gillouche/kiln/pkg/kiln/source"
)

func TestDiscover(t *testing.T) {
	imagesDir := t.TempDir()

	writeImageDir(t, imagesDir, "python", map[string]string{
		source.VariantsFileName: "3.11 3.12\n",
		source.DockerfileName:   "FROM python:3.12-slim\n",
	})
	writeImageDir(t, imagesDir, "ansible", map[string]string{
		source.LegacyVersionFileName: "9.1.0\n",
		source.DockerfileName:        "FROM nexus.gillouche.homelab/docker-hosted/base/python:3.12\n",
	})
	writeImageDir(t, imagesDir, "scratchpad", map[string]string{
		"notes.txt": "not an image dir\n",
	})

	err := os.WriteFile(filepath.Join(imagesDir, "stray-file"), []byte("x"), 0600)
	require.NoError(t, err)

	sources, err := source.Discover(imagesDir)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	// ReadDir sorts entries, so ansible comes first
	require.Equal(t, "ansible", sources[0].Name)
	require.Equal(t, []string{"9.1.0"}, sources[0].Variants)
	require.Equal(t, "nexus.gillouche.homelab/docker-hosted/base/python:3.12", sources[0].BaseRef)

	require.Equal(t, "python", sources[1].Name)
	require.Equal(t, []string{"3.11", "3.12"}, sources[1].Variants)
	require.Equal(t, "python:3.12-slim", sources[1].BaseRef)
}

func TestDiscoverResolvesArgRefs(t *testing.T) {
	imagesDir := t.TempDir()

	writeImageDir(t, imagesDir, "golang", map[string]string{
		source.VariantsFileName: "1.21\n",
		source.DockerfileName: `ARG GO_VERSION=1.21.5
FROM golang:${GO_VERSION}-bookworm AS build
FROM scratch
COPY --from=build /out /out
`,
	})

	sources, err := source.Discover(imagesDir)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	require.Equal(t, "golang:1.21.5-bookworm", sources[0].BaseRef)
}

func TestSourceLevel(t *testing.T) {
	internal := source.Source{
		Name:    "ansible",
		BaseRef: "nexus.gillouche.homelab/docker-hosted/base/python:3.12",
	}
	external := source.Source{
		Name:    "python",
		BaseRef: "python:3.12-slim",
	}

	require.Equal(t, 2, internal.Level("nexus.gillouche.homelab"))
	require.Equal(t, 1, external.Level("nexus.gillouche.homelab"))
	require.Equal(t, 1, internal.Level(""))
}

func TestSourceHasVariant(t *testing.T) {
	src := source.Source{Variants: []string{"3.11", "3.12"}}
	require.True(t, src.HasVariant("3.12"))
	require.False(t, src.HasVariant("3.13"))
}

func TestSourceVariantsFilePath(t *testing.T) {
	imagesDir := t.TempDir()

	writeImageDir(t, imagesDir, "python", map[string]string{
		source.VariantsFileName: "3.12\n",
	})
	writeImageDir(t, imagesDir, "ansible", map[string]string{
		source.LegacyVersionFileName: "9.1.0\n",
	})

	sources, err := source.Discover(imagesDir)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	require.Equal(t, filepath.Join(imagesDir, "ansible", source.LegacyVersionFileName),
		sources[0].VariantsFilePath())
	require.Equal(t, filepath.Join(imagesDir, "python", source.VariantsFileName),
		sources[1].VariantsFilePath())
}

func writeImageDir(t *testing.T, imagesDir, name string, files map[string]string) {
	t.Helper()

	dir := filepath.Join(imagesDir, name)
	err := os.Mkdir(dir, 0700)
	require.NoError(t, err)

	for fileName, content := range files {
		err := os.WriteFile(filepath.Join(dir, fileName), []byte(content), 0600)
		require.NoError(t, err)
	}
}
