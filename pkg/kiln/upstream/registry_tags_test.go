// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package upstream_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlups "github.com/gillouche/kiln/pkg/kiln/upstream"
)

type fakeTagLister struct {
	tags map[string][]string
}

func (l fakeTagLister) Tags(ref string) ([]string, error) {
	tags, found := l.tags[ref]
	if !found {
		return nil, fmt.Errorf("Unknown repository '%s'", ref)
	}
	return tags, nil
}

func TestRegistryTagsSource(t *testing.T) {
	lister := fakeTagLister{tags: map[string][]string{
		"index.docker.io/library/python": {"3.11.7", "3.12.1", "latest"},
	}}

	src := ctlups.NewRegistryTagsSource(ctlconf.UpstreamRegistryTags{
		Image: "index.docker.io/library/python",
	}, lister)

	require.Equal(t, "index.docker.io/library/python", src.Desc())

	versions, err := src.Versions()
	require.NoError(t, err)
	require.Equal(t, []string{"3.11.7", "3.12.1", "latest"}, versions)
}

func TestRegistryTagsSourceTemplate(t *testing.T) {
	lister := fakeTagLister{tags: map[string][]string{
		"index.docker.io/library/python": {
			"3.12.1-slim-bookworm",
			"3.12.1-alpine",
			"3.11.7-slim-bookworm",
			"latest",
		},
	}}

	src := ctlups.NewRegistryTagsSource(ctlconf.UpstreamRegistryTags{
		Image:       "index.docker.io/library/python",
		TagTemplate: "{version}-slim-bookworm",
	}, lister)

	versions, err := src.Versions()
	require.NoError(t, err)
	require.Equal(t, []string{"3.12.1", "3.11.7"}, versions)
}

func TestRegistryTagsSourceTemplateWithoutPlaceholder(t *testing.T) {
	src := ctlups.NewRegistryTagsSource(ctlconf.UpstreamRegistryTags{
		Image:       "index.docker.io/library/python",
		TagTemplate: "slim-bookworm",
	}, fakeTagLister{tags: map[string][]string{
		"index.docker.io/library/python": {"3.12.1"},
	}})

	_, err := src.Versions()
	require.Error(t, err)
	require.Contains(t, err.Error(), "to contain '{version}' placeholder")
}

func TestRegistryTagsSourceListFailure(t *testing.T) {
	src := ctlups.NewRegistryTagsSource(ctlconf.UpstreamRegistryTags{
		Image: "index.docker.io/library/missing",
	}, fakeTagLister{})

	_, err := src.Versions()
	require.Error(t, err)
}
