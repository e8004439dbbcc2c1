// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package upstream

import (
	"fmt"
	"regexp"
	"strings"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
)

const versionPlaceholder = "{version}"

type TagLister interface {
	Tags(ref string) ([]string, error)
}

type RegistryTagsSource struct {
	opts      ctlconf.UpstreamRegistryTags
	tagLister TagLister
}

var _ VersionSource = RegistryTagsSource{}

func NewRegistryTagsSource(opts ctlconf.UpstreamRegistryTags, tagLister TagLister) RegistryTagsSource {
	return RegistryTagsSource{opts, tagLister}
}

func (s RegistryTagsSource) Desc() string { return s.opts.Image }

func (s RegistryTagsSource) Versions() ([]string, error) {
	tags, err := s.tagLister.Tags(s.opts.Image)
	if err != nil {
		return nil, err
	}

	if len(s.opts.TagTemplate) == 0 {
		return tags, nil
	}

	tagRegexp, err := templateRegexp(s.opts.TagTemplate)
	if err != nil {
		return nil, err
	}

	var versions []string

	for _, tag := range tags {
		match := tagRegexp.FindStringSubmatch(tag)
		if match != nil {
			versions = append(versions, match[1])
		}
	}

	return versions, nil
}

func templateRegexp(template string) (*regexp.Regexp, error) {
	if !strings.Contains(template, versionPlaceholder) {
		return nil, fmt.Errorf("Expected tag template '%s' to contain '%s' placeholder",
			template, versionPlaceholder)
	}

	pattern := "^" + strings.ReplaceAll(
		regexp.QuoteMeta(template), regexp.QuoteMeta(versionPlaceholder), "(.*)") + "$"

	tagRegexp, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("Compiling tag template '%s': %s", template, err)
	}

	return tagRegexp, nil
}
