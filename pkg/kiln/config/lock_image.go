// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package config

type LockImage struct {
	Name    string `json:"name"`
	Variant string `json:"variant"`

	// Image is the pushed ref in digest form, e.g. host/repo/name@sha256:...
	Image  string `json:"image,omitempty"`
	Digest string `json:"digest,omitempty"`

	Tags      []string `json:"tags,omitempty"`
	Platforms []string `json:"platforms,omitempty"`

	Signed bool `json:"signed,omitempty"`
}
