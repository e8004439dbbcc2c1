// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"fmt"
)

type VersionSelection struct {
	Semver *VersionSelectionSemver `json:"semver,omitempty"`
}

type VersionSelectionSemver struct {
	Constraints string                             `json:"constraints,omitempty"`
	Prereleases *VersionSelectionSemverPrereleases `json:"prereleases,omitempty"`
}

type VersionSelectionSemverPrereleases struct {
	Identifiers []string `json:"identifiers,omitempty"`
}

func (p VersionSelectionSemverPrereleases) IdentifiersAsMap() map[string]struct{} {
	result := map[string]struct{}{}
	for _, name := range p.Identifiers {
		result[name] = struct{}{}
	}
	return result
}

func HighestConstrainedVersion(versions []string, config VersionSelection) (string, error) {
	switch {
	case config.Semver != nil:
		matchedVers := NewRelaxedSemversNoErr(versions).FilterPrereleases(config.Semver.Prereleases)

		if len(config.Semver.Constraints) > 0 {
			var err error
			matchedVers, err = matchedVers.FilterConstraints(config.Semver.Constraints)
			if err != nil {
				return "", fmt.Errorf("Selecting versions: %s", err)
			}
		}

		highestVersion, found := matchedVers.Highest()
		if !found {
			return "", fmt.Errorf("Expected to find at least one version, but did not")
		}
		return highestVersion, nil

	default:
		return "", fmt.Errorf("Expected version selection type to be non-empty")
	}
}
