// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"fmt"
	"sort"

	semver "github.com/hashicorp/go-version"
)

// LooseVersion accepts the not-quite-semver versions that upstream
// projects publish as tags (1.25, v0.14.10, 2.331.0).
type LooseVersion struct {
	version  *semver.Version
	Original string
}

func NewLooseVersion(vStr string) (LooseVersion, error) {
	ver, err := semver.NewVersion(vStr)
	if err != nil {
		return LooseVersion{}, err
	}
	return LooseVersion{ver, vStr}, nil
}

func (v LooseVersion) Major() int { return v.version.Segments()[0] }
func (v LooseVersion) Minor() int { return v.version.Segments()[1] }

func (v LooseVersion) Compare(subj LooseVersion) int {
	return v.version.Compare(subj.version)
}

type LooseVersions struct {
	versions []LooseVersion
}

func NewLooseVersionsNoErr(versions []string) LooseVersions {
	var parsedVersions []LooseVersion

	for _, vStr := range versions {
		ver, err := NewLooseVersion(vStr)
		if err == nil {
			// Ignore non-parseable versions
			parsedVersions = append(parsedVersions, ver)
		}
	}

	return LooseVersions{parsedVersions}
}

func (v LooseVersions) Filter(keep func(LooseVersion) bool) LooseVersions {
	var versions []LooseVersion

	for _, ver := range v.versions {
		if keep(ver) {
			versions = append(versions, ver)
		}
	}

	return LooseVersions{versions}
}

func (v LooseVersions) FilterConstraints(constraintList string) (LooseVersions, error) {
	constraints, err := semver.NewConstraint(constraintList)
	if err != nil {
		return LooseVersions{}, fmt.Errorf("Parsing version constraint '%s': %s", constraintList, err)
	}

	var versions []LooseVersion

	for _, ver := range v.versions {
		if constraints.Check(ver.version) {
			versions = append(versions, ver)
		}
	}

	return LooseVersions{versions}, nil
}

func (v LooseVersions) Sorted() LooseVersions {
	var versions []LooseVersion

	for _, ver := range v.versions {
		versions = append(versions, ver)
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].Compare(versions[j]) == lessThan
	})

	return LooseVersions{versions}
}

func (v LooseVersions) Highest() (LooseVersion, bool) {
	v = v.Sorted()

	if len(v.versions) == 0 {
		return LooseVersion{}, false
	}

	return v.versions[len(v.versions)-1], true
}

func (v LooseVersions) All() []string {
	var verStrs []string
	for _, ver := range v.versions {
		verStrs = append(verStrs, ver.Original)
	}
	return verStrs
}
