// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package upstream

import (
	"fmt"
	"regexp"
	"strings"

	ctlrep "github.com/gillouche/kiln/pkg/kiln/report"
	ctlver "github.com/gillouche/kiln/pkg/kiln/versions"
)

// VersionSource lists candidate version strings published upstream.
type VersionSource interface {
	Desc() string
	Versions() ([]string, error)
}

type CheckInput struct {
	ImageName    string
	VariantsPath string
	Variants     []string
	Selection    *ctlver.VersionSelection
}

var numericRegexp = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

// Check compares each maintained variant against upstream versions.
// Only numeric versions participate. Candidates never jump majors,
// and when one major is maintained as several variants each variant
// also holds its minor.
func Check(input CheckInput, src VersionSource) (ctlrep.Report, error) {
	rep := ctlrep.NewReport()

	rawCandidates, err := src.Versions()
	if err != nil {
		return rep, fmt.Errorf("Fetching versions from %s: %s", src.Desc(), err)
	}

	if input.Selection != nil {
		rawCandidates, err = filterSelection(rawCandidates, *input.Selection)
		if err != nil {
			return rep, err
		}
	}

	candidates := numericCandidates(rawCandidates)
	strictMinor := strictMinorMajors(input.Variants)

	for _, variant := range input.Variants {
		hasVPrefix := strings.HasPrefix(variant, "v")

		current, ok := numericVersion(variant)
		if !ok {
			continue
		}

		currentVer, err := ctlver.NewLooseVersion(current)
		if err != nil {
			continue
		}

		matching := candidates.Filter(func(ver ctlver.LooseVersion) bool {
			if ver.Major() != currentVer.Major() {
				return false
			}
			if strictMinor[currentVer.Major()] && ver.Minor() != currentVer.Minor() {
				return false
			}
			return true
		})

		entry := ctlrep.Entry{
			Type:           ctlrep.TypeVariantUpdate,
			File:           input.VariantsPath,
			Image:          input.ImageName,
			CurrentVersion: variant,
		}

		latest, found := matching.Highest()
		if found && latest.Compare(currentVer) > 0 {
			entry.LatestVersion = restorePrefix(latest.Original, hasVPrefix)
			rep.Updates = append(rep.Updates, entry)
			continue
		}

		rep.UpToDate = append(rep.UpToDate, entry)
	}

	return rep, nil
}

func filterSelection(candidates []string, selection ctlver.VersionSelection) ([]string, error) {
	if selection.Semver == nil {
		return candidates, nil
	}

	matchedVers := ctlver.NewRelaxedSemversNoErr(candidates).FilterPrereleases(selection.Semver.Prereleases)

	if len(selection.Semver.Constraints) > 0 {
		var err error

		matchedVers, err = matchedVers.FilterConstraints(selection.Semver.Constraints)
		if err != nil {
			return nil, fmt.Errorf("Selecting versions: %s", err)
		}
	}

	return matchedVers.All(), nil
}

func numericCandidates(candidates []string) ctlver.LooseVersions {
	var numeric []string
	seen := map[string]struct{}{}

	for _, candidate := range candidates {
		version, ok := numericVersion(candidate)
		if !ok {
			continue
		}
		if _, found := seen[version]; found {
			continue
		}
		seen[version] = struct{}{}
		numeric = append(numeric, version)
	}

	return ctlver.NewLooseVersionsNoErr(numeric)
}

func numericVersion(candidate string) (string, bool) {
	version := strings.TrimPrefix(candidate, "v")
	if !numericRegexp.MatchString(version) {
		return "", false
	}
	return version, true
}

// strictMinorMajors marks majors that appear as more than one minor
// among maintained variants (e.g. 3.12 and 3.13 both kept alive).
func strictMinorMajors(variants []string) map[int]bool {
	minors := map[int]map[int]struct{}{}

	for _, variant := range variants {
		version, ok := numericVersion(variant)
		if !ok {
			continue
		}

		ver, err := ctlver.NewLooseVersion(version)
		if err != nil {
			continue
		}

		if minors[ver.Major()] == nil {
			minors[ver.Major()] = map[int]struct{}{}
		}
		minors[ver.Major()][ver.Minor()] = struct{}{}
	}

	strict := map[int]bool{}
	for major, majorMinors := range minors {
		strict[major] = len(majorMinors) > 1
	}

	return strict
}

func restorePrefix(version string, hasVPrefix bool) string {
	if hasVPrefix {
		return "v" + version
	}
	return version
}
