// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"fmt"
	"sort"
)

type Evaluation struct {
	Findings     []string
	UsedIgnores  []string
	StaleIgnores []string
}

// Evaluate cross-checks scan results against the ignore list.
// Ignored findings are tracked so entries that no longer match
// anything surface as stale.
func Evaluate(report Report, ignores Ignores) Evaluation {
	used := map[string]struct{}{}
	var findings []string

	for _, result := range report.Results {
		target := valueOr(result.Target, "unknown")

		for _, vuln := range result.Vulnerabilities {
			if len(vuln.VulnerabilityID) == 0 {
				continue
			}
			if ignores.Contains(vuln.VulnerabilityID) {
				used[vuln.VulnerabilityID] = struct{}{}
				continue
			}
			findings = append(findings, fmt.Sprintf("[VULN] %s (%s): %s",
				vuln.VulnerabilityID, valueOr(vuln.PkgName, "unknown"), valueOr(vuln.Title, "No title")))
		}

		for _, secret := range result.Secrets {
			ruleID := valueOr(secret.RuleID, "unknown")
			if ignores.Contains(ruleID) {
				used[ruleID] = struct{}{}
				continue
			}
			if pattern, ok := ignores.MatchPath(target); ok {
				used[pattern] = struct{}{}
				continue
			}
			findings = append(findings, fmt.Sprintf("[SECRET] %s in %s: %s",
				ruleID, target, valueOr(secret.Title, "No title")))
		}
	}

	var stale []string
	for _, pattern := range ignores.patterns {
		if _, found := used[pattern]; !found {
			stale = append(stale, pattern)
		}
	}
	sort.Strings(stale)

	var usedList []string
	for pattern := range used {
		usedList = append(usedList, pattern)
	}
	sort.Strings(usedList)

	return Evaluation{Findings: findings, UsedIgnores: usedList, StaleIgnores: stale}
}

func valueOr(val, defaultVal string) string {
	if len(val) == 0 {
		return defaultVal
	}
	return val
}
