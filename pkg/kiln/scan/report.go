// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"encoding/json"
	"fmt"
	"os"
)

// Report is the subset of trivy's JSON report kiln evaluates.
type Report struct {
	Results []Result `json:"Results"`
}

type Result struct {
	Target          string          `json:"Target"`
	Vulnerabilities []Vulnerability `json:"Vulnerabilities"`
	Secrets         []SecretFinding `json:"Secrets"`
}

type Vulnerability struct {
	VulnerabilityID string `json:"VulnerabilityID"`
	PkgName         string `json:"PkgName"`
	Title           string `json:"Title"`
	Severity        string `json:"Severity"`
}

type SecretFinding struct {
	RuleID   string `json:"RuleID"`
	Title    string `json:"Title"`
	Severity string `json:"Severity"`
}

func NewReportFromFile(path string) (Report, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("Reading scan report: %s", err)
	}

	return NewReportFromBytes(bs)
}

func NewReportFromBytes(bs []byte) (Report, error) {
	var report Report

	err := json.Unmarshal(bs, &report)
	if err != nil {
		return Report{}, fmt.Errorf("Unmarshaling scan report: %s", err)
	}

	return report, nil
}
