// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	TypeDockerDigest   = "docker_digest"
	TypeDockerUnpinned = "docker_unpinned"
	TypeActionPinned   = "action_pinned"
	TypeActionUnpinned = "action_unpinned"
	TypeVariantUpdate  = "variant_update"
)

// Report collects dependency findings across checks. Its JSON
// shape feeds both the update command and notifications.
type Report struct {
	Updates  []Entry `json:"updates"`
	Warnings []Entry `json:"warnings"`
	UpToDate []Entry `json:"up_to_date"`
}

// Entry describes one dependency occurrence. Fields beyond Type,
// File and RawRef are populated per type.
type Entry struct {
	Type   string `json:"type"`
	File   string `json:"file,omitempty"`
	RawRef string `json:"raw_ref,omitempty"`

	Image string `json:"image,omitempty"`
	Tag   string `json:"tag,omitempty"`

	Action string `json:"action,omitempty"`
	Ref    string `json:"ref,omitempty"`

	CurrentDigest string `json:"current_digest,omitempty"`
	LatestDigest  string `json:"latest_digest,omitempty"`

	CurrentSHA string `json:"current_sha,omitempty"`
	LatestSHA  string `json:"latest_sha,omitempty"`

	CurrentVersion string `json:"current_version,omitempty"`
	LatestVersion  string `json:"latest_version,omitempty"`

	Reason string `json:"reason,omitempty"`
}

func NewReport() Report {
	// Slices start non-nil so empty sections marshal as []
	return Report{Updates: []Entry{}, Warnings: []Entry{}, UpToDate: []Entry{}}
}

func NewReportFromFile(path string) (Report, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("Reading report: %s", err)
	}

	return NewReportFromBytes(bs)
}

func NewReportFromBytes(bs []byte) (Report, error) {
	var report Report

	err := json.Unmarshal(bs, &report)
	if err != nil {
		return Report{}, fmt.Errorf("Unmarshaling report: %s", err)
	}

	return report, nil
}

func (r Report) AsBytes() ([]byte, error) {
	bs, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("Marshaling report: %s", err)
	}

	return append(bs, '\n'), nil
}

func (r Report) WriteToFile(path string) error {
	bs, err := r.AsBytes()
	if err != nil {
		return err
	}

	err = os.WriteFile(path, bs, 0600)
	if err != nil {
		return fmt.Errorf("Writing report: %s", err)
	}

	return nil
}

func (r Report) Merge(other Report) Report {
	r.Updates = append(r.Updates, other.Updates...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.UpToDate = append(r.UpToDate, other.UpToDate...)
	return r
}

func (r Report) HasUpdates() bool { return len(r.Updates) > 0 }

func (r Report) Summary() string {
	return fmt.Sprintf("%d update(s), %d warning(s), %d up-to-date",
		len(r.Updates), len(r.Warnings), len(r.UpToDate))
}

// Description renders the entry as a single human readable line.
func (e Entry) Description() string {
	switch e.Type {
	case TypeDockerDigest:
		return fmt.Sprintf("`%s`: `%s:%s` %s -> %s", e.File, e.Image, e.Tag,
			truncateDigest(e.CurrentDigest), truncateDigest(e.LatestDigest))
	case TypeDockerUnpinned:
		return fmt.Sprintf("`%s`: pin `%s` to %s", e.File, e.RawRef,
			truncateDigest(e.LatestDigest))
	case TypeActionPinned:
		return fmt.Sprintf("`%s`: `%s` %s -> %s (%s)", e.File, e.Action,
			truncateSHA(e.CurrentSHA), truncateSHA(e.LatestSHA), e.Ref)
	case TypeActionUnpinned:
		return fmt.Sprintf("`%s`: pin `%s@%s` to %s", e.File, e.Action, e.Ref,
			truncateSHA(e.LatestSHA))
	case TypeVariantUpdate:
		return fmt.Sprintf("`%s`: `%s` %s -> %s", e.File, e.Image,
			e.CurrentVersion, e.LatestVersion)
	default:
		return fmt.Sprintf("`%s`: %s", e.File, e.RawRef)
	}
}

func truncateDigest(digest string) string {
	// sha256: prefix plus 12 hex chars
	if len(digest) > 19 {
		return digest[:19] + "..."
	}
	return digest
}

func truncateSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
