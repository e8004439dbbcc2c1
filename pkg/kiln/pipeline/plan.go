// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlsrc "github.com/gillouche/kiln/pkg/kiln/source"
	ctlver "github.com/gillouche/kiln/pkg/kiln/versions"
)

// Job is one image variant scheduled for a pipeline run.
type Job struct {
	Conf    ctlconf.Image
	Source  ctlsrc.Source
	Variant string
	Level   int
	// TagLatest marks the highest variant of a latest-tagged image
	TagLatest bool
}

type Plan struct {
	Jobs []Job
}

type PlanOpts struct {
	ImagesDir string
	// Filters are image names, optionally pinned to one
	// variant as name=variant
	Filters []string
	// Level keeps only jobs of that build level; 0 keeps all
	Level int
}

// NewPlan enumerates buildable image variants in deterministic
// order: sources sorted by name, variants in file order.
func NewPlan(conf ctlconf.Config, opts PlanOpts) (Plan, error) {
	sources, err := ctlsrc.Discover(opts.ImagesDir)
	if err != nil {
		return Plan{}, err
	}

	filters, err := parseFilters(opts.Filters)
	if err != nil {
		return Plan{}, err
	}

	matchedFilters := map[string]struct{}{}

	var jobs []Job

	for _, src := range sources {
		level := src.Level(conf.Registry.Hostname)

		if opts.Level != 0 && level != opts.Level {
			continue
		}

		imgConf := conf.ImageConfig(src.Name)
		latestVariant := highestVariant(src.Variants)

		for _, variant := range src.Variants {
			matched, filterKey := matchesFilters(filters, src.Name, variant)
			if len(filters) > 0 && !matched {
				continue
			}
			if matched {
				matchedFilters[filterKey] = struct{}{}
			}

			jobs = append(jobs, Job{
				Conf:      imgConf,
				Source:    src,
				Variant:   variant,
				Level:     level,
				TagLatest: conf.TagLatest(imgConf) && variant == latestVariant,
			})
		}
	}

	for _, filter := range filters {
		if _, found := matchedFilters[filter.key()]; !found {
			return Plan{}, fmt.Errorf(
				"Expected filter '%s' to match at least one image variant, but did not", filter.key())
		}
	}

	return Plan{jobs}, nil
}

// MatrixJSON renders the plan in GitHub Actions matrix form.
func (p Plan) MatrixJSON() ([]byte, error) {
	type item struct {
		Image   string `json:"image"`
		Version string `json:"version"`
	}

	items := []item{}
	for _, job := range p.Jobs {
		items = append(items, item{Image: job.Source.Name, Version: job.Variant})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Image != items[j].Image {
			return items[i].Image < items[j].Image
		}
		return items[i].Version < items[j].Version
	})

	bs, err := json.Marshal(struct {
		Include []item `json:"include"`
	}{items})
	if err != nil {
		return nil, fmt.Errorf("Marshaling matrix: %s", err)
	}

	return bs, nil
}

type planFilter struct {
	Name    string
	Variant string
}

func (f planFilter) key() string {
	if len(f.Variant) > 0 {
		return f.Name + "=" + f.Variant
	}
	return f.Name
}

func parseFilters(filters []string) ([]planFilter, error) {
	var result []planFilter

	for _, filter := range filters {
		pieces := strings.SplitN(filter, "=", 2)
		if len(pieces[0]) == 0 {
			return nil, fmt.Errorf("Expected filter to be in 'name[=variant]' format, but was '%s'", filter)
		}

		parsed := planFilter{Name: pieces[0]}
		if len(pieces) == 2 {
			parsed.Variant = pieces[1]
		}

		result = append(result, parsed)
	}

	return result, nil
}

func matchesFilters(filters []planFilter, name, variant string) (bool, string) {
	for _, filter := range filters {
		if filter.Name != name {
			continue
		}
		if len(filter.Variant) > 0 && filter.Variant != variant {
			continue
		}
		return true, filter.key()
	}
	return false, ""
}

func highestVariant(variants []string) string {
	highest, found := ctlver.NewLooseVersionsNoErr(variants).Highest()
	if !found {
		return ""
	}
	return highest.Original
}
