// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/cppforlife/go-cli-ui/ui"
	uitable "github.com/cppforlife/go-cli-ui/ui/table"
	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlgh "github.com/gillouche/kiln/pkg/kiln/githubapi"
	ctlreg "github.com/gillouche/kiln/pkg/kiln/registry"
	ctlrep "github.com/gillouche/kiln/pkg/kiln/report"
	ctlsrc "github.com/gillouche/kiln/pkg/kiln/source"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
	ctlups "github.com/gillouche/kiln/pkg/kiln/upstream"
	ctlver "github.com/gillouche/kiln/pkg/kiln/versions"
	"github.com/spf13/cobra"
)

type CheckUpstreamOptions struct {
	ui ui.UI

	Files []string

	Images    []string
	ImagesDir string
	Report    string
}

func NewCheckUpstreamOptions(ui ui.UI) *CheckUpstreamOptions {
	return &CheckUpstreamOptions{ui: ui}
}

func NewCheckUpstreamCmd(o *CheckUpstreamOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upstream",
		Short: "Check maintained image variants against upstream versions",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringSliceVarP(&o.Files, "file", "f", []string{defaultConfigName}, "Set configuration file")
	cmd.Flags().StringSliceVarP(&o.Images, "image", "i", nil, "Check specific image")
	cmd.Flags().StringVar(&o.ImagesDir, "images-dir", "", "Set images directory (default taken from configuration)")
	cmd.Flags().StringVar(&o.Report, "report", "", "Write JSON report to file")
	return cmd
}

func (o *CheckUpstreamOptions) Run() error {
	conf, secrets, configMaps, err := ctlconf.NewConfigFromFiles(o.Files)
	if err != nil {
		return configReadHintErrMsg(err, o.Files)
	}

	refFetcher := ctltool.NewNamedRefFetcher(secrets, configMaps)

	registry, err := ctlreg.NewRegistry(conf.Registry.Hostname, secrets, conf.Registry.Insecure)
	if err != nil {
		return err
	}

	imagesDir := conf.ImagesDirOrDefault()
	if len(o.ImagesDir) > 0 {
		imagesDir = o.ImagesDir
	}

	imagesDir, err = expandUserHomeDir(imagesDir)
	if err != nil {
		return err
	}

	sources, err := ctlsrc.Discover(imagesDir)
	if err != nil {
		return err
	}

	rep := ctlrep.NewReport()

	for _, src := range sources {
		if len(o.Images) > 0 && !containsStr(o.Images, src.Name) {
			continue
		}

		imgConf := conf.ImageConfig(src.Name)
		if imgConf.Upstream == nil {
			continue
		}

		variantsPath := filepath.ToSlash(src.VariantsFilePath())

		versionSrc, err := o.versionSource(*imgConf.Upstream, registry, refFetcher)
		if err != nil {
			return fmt.Errorf("Image '%s': %s", src.Name, err)
		}

		o.ui.PrintLinef("Checking '%s' against %s", src.Name, versionSrc.Desc())

		imgRep, err := ctlups.Check(ctlups.CheckInput{
			ImageName:    src.Name,
			VariantsPath: variantsPath,
			Variants:     src.Variants,
			Selection:    upstreamSelection(*imgConf.Upstream),
		}, versionSrc)
		if err != nil {
			// A single unreachable upstream should not hide
			// results for remaining images
			rep.Warnings = append(rep.Warnings, ctlrep.Entry{
				Type:   ctlrep.TypeVariantUpdate,
				File:   variantsPath,
				Image:  src.Name,
				Reason: err.Error(),
			})
			continue
		}

		rep = rep.Merge(imgRep)
	}

	o.printReport(rep)

	if len(o.Report) > 0 {
		err := rep.WriteToFile(o.Report)
		if err != nil {
			return err
		}

		o.ui.PrintLinef("Report saved to '%s'", o.Report)
	}

	return nil
}

func (o *CheckUpstreamOptions) versionSource(upstreamConf ctlconf.Upstream,
	registry ctlreg.Registry, refFetcher ctltool.RefFetcher) (ctlups.VersionSource, error) {

	switch {
	case upstreamConf.GithubRelease != nil:
		token, err := ctlgh.APIToken(upstreamConf.GithubRelease.SecretRef, refFetcher)
		if err != nil {
			return nil, err
		}

		client, err := ctlgh.NewClient(ctlgh.ClientOpts{APIToken: token})
		if err != nil {
			return nil, err
		}

		return ctlups.NewGithubReleasesSource(*upstreamConf.GithubRelease, client), nil

	case upstreamConf.RegistryTags != nil:
		return ctlups.NewRegistryTagsSource(*upstreamConf.RegistryTags, registry), nil

	default:
		return nil, fmt.Errorf("Expected upstream type to be specified")
	}
}

func (o *CheckUpstreamOptions) printReport(rep ctlrep.Report) {
	table := uitable.Table{
		Title:           "Updates",
		Content:         "updates",
		FillFirstColumn: true,

		Header: []uitable.Header{
			uitable.NewHeader("Image"),
			uitable.NewHeader("Variant"),
			uitable.NewHeader("Latest"),
			uitable.NewHeader("File"),
		},

		SortBy: []uitable.ColumnSort{
			{Column: 0, Asc: true},
			{Column: 1, Asc: true},
		},
	}

	for _, entry := range rep.Updates {
		table.Rows = append(table.Rows, []uitable.Value{
			uitable.NewValueString(entry.Image),
			uitable.NewValueString(entry.CurrentVersion),
			uitable.NewValueString(entry.LatestVersion),
			uitable.NewValueString(entry.File),
		})
	}

	o.ui.PrintTable(table)

	for _, entry := range rep.Warnings {
		o.ui.PrintLinef("Warning: %s: %s", entry.Image, entry.Reason)
	}

	o.ui.PrintLinef("Checked: %s", rep.Summary())
}

func upstreamSelection(upstreamConf ctlconf.Upstream) *ctlver.VersionSelection {
	switch {
	case upstreamConf.GithubRelease != nil:
		return upstreamConf.GithubRelease.VersionSelection
	case upstreamConf.RegistryTags != nil:
		return upstreamConf.RegistryTags.VersionSelection
	default:
		return nil
	}
}

func containsStr(haystack []string, needle string) bool {
	for _, val := range haystack {
		if val == needle {
			return true
		}
	}
	return false
}
