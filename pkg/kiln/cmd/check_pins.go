// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/cppforlife/go-cli-ui/ui"
	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlgh "github.com/gillouche/kiln/pkg/kiln/githubapi"
	ctlpins "github.com/gillouche/kiln/pkg/kiln/pins"
	ctlreg "github.com/gillouche/kiln/pkg/kiln/registry"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
	"github.com/spf13/cobra"
)

type CheckPinsOptions struct {
	ui ui.UI

	Files []string

	Root   string
	Report string
}

func NewCheckPinsOptions(ui ui.UI) *CheckPinsOptions {
	return &CheckPinsOptions{ui: ui}
}

func NewCheckPinsCmd(o *CheckPinsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pins",
		Short: "Check Dockerfile digests and workflow action SHAs against their refs",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringSliceVarP(&o.Files, "file", "f", []string{defaultConfigName}, "Set configuration file")
	cmd.Flags().StringVar(&o.Root, "root", ".", "Set repository root to scan")
	cmd.Flags().StringVar(&o.Report, "report", "", "Write JSON report to file")
	return cmd
}

func (o *CheckPinsOptions) Run() error {
	conf, secrets, configMaps, err := ctlconf.NewConfigFromFiles(o.Files)
	if err != nil {
		return configReadHintErrMsg(err, o.Files)
	}

	refFetcher := ctltool.NewNamedRefFetcher(secrets, configMaps)

	registry, err := ctlreg.NewRegistry(conf.Registry.Hostname, secrets, conf.Registry.Insecure)
	if err != nil {
		return err
	}

	root, err := expandUserHomeDir(o.Root)
	if err != nil {
		return err
	}

	dockerRefs, err := ctlpins.FindDockerRefs(root)
	if err != nil {
		return err
	}

	actionRefs, err := ctlpins.FindActionRefs(root)
	if err != nil {
		return err
	}

	o.ui.PrintLinef("Checking %d Dockerfile ref(s) and %d workflow action ref(s)",
		len(dockerRefs), len(actionRefs))

	token, err := ctlgh.APIToken(nil, refFetcher)
	if err != nil {
		return err
	}

	client, err := ctlgh.NewClient(ctlgh.ClientOpts{APIToken: token})
	if err != nil {
		return err
	}

	rep := ctlpins.CheckDockerRefs(dockerRefs, registry)
	rep = rep.Merge(ctlpins.CheckActionRefs(actionRefs, ctlpins.NewGithubCommitResolver(client)))

	for _, entry := range rep.Updates {
		o.ui.PrintLinef("Update: %s", entry.Description())
	}

	for _, entry := range rep.Warnings {
		o.ui.PrintLinef("Warning: %s: %s", entry.File, entry.Reason)
	}

	o.ui.PrintLinef("Checked: %s", rep.Summary())

	if len(o.Report) > 0 {
		err := rep.WriteToFile(o.Report)
		if err != nil {
			return err
		}

		o.ui.PrintLinef("Report saved to '%s'", o.Report)
	}

	return nil
}
