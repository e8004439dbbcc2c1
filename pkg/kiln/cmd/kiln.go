// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"io"

	"github.com/cppforlife/cobrautil"
	"github.com/cppforlife/go-cli-ui/ui"
	"github.com/gillouche/kiln/pkg/kiln/version"
	"github.com/spf13/cobra"
)

type KilnOptions struct {
	ui *ui.ConfUI

	UIFlags UIFlags
}

func NewKilnOptions(ui *ui.ConfUI) *KilnOptions {
	return &KilnOptions{ui: ui}
}

func NewDefaultKilnCmd(ui *ui.ConfUI) *cobra.Command {
	return NewKilnCmd(NewKilnOptions(ui))
}

func NewKilnCmd(o *KilnOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "kiln",
		Short:             "kiln builds, scans, signs and publishes hardened container images",
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		Version:           version.Version,
	}

	// TODO bash completion
	cmd.SetOutput(uiBlockWriter{o.ui}) // setting output for cmd.Help()

	o.UIFlags.Set(cmd)

	cmd.AddCommand(NewBuildCmd(NewBuildOptions(o.ui)))
	cmd.AddCommand(NewMatrixCmd(NewMatrixOptions(o.ui)))
	cmd.AddCommand(NewScanCmd(NewScanOptions(o.ui)))
	cmd.AddCommand(NewUpdateCmd(NewUpdateOptions(o.ui)))
	cmd.AddCommand(NewVersionCmd(NewVersionOptions(o.ui)))

	checkCmd := NewCheckCmd()
	checkCmd.AddCommand(NewCheckUpstreamCmd(NewCheckUpstreamOptions(o.ui)))
	checkCmd.AddCommand(NewCheckPinsCmd(NewCheckPinsOptions(o.ui)))
	cmd.AddCommand(checkCmd)

	notifyCmd := NewNotifyCmd()
	notifyCmd.AddCommand(NewNotifyPushCmd(NewNotifyPushOptions(o.ui)))
	notifyCmd.AddCommand(NewNotifyReportCmd(NewNotifyReportOptions(o.ui)))
	cmd.AddCommand(notifyCmd)

	toolsCmd := NewToolsCmd()
	toolsCmd.AddCommand(NewSortSemverCmd(NewSortSemverOptions(o.ui)))
	toolsCmd.AddCommand(NewSortVersionsCmd(NewSortVersionsOptions(o.ui)))
	toolsCmd.AddCommand(NewResolveDigestCmd(NewResolveDigestOptions(o.ui)))
	cmd.AddCommand(toolsCmd)

	// Last one runs first
	configureUI := func(*cobra.Command, []string) error {
		o.UIFlags.ConfigureUI(o.ui)
		return nil
	}

	cobrautil.VisitCommands(
		cmd,
		cobrautil.ReconfigureCmdWithSubcmd,
		cobrautil.DisallowExtraArgs,
		cobrautil.WrapRunEForCmd(cobrautil.ResolveFlagsForCmd),
		cobrautil.WrapRunEForCmd(configureUI),
	)

	return cmd
}

type uiBlockWriter struct {
	ui ui.UI
}

var _ io.Writer = uiBlockWriter{}

func (w uiBlockWriter) Write(p []byte) (n int, err error) {
	w.ui.PrintBlock(p)
	return len(p), nil
}
