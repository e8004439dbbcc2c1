// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/cppforlife/go-cli-ui/ui"
	ctlnotify "github.com/gillouche/kiln/pkg/kiln/notify"
	ctlrep "github.com/gillouche/kiln/pkg/kiln/report"
	"github.com/spf13/cobra"
)

type NotifyReportOptions struct {
	ui ui.UI

	Files []string

	ReportFile string
	Kind       string
	SkipEmpty  bool
}

func NewNotifyReportOptions(ui ui.UI) *NotifyReportOptions {
	return &NotifyReportOptions{ui: ui}
}

func NewNotifyReportCmd(o *NotifyReportOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Send a dependency report summary",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringSliceVarP(&o.Files, "file", "f", []string{defaultConfigName}, "Set configuration file")
	cmd.Flags().StringVar(&o.ReportFile, "report", "", "Read JSON report from file (required)")
	cmd.Flags().StringVar(&o.Kind, "kind", "", "Limit message to one report section (one of updates, warnings, success)")
	cmd.Flags().BoolVar(&o.SkipEmpty, "skip-empty", false, "Do not send anything when the report carries no updates or warnings")
	return cmd
}

func (o *NotifyReportOptions) Run() error {
	if len(o.ReportFile) == 0 {
		return fmt.Errorf("Expected report file to be specified (use --report)")
	}

	rep, err := ctlrep.NewReportFromFile(o.ReportFile)
	if err != nil {
		return err
	}

	if o.SkipEmpty && len(rep.Updates) == 0 && len(rep.Warnings) == 0 {
		o.ui.PrintLinef("Report carries no updates or warnings")
		return nil
	}

	discord, err := notifier(o.ui, o.Files)
	if err != nil {
		return err
	}

	if !discord.Enabled() {
		o.ui.PrintLinef("Notifications are not configured (no webhook)")
		return nil
	}

	msg := ctlnotify.ReportMessage(rep)

	if len(o.Kind) > 0 {
		msg, err = ctlnotify.ReportSectionMessage(rep, o.Kind)
		if err != nil {
			return err
		}
	}

	err = discord.Send(msg)
	if err != nil {
		return err
	}

	o.ui.PrintLinef("Notified with %s", rep.Summary())

	return nil
}
