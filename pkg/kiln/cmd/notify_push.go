// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/cppforlife/go-cli-ui/ui"
	ctlnotify "github.com/gillouche/kiln/pkg/kiln/notify"
	"github.com/spf13/cobra"
)

type NotifyPushOptions struct {
	ui ui.UI

	Files []string

	Image  string
	Tags   []string
	Digest string
}

func NewNotifyPushOptions(ui ui.UI) *NotifyPushOptions {
	return &NotifyPushOptions{ui: ui}
}

func NewNotifyPushCmd(o *NotifyPushOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Announce a pushed image",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringSliceVarP(&o.Files, "file", "f", []string{defaultConfigName}, "Set configuration file")
	cmd.Flags().StringVarP(&o.Image, "image", "i", "", "Pushed image, e.g. nexus.gillouche.homelab/docker-hosted/base/python (required)")
	cmd.Flags().StringSliceVar(&o.Tags, "tag", nil, "Pushed tag (can be specified multiple times) (required)")
	cmd.Flags().StringVar(&o.Digest, "digest", "", "Pushed image digest (required)")
	return cmd
}

func (o *NotifyPushOptions) Run() error {
	if len(o.Image) == 0 {
		return fmt.Errorf("Expected image to be specified (use --image)")
	}
	if len(o.Tags) == 0 {
		return fmt.Errorf("Expected at least one tag to be specified (use --tag)")
	}
	if len(o.Digest) == 0 {
		return fmt.Errorf("Expected digest to be specified (use --digest)")
	}

	discord, err := notifier(o.ui, o.Files)
	if err != nil {
		return err
	}

	if !discord.Enabled() {
		o.ui.PrintLinef("Notifications are not configured (no webhook)")
		return nil
	}

	err = discord.Send(ctlnotify.PushMessage(o.Image, o.Tags, o.Digest))
	if err != nil {
		return err
	}

	o.ui.PrintLinef("Notified about '%s@%s'", o.Image, o.Digest)

	return nil
}
