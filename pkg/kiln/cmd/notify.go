// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/cppforlife/go-cli-ui/ui"
	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlnotify "github.com/gillouche/kiln/pkg/kiln/notify"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
	"github.com/spf13/cobra"
)

func NewNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notify",
		Aliases: []string{"n"},
		Short:   "Send notifications",
	}
	return cmd
}

func notifier(ui ui.UI, files []string) (ctlnotify.Discord, error) {
	conf, secrets, configMaps, err := ctlconf.NewConfigFromFiles(files)
	if err != nil {
		return ctlnotify.Discord{}, err
	}

	var discordConf *ctlconf.NotifyDiscord
	if conf.Notify != nil {
		discordConf = conf.Notify.Discord
	}

	return ctlnotify.NewDiscord(discordConf, ctltool.NewNamedRefFetcher(secrets, configMaps))
}
