// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/cppforlife/go-cli-ui/ui"
	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlreg "github.com/gillouche/kiln/pkg/kiln/registry"
	"github.com/spf13/cobra"
)

type ResolveDigestOptions struct {
	ui ui.UI

	Files []string

	ImageRef string
}

func NewResolveDigestOptions(ui ui.UI) *ResolveDigestOptions {
	return &ResolveDigestOptions{ui: ui}
}

func NewResolveDigestCmd(o *ResolveDigestOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve-digest",
		Short: "Resolve an image ref to its digest form",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringSliceVarP(&o.Files, "file", "f", []string{defaultConfigName}, "Set configuration file")
	cmd.Flags().StringVar(&o.ImageRef, "image-ref", "", "Image ref to resolve (required)")
	return cmd
}

func (o *ResolveDigestOptions) Run() error {
	if len(o.ImageRef) == 0 {
		return fmt.Errorf("Expected image ref to be specified (use --image-ref)")
	}

	conf, secrets, _, err := ctlconf.NewConfigFromFiles(o.Files)
	if err != nil {
		return configReadHintErrMsg(err, o.Files)
	}

	registry, err := ctlreg.NewRegistry(conf.Registry.Hostname, secrets, conf.Registry.Insecure)
	if err != nil {
		return err
	}

	digest, err := registry.Digest(o.ImageRef)
	if err != nil {
		return err
	}

	o.ui.PrintBlock([]byte(fmt.Sprintf("%s\n", digest)))

	return nil
}
