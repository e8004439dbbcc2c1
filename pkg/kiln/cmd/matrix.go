// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/cppforlife/go-cli-ui/ui"
	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlpipe "github.com/gillouche/kiln/pkg/kiln/pipeline"
	"github.com/spf13/cobra"
)

type MatrixOptions struct {
	ui ui.UI

	Files []string

	Images    []string
	Level     int
	ImagesDir string
}

func NewMatrixOptions(ui ui.UI) *MatrixOptions {
	return &MatrixOptions{ui: ui}
}

func NewMatrixCmd(o *MatrixOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Print CI build matrix of image variants as JSON",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringSliceVarP(&o.Files, "file", "f", []string{defaultConfigName}, "Set configuration file")
	cmd.Flags().StringSliceVarP(&o.Images, "image", "i", nil, "Include specific image (format: name[=variant])")
	cmd.Flags().IntVar(&o.Level, "level", 0, "Include only images of given level (0 includes all levels)")
	cmd.Flags().StringVar(&o.ImagesDir, "images-dir", "", "Set images directory (default taken from configuration)")
	return cmd
}

func (o *MatrixOptions) Run() error {
	conf, _, _, err := ctlconf.NewConfigFromFiles(o.Files)
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

	plan, err := ctlpipe.NewPlan(conf, ctlpipe.PlanOpts{
		ImagesDir: imagesDir,
		Filters:   o.Images,
		Level:     o.Level,
	})
	if err != nil {
		return err
	}

	matrixBs, err := plan.MatrixJSON()
	if err != nil {
		return err
	}

	o.ui.PrintBlock(append(matrixBs, '\n'))

	return nil
}
