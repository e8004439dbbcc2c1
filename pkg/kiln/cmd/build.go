// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/cppforlife/go-cli-ui/ui"
	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlpipe "github.com/gillouche/kiln/pkg/kiln/pipeline"
	ctlreg "github.com/gillouche/kiln/pkg/kiln/registry"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
	"github.com/spf13/cobra"
)

const (
	defaultConfigName = "kiln.yml"
	defaultLockName   = "kiln.lock.yml"
)

type BuildOptions struct {
	ui ui.UI

	Files    []string
	LockFile string

	Images       []string
	Level        int
	ImagesDir    string
	ArtifactsDir string

	Push      bool
	Scan      bool
	Sign      bool
	SmokeTest bool
	Notify    bool
}

func NewBuildOptions(ui ui.UI) *BuildOptions {
	return &BuildOptions{ui: ui}
}

func NewBuildCmd(o *BuildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build image variants, then scan, push and sign them",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringSliceVarP(&o.Files, "file", "f", []string{defaultConfigName}, "Set configuration file")
	cmd.Flags().StringVar(&o.LockFile, "lock-file", defaultLockName, "Set lock file")

	cmd.Flags().StringSliceVarP(&o.Images, "image", "i", nil, "Build specific image (format: name[=variant])")
	cmd.Flags().IntVar(&o.Level, "level", 0, "Build only images of given level (0 builds all levels)")
	cmd.Flags().StringVar(&o.ImagesDir, "images-dir", "", "Set images directory (default taken from configuration)")
	cmd.Flags().StringVar(&o.ArtifactsDir, "artifacts-dir", "", "Export build artifacts (scan reports, build metadata) into directory")

	cmd.Flags().BoolVar(&o.Push, "push", false, "Push built images to the registry")
	cmd.Flags().BoolVar(&o.Scan, "scan", true, "Scan built images for vulnerabilities and secrets")
	cmd.Flags().BoolVar(&o.Sign, "sign", false, "Sign pushed images by digest")
	cmd.Flags().BoolVar(&o.SmokeTest, "smoke-test", true, "Run configured smoke tests against built images")
	cmd.Flags().BoolVar(&o.Notify, "notify", false, "Send a notification for each pushed image")
	return cmd
}

func (o *BuildOptions) Run() error {
	conf, secrets, configMaps, err := ctlconf.NewConfigFromFiles(o.Files)
	if err != nil {
		return configReadHintErrMsg(err, o.Files)
	}

	if o.Sign && !o.Push {
		return fmt.Errorf("Expected --push to be enabled when --sign is requested")
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

	artifactsDir, err := expandUserHomeDir(o.ArtifactsDir)
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

	if len(plan.Jobs) == 0 {
		o.ui.PrintLinef("No image variants matched")
		return nil
	}

	pipeline, err := ctlpipe.NewPipeline(conf, registry, o.ui, refFetcher, ctltool.OSTempArea{})
	if err != nil {
		return err
	}

	newLockConfig, err := pipeline.Run(plan, ctlpipe.RunOpts{
		Push:         o.Push,
		Scan:         o.Scan,
		Sign:         o.Sign,
		SmokeTest:    o.SmokeTest,
		Notify:       o.Notify,
		ArtifactsDir: artifactsDir,
	})
	if err != nil {
		return err
	}

	if !o.Push {
		o.ui.PrintLinef("Lock config is not saved to '%s' (images were not pushed)", o.LockFile)
		return nil
	}

	// Update only selected images in lock file
	if len(o.Images) > 0 || o.Level != 0 {
		if ctlconf.LockFileExists(o.LockFile) {
			existingLockConfig, err := ctlconf.NewLockConfigFromFile(o.LockFile)
			if err != nil {
				return err
			}

			existingLockConfig.Merge(newLockConfig)
			newLockConfig = existingLockConfig
		}
	}

	newLockConfigBs, err := newLockConfig.AsBytes()
	if err != nil {
		return err
	}

	o.ui.PrintLinef("Lock config")
	o.ui.PrintBlock(newLockConfigBs)

	return newLockConfig.WriteToFile(o.LockFile)
}

func configReadHintErrMsg(origErr error, paths []string) error {
	if len(paths) != 1 {
		return origErr
	}
	path := paths[0]

	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) && path == defaultConfigName {
			hintMsg := "(hint: Did you name your configuration file something different than 'kiln.yml', e.g. wrong extension?)"
			return fmt.Errorf("%s %s", origErr, hintMsg)
		}
	}
	return origErr
}
