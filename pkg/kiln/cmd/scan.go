// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cppforlife/go-cli-ui/ui"
	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlpipe "github.com/gillouche/kiln/pkg/kiln/pipeline"
	ctlscan "github.com/gillouche/kiln/pkg/kiln/scan"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
	"github.com/spf13/cobra"
)

type ScanOptions struct {
	ui ui.UI

	Files []string

	Images       []string
	Level        int
	ImagesDir    string
	ArtifactsDir string
}

func NewScanOptions(ui ui.UI) *ScanOptions {
	return &ScanOptions{ui: ui}
}

func NewScanCmd(o *ScanOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan published image variants for vulnerabilities and secrets",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringSliceVarP(&o.Files, "file", "f", []string{defaultConfigName}, "Set configuration file")
	cmd.Flags().StringSliceVarP(&o.Images, "image", "i", nil, "Scan specific image (format: name[=variant])")
	cmd.Flags().IntVar(&o.Level, "level", 0, "Scan only images of given level (0 scans all levels)")
	cmd.Flags().StringVar(&o.ImagesDir, "images-dir", "", "Set images directory (default taken from configuration)")
	cmd.Flags().StringVar(&o.ArtifactsDir, "artifacts-dir", "", "Export scan reports into directory")
	return cmd
}

func (o *ScanOptions) Run() error {
	conf, _, _, err := ctlconf.NewConfigFromFiles(o.Files)
	if err != nil {
		return configReadHintErrMsg(err, o.Files)
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

	trivy := ctlscan.NewTrivy(ctlscan.TrivyOpts{
		BinaryPath: os.Getenv(ctlpipe.EnvTrivyBinary),
	}, ctltool.NewInfoLog(o.ui))

	var failed []string

	for _, job := range plan.Jobs {
		ref := conf.ImageRepo(job.Source.Name) + ":" + job.Variant

		o.ui.PrintLinef("Scanning '%s'", ref)

		findings, err := o.scanRef(trivy, conf, job, ref, artifactsDir)
		if err != nil {
			return err
		}

		if len(findings) > 0 {
			o.ui.PrintBlock([]byte("  " + strings.Join(findings, "\n  ") + "\n"))
			failed = append(failed, ref)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("Expected scans to find no issues, but %d image variant(s) had findings: %s",
			len(failed), strings.Join(failed, ", "))
	}

	return nil
}

func (o *ScanOptions) scanRef(trivy *ctlscan.Trivy, conf ctlconf.Config, job ctlpipe.Job, ref, artifactsDir string) ([]string, error) {
	outputDir := artifactsDir

	if len(outputDir) == 0 {
		tmpDir, err := ctltool.OSTempArea{}.NewTempDir("scan")
		if err != nil {
			return nil, err
		}

		defer os.RemoveAll(tmpDir)

		outputDir = tmpDir
	} else {
		outputDir = filepath.Join(outputDir, job.Source.Name+"-"+job.Variant)

		err := os.MkdirAll(outputDir, 0700)
		if err != nil {
			return nil, fmt.Errorf("Creating artifacts directory: %s", err)
		}
	}

	scanReport, err := trivy.ScanImage(ref, filepath.Join(outputDir, "trivy-report.json"), ctlscan.ScanOpts{
		Severities: conf.Severities(),
		Insecure:   conf.Registry.Insecure,
	})
	if err != nil {
		return nil, err
	}

	ignores, err := ctlscan.NewIgnoresFromFile(job.Source.IgnoreFilePath())
	if err != nil {
		return nil, err
	}

	eval := ctlscan.Evaluate(scanReport, ignores)

	for _, pattern := range eval.StaleIgnores {
		o.ui.PrintLinef("  Stale ignore entry: %s", pattern)
	}

	return eval.Findings, nil
}
