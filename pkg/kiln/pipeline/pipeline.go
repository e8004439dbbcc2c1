// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cppforlife/go-cli-ui/ui"
	cp "github.com/otiai10/copy"

	ctlbld "github.com/gillouche/kiln/pkg/kiln/build"
	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlnotify "github.com/gillouche/kiln/pkg/kiln/notify"
	ctlreg "github.com/gillouche/kiln/pkg/kiln/registry"
	ctlscan "github.com/gillouche/kiln/pkg/kiln/scan"
	ctlsign "github.com/gillouche/kiln/pkg/kiln/sign"
	ctlsmoke "github.com/gillouche/kiln/pkg/kiln/smoke"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
)

const (
	EnvBuildxBinary = "KILN_BUILDX_BINARY"
	EnvTrivyBinary  = "KILN_TRIVY_BINARY"
	EnvCosignBinary = "KILN_COSIGN_BINARY"
	EnvDockerBinary = "KILN_DOCKER_BINARY"
)

type RunOpts struct {
	Push      bool
	Scan      bool
	Sign      bool
	SmokeTest bool
	Notify    bool

	ArtifactsDir string
}

type Pipeline struct {
	conf       ctlconf.Config
	registry   ctlreg.Registry
	ui         ui.UI
	refFetcher ctltool.RefFetcher
	tempArea   ctltool.TempArea

	buildx  *ctlbld.Buildx
	trivy   *ctlscan.Trivy
	cosign  *ctlsign.Cosign
	smoke   ctlsmoke.Runner
	discord ctlnotify.Discord
}

func NewPipeline(conf ctlconf.Config, registry ctlreg.Registry, ui ui.UI,
	refFetcher ctltool.RefFetcher, tempArea ctltool.TempArea) (*Pipeline, error) {

	infoLog := ctltool.NewInfoLog(ui)

	buildx := ctlbld.NewBuildx(ctlbld.BuildxOpts{
		RegistryHostname:       conf.Registry.Hostname,
		SecretRef:              conf.Registry.SecretRef,
		DangerousSkipTLSVerify: conf.Registry.Insecure,
		BinaryPath:             os.Getenv(EnvBuildxBinary),
	}, infoLog, refFetcher)

	trivy := ctlscan.NewTrivy(ctlscan.TrivyOpts{
		BinaryPath: os.Getenv(EnvTrivyBinary),
	}, infoLog)

	var signKeyRef *ctlconf.LocalRef
	if conf.Sign != nil {
		signKeyRef = conf.Sign.KeySecretRef
	}

	cosign := ctlsign.NewCosign(ctlsign.CosignOpts{
		KeySecretRef: signKeyRef,
		BinaryPath:   os.Getenv(EnvCosignBinary),
	}, infoLog, refFetcher)

	docker := ctlsmoke.NewDocker(ctlsmoke.DockerOpts{
		BinaryPath: os.Getenv(EnvDockerBinary),
	}, infoLog)

	var discordConf *ctlconf.NotifyDiscord
	if conf.Notify != nil {
		discordConf = conf.Notify.Discord
	}

	discord, err := ctlnotify.NewDiscord(discordConf, refFetcher)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		conf:       conf,
		registry:   registry,
		ui:         ui,
		refFetcher: refFetcher,
		tempArea:   tempArea,
		buildx:     buildx,
		trivy:      trivy,
		cosign:     cosign,
		smoke:      ctlsmoke.NewRunner(docker),
		discord:    discord,
	}, nil
}

// Run executes the plan job by job, returning lock entries for
// everything that was pushed. The first failing job aborts the run.
func (p *Pipeline) Run(plan Plan, opts RunOpts) (ctlconf.LockConfig, error) {
	lockConfig := ctlconf.NewLockConfig()

	stagingDir := ""

	if len(opts.ArtifactsDir) > 0 {
		var err error

		stagingDir, err = p.tempArea.NewTempDir("artifacts")
		if err != nil {
			return lockConfig, err
		}

		defer os.RemoveAll(stagingDir)
	}

	for _, job := range plan.Jobs {
		p.ui.PrintLinef("Image '%s' variant '%s' (level %d)", job.Source.Name, job.Variant, job.Level)

		jobArtifactsDir := ""

		if len(stagingDir) > 0 {
			jobArtifactsDir = filepath.Join(stagingDir, job.Source.Name+"-"+job.Variant)

			err := os.MkdirAll(jobArtifactsDir, 0700)
			if err != nil {
				return lockConfig, fmt.Errorf("Creating artifacts dir: %s", err)
			}
		}

		lockImage, err := p.runJob(job, opts, jobArtifactsDir)
		if err != nil {
			// Best effort so that failed scans leave their reports behind
			_ = p.exportArtifacts(stagingDir, opts.ArtifactsDir)

			return lockConfig, fmt.Errorf("Image '%s' variant '%s': %s", job.Source.Name, job.Variant, err)
		}

		if opts.Push {
			lockConfig.MergeImage(lockImage)
		}
	}

	err := p.exportArtifacts(stagingDir, opts.ArtifactsDir)
	if err != nil {
		return lockConfig, err
	}

	return lockConfig, nil
}

func (p *Pipeline) runJob(job Job, opts RunOpts, artifactsDir string) (ctlconf.LockImage, error) {
	lockImage := ctlconf.LockImage{Name: job.Source.Name, Variant: job.Variant}

	repo := p.conf.ImageRepo(job.Source.Name)
	versionRef := repo + ":" + job.Variant

	tags := []string{versionRef}
	tagNames := []string{job.Variant}

	if job.TagLatest {
		tags = append(tags, repo+":latest")
		tagNames = append(tagNames, "latest")
	}

	platforms := p.conf.Platforms(job.Conf)
	if !opts.Push {
		// Multi-arch builds cannot be loaded into the daemon
		platforms = []string{"linux/" + runtime.GOARCH}
	}

	buildArgs := map[string]string{"VERSION": job.Variant}
	for key, val := range job.Conf.BuildArgs {
		buildArgs[key] = val
	}

	labels := map[string]string{
		"org.opencontainers.image.title":   job.Source.Name,
		"org.opencontainers.image.version": job.Variant,
		"org.opencontainers.image.created": time.Now().UTC().Format(time.RFC3339),
	}

	metadata, err := p.buildx.Build(ctlbld.BuildInput{
		ContextDir:     job.Source.Dir,
		DockerfilePath: job.Source.DockerfilePath,
		Tags:           tags,
		Platforms:      platforms,
		BuildArgs:      buildArgs,
		Labels:         labels,
		Push:           opts.Push,
		Load:           !opts.Push,
	}, p.tempArea)
	if err != nil {
		return lockImage, err
	}

	if len(artifactsDir) > 0 {
		err := writeMetadataArtifact(artifactsDir, metadata)
		if err != nil {
			return lockImage, err
		}
	}

	digestRef := versionRef
	if opts.Push {
		digestRef = repo + "@" + metadata.Digest
	}

	if opts.Scan {
		err := p.scanJob(job, digestRef, artifactsDir)
		if err != nil {
			return lockImage, err
		}
	}

	if opts.SmokeTest && job.Conf.SmokeTest != nil {
		err := p.smoke.Run(digestRef, job.Variant, *job.Conf.SmokeTest)
		if err != nil {
			return lockImage, fmt.Errorf("Running smoke test: %s", err)
		}
	}

	if opts.Push {
		digest, err := p.registry.Digest(versionRef)
		if err != nil {
			return lockImage, err
		}
		if digest != metadata.Digest {
			return lockImage, fmt.Errorf("Expected pushed digest '%s' to match built digest '%s'",
				digest, metadata.Digest)
		}

		user, err := p.registry.ImageUser(digestRef)
		if err != nil {
			return lockImage, err
		}
		if len(user) == 0 {
			return lockImage, fmt.Errorf("Expected image to set a non-root user, but no user was set")
		}
		if isRootUser(user) {
			return lockImage, fmt.Errorf("Expected image user to be non-root, but was '%s'", user)
		}

		lockImage.Image = digestRef
		lockImage.Digest = metadata.Digest
		lockImage.Tags = tagNames
		lockImage.Platforms = platforms
	}

	if opts.Sign && opts.Push {
		err := p.cosign.Sign(digestRef, p.tempArea)
		if err != nil {
			return lockImage, err
		}

		lockImage.Signed = true
	}

	if opts.Notify && opts.Push {
		err := p.discord.Send(ctlnotify.PushMessage(repo, tagNames, metadata.Digest))
		if err != nil {
			// Notification failures never fail a build
			p.ui.PrintLinef("Notify failed: %s", err)
		}
	}

	return lockImage, nil
}

func (p *Pipeline) scanJob(job Job, ref string, artifactsDir string) error {
	outputDir := artifactsDir

	if len(outputDir) == 0 {
		tmpDir, err := p.tempArea.NewTempDir("scan")
		if err != nil {
			return err
		}

		defer os.RemoveAll(tmpDir)

		outputDir = tmpDir
	}

	scanReport, err := p.trivy.ScanImage(ref, filepath.Join(outputDir, "trivy-report.json"), ctlscan.ScanOpts{
		Severities: p.conf.Severities(),
		Insecure:   p.conf.Registry.Insecure,
	})
	if err != nil {
		return err
	}

	ignores, err := ctlscan.NewIgnoresFromFile(job.Source.IgnoreFilePath())
	if err != nil {
		return err
	}

	eval := ctlscan.Evaluate(scanReport, ignores)

	if len(eval.UsedIgnores) > 0 {
		p.ui.PrintLinef("Ignoring %d finding(s): %s", len(eval.UsedIgnores), strings.Join(eval.UsedIgnores, ", "))
	}
	if len(eval.StaleIgnores) > 0 {
		p.ui.PrintLinef("Stale ignore entries: %s", strings.Join(eval.StaleIgnores, ", "))
	}

	if len(eval.Findings) > 0 {
		return fmt.Errorf("Expected scan of '%s' to find no issues, but found %d:\n  %s",
			ref, len(eval.Findings), strings.Join(eval.Findings, "\n  "))
	}

	return nil
}

func (p *Pipeline) exportArtifacts(stagingDir, artifactsDir string) error {
	if len(stagingDir) == 0 || len(artifactsDir) == 0 {
		return nil
	}

	err := cp.Copy(stagingDir, artifactsDir)
	if err != nil {
		return fmt.Errorf("Copying artifacts to '%s': %s", artifactsDir, err)
	}

	return nil
}

func writeMetadataArtifact(artifactsDir string, metadata ctlbld.BuildMetadata) error {
	bs, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("Marshaling build metadata: %s", err)
	}

	err = os.WriteFile(filepath.Join(artifactsDir, "build-metadata.json"), append(bs, '\n'), 0600)
	if err != nil {
		return fmt.Errorf("Writing build metadata artifact: %s", err)
	}

	return nil
}

func isRootUser(user string) bool {
	name := user
	if idx := strings.Index(name, ":"); idx >= 0 {
		name = name[:idx]
	}
	return name == "root" || name == "0"
}
