// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package pipeline_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlpipe "github.com/gillouche/kiln/pkg/kiln/pipeline"
)

func planConfig(t *testing.T) (ctlconf.Config, string) {
	t.Helper()

	conf, err := ctlconf.NewConfigFromBytes([]byte(`
apiVersion: kiln.gillouche.dev/v1alpha1
kind: Config
registry:
  hostname: nexus.gillouche.homelab
  repository: docker-hosted/base
images:
- name: ansible
  tagLatest: true
`))
	require.NoError(t, err)

	imagesDir := t.TempDir()

	writePlanImage(t, imagesDir, "python", "3.11 3.12\n", "FROM python:3.12-slim\n")
	writePlanImage(t, imagesDir, "ansible", "9.1.0 9.2.0\n",
		"FROM nexus.gillouche.homelab/docker-hosted/base/python:3.12\n")

	return conf, imagesDir
}

func TestNewPlan(t *testing.T) {
	conf, imagesDir := planConfig(t)

	plan, err := ctlpipe.NewPlan(conf, ctlpipe.PlanOpts{ImagesDir: imagesDir})
	require.NoError(t, err)
	require.Len(t, plan.Jobs, 4)

	// Sources sorted by name, variants in file order
	require.Equal(t, "ansible", plan.Jobs[0].Source.Name)
	require.Equal(t, "9.1.0", plan.Jobs[0].Variant)
	require.Equal(t, 2, plan.Jobs[0].Level)
	require.False(t, plan.Jobs[0].TagLatest)

	require.Equal(t, "9.2.0", plan.Jobs[1].Variant)
	require.True(t, plan.Jobs[1].TagLatest)

	require.Equal(t, "python", plan.Jobs[2].Source.Name)
	require.Equal(t, 1, plan.Jobs[2].Level)
	require.False(t, plan.Jobs[2].TagLatest)
}

func TestNewPlanLevelFilter(t *testing.T) {
	conf, imagesDir := planConfig(t)

	plan, err := ctlpipe.NewPlan(conf, ctlpipe.PlanOpts{ImagesDir: imagesDir, Level: 2})
	require.NoError(t, err)
	require.Len(t, plan.Jobs, 2)
	require.Equal(t, "ansible", plan.Jobs[0].Source.Name)
	require.Equal(t, "ansible", plan.Jobs[1].Source.Name)
}

func TestNewPlanImageFilters(t *testing.T) {
	conf, imagesDir := planConfig(t)

	t.Run("by name", func(t *testing.T) {
		plan, err := ctlpipe.NewPlan(conf, ctlpipe.PlanOpts{
			ImagesDir: imagesDir, Filters: []string{"python"},
		})
		require.NoError(t, err)
		require.Len(t, plan.Jobs, 2)
	})

	t.Run("by name and variant", func(t *testing.T) {
		plan, err := ctlpipe.NewPlan(conf, ctlpipe.PlanOpts{
			ImagesDir: imagesDir, Filters: []string{"python=3.12"},
		})
		require.NoError(t, err)
		require.Len(t, plan.Jobs, 1)
		require.Equal(t, "3.12", plan.Jobs[0].Variant)
	})

	t.Run("unmatched filter errors", func(t *testing.T) {
		_, err := ctlpipe.NewPlan(conf, ctlpipe.PlanOpts{
			ImagesDir: imagesDir, Filters: []string{"python=2.7"},
		})
		require.EqualError(t, err,
			"Expected filter 'python=2.7' to match at least one image variant, but did not")
	})
}

func TestPlanMatrixJSON(t *testing.T) {
	conf, imagesDir := planConfig(t)

	plan, err := ctlpipe.NewPlan(conf, ctlpipe.PlanOpts{ImagesDir: imagesDir})
	require.NoError(t, err)

	bs, err := plan.MatrixJSON()
	require.NoError(t, err)

	require.JSONEq(t, `{"include": [
		{"image": "ansible", "version": "9.1.0"},
		{"image": "ansible", "version": "9.2.0"},
		{"image": "python", "version": "3.11"},
		{"image": "python", "version": "3.12"}
	]}`, string(bs))
}

func TestPlanMatrixJSONEmpty(t *testing.T) {
	conf, err := ctlconf.NewConfigFromBytes([]byte(`
apiVersion: kiln.gillouche.dev/v1alpha1
kind: Config
registry:
  hostname: nexus.gillouche.homelab
  repository: docker-hosted/base
`))
	require.NoError(t, err)

	plan, err := ctlpipe.NewPlan(conf, ctlpipe.PlanOpts{ImagesDir: t.TempDir()})
	require.NoError(t, err)

	bs, err := plan.MatrixJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"include": []}`, string(bs))
}

func writePlanImage(t *testing.T, imagesDir, name, variants, dockerfile string) {
	t.Helper()

	dir := filepath.Join(imagesDir, name)
	err := os.Mkdir(dir, 0700)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "VARIANTS"), []byte(variants), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte(dockerfile), 0600)
	require.NoError(t, err)
}
