package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	OutputDir string `json:"output_dir"`
	Years     struct {
		From int `json:"from"`
		To   int `json:"to"`
	} `json:"years"`
}

func TestLoadMissing(t *testing.T) {
	_, err := Load[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWithLocalOverride(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(
		filepath.Join(dir, "config.json5"),
		[]byte(`{output_dir: "out", years: {from: 2000, to: 2026}}`),
		0644,
	)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(
		filepath.Join(dir, "config.local.json5"),
		[]byte(`{output_dir: "local-out"}`),
		0644,
	)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load[testConfig](filepath.Join(dir, "config.json5"))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "local-out", cfg.OutputDir)
	require.Equal(t, 2000, cfg.Years.From)
	require.Equal(t, 2026, cfg.Years.To)
}

func TestLoadLocalOnly(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(
		filepath.Join(dir, "config.local.json5"),
		[]byte(`{output_dir: "local-out"}`),
		0644,
	)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load[testConfig](filepath.Join(dir, "config.json5"))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "local-out", cfg.OutputDir)
}

func TestApplyDefaults(t *testing.T) {
	cfg := testConfig{OutputDir: "out"}
	cfg.Years.From = 2010

	err := ApplyDefaults(&cfg, testConfig{
		OutputDir: "output",
		Years: struct {
			From int `json:"from"`
			To   int `json:"to"`
		}{From: 2000, To: 2026},
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "out", cfg.OutputDir)
	require.Equal(t, 2010, cfg.Years.From)
	require.Equal(t, 2026, cfg.Years.To)
}
