package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaanHessen/quizgame/internal/bundle"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-file", ""}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "quizgame "+version+"\n", out)
}

func TestParseIncludes(t *testing.T) {
	got, err := parseIncludes([]string{"bin/quizgame=build/quizgame", "README.md=/abs/README.md"}, "/work")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"bin/quizgame": filepath.Join("/work", "build/quizgame"),
		"README.md":    "/abs/README.md",
	}, got)

	_, err = parseIncludes([]string{"no-separator"}, "/work")
	require.Error(t, err)
	_, err = parseIncludes([]string{"a=x", "a=y"}, "/work")
	require.Error(t, err)
}

func TestBundleCommand(t *testing.T) {
	dir := t.TempDir()
	dep := bundle.Coordinate{Group: "org.example", Name: "country-data", Version: "1.0.0"}
	archive := filepath.Join(dir, "repo", filepath.FromSlash(dep.Layout()))
	require.NoError(t, os.MkdirAll(filepath.Dir(archive), 0o755))
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("data/capitals.tsv")
	require.NoError(t, err)
	_, _ = w.Write([]byte("France\tParis\n"))
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0o644))

	readme := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("hi"), 0o644))

	descriptor := filepath.Join(dir, "quizgame.yaml")
	require.NoError(t, os.WriteFile(descriptor, []byte(`
name: quizgame
version: 1.0.0
entryPoint: cmd/quizgame
repositories: [repo]
dependencies:
  - coordinate: org.example:country-data:1.0.0
`), 0o644))

	outFile := filepath.Join(dir, "dist", "quizgame.zip")
	out, err := execute(t, "bundle",
		"--descriptor", descriptor,
		"--out", outFile,
		"--include", "README.md=README.md",
		"--include-self=false",
		"--cache", filepath.Join(dir, "cache"),
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Entry-Point: cmd/quizgame")

	m, err := bundle.ReadManifest(outFile)
	require.NoError(t, err)
	ep, ok := m.Get("Entry-Point")
	require.True(t, ok)
	assert.Equal(t, "cmd/quizgame", ep)

	zr, err := zip.OpenReader(outFile)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{bundle.ManifestPath, "README.md", "data/capitals.tsv"}, names)
}

func TestBundleCommandUnresolved(t *testing.T) {
	dir := t.TempDir()
	descriptor := filepath.Join(dir, "quizgame.yaml")
	require.NoError(t, os.WriteFile(descriptor, []byte(`
name: quizgame
version: 1.0.0
entryPoint: cmd/quizgame
repositories: [repo]
dependencies:
  - coordinate: org.example:missing:1.0.0
`), 0o644))
	_, err := execute(t, "bundle", "--descriptor", descriptor, "--out", filepath.Join(dir, "out.zip"), "--include-self=false")
	require.ErrorIs(t, err, bundle.ErrUnresolved)
}
