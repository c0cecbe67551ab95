package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DaanHessen/quizgame/internal/bundle"
)

type bundleOptions struct {
	descriptor  string
	out         string
	includes    []string
	cacheDir    string
	includeSelf bool
	verify      bool
}

func newBundleCommand(a *app) *cobra.Command {
	var o bundleOptions
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Resolve dependency archives and pack a self-contained archive",
		Long: `Reads the build descriptor, resolves every runtime dependency archive from the
declared repositories, and writes one zip holding the project's files plus the
contents of every dependency. Duplicate paths keep the first copy. The manifest
META-INF/MANIFEST.MF names the entry point.

S3 repositories (s3://bucket/prefix) read QUIZGAME_S3_ENDPOINT, QUIZGAME_S3_REGION,
QUIZGAME_S3_ACCESS_KEY, QUIZGAME_S3_SECRET_KEY and QUIZGAME_S3_USE_SSL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.bundle(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.descriptor, "descriptor", "quizgame.yaml", "Build descriptor (.yaml or .toml)")
	f.StringVar(&o.out, "out", filepath.Join("dist", "quizgame.zip"), "Output archive")
	f.StringSliceVar(&o.includes, "include", nil, "Project file as archivePath=localPath, relative to the descriptor (repeatable)")
	f.StringVar(&o.cacheDir, "cache", filepath.Join(".cache", "bundle"), "Download cache for remote repositories")
	f.BoolVar(&o.includeSelf, "include-self", true, "Pack the running executable as bin/quizgame")
	f.BoolVar(&o.verify, "verify", true, "Read the manifest back after packing")
	f.String("s3-endpoint", "", "S3 endpoint for s3:// repositories")
	f.String("s3-region", "us-east-1", "S3 region")
	f.String("s3-access-key", "", "S3 access key")
	f.String("s3-secret-key", "", "S3 secret key")
	f.Bool("s3-use-ssl", true, "Use TLS for S3")
	return cmd
}

// parseIncludes turns archivePath=localPath pairs into a map. Relative local
// paths resolve against baseDir.
func parseIncludes(specs []string, baseDir string) (map[string]string, error) {
	out := make(map[string]string, len(specs))
	for _, spec := range specs {
		archivePath, local, ok := strings.Cut(spec, "=")
		archivePath, local = strings.TrimSpace(archivePath), strings.TrimSpace(local)
		if !ok || archivePath == "" || local == "" {
			return nil, errors.Errorf("include %q: want archivePath=localPath", spec)
		}
		if !filepath.IsAbs(local) {
			local = filepath.Join(baseDir, local)
		}
		if _, dup := out[archivePath]; dup {
			return nil, errors.Errorf("include %q: archive path given twice", archivePath)
		}
		out[archivePath] = local
	}
	return out, nil
}

func (a *app) bundle(cmd *cobra.Command, o bundleOptions) error {
	ctx := cmd.Context()
	d, err := bundle.Load(o.descriptor)
	if err != nil {
		return err
	}
	own, err := parseIncludes(o.includes, d.Dir)
	if err != nil {
		return err
	}
	if o.includeSelf {
		if exe, err := os.Executable(); err == nil {
			if _, taken := own["bin/quizgame"]; !taken {
				own["bin/quizgame"] = exe
			}
		}
	}

	resolver, err := bundle.NewResolver(bundle.ResolverOptions{
		Repositories: d.Repositories,
		BaseDir:      d.Dir,
		CacheDir:     o.cacheDir,
		Logger:       a.log,
		S3: bundle.S3Config{
			Endpoint:  a.vpr.GetString("s3-endpoint"),
			Region:    a.vpr.GetString("s3-region"),
			AccessKey: a.vpr.GetString("s3-access-key"),
			SecretKey: a.vpr.GetString("s3-secret-key"),
			UseSSL:    a.vpr.GetBool("s3-use-ssl"),
		},
	})
	if err != nil {
		return err
	}
	artifacts, err := resolver.Resolve(ctx, d.Runtime())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(o.out), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(o.out), ".bundle-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	report, err := bundle.NewPackager(a.log).Package(ctx, tmp, d, own, artifacts)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), o.out); err != nil {
		return err
	}

	if o.verify {
		m, err := bundle.ReadManifest(o.out)
		if err != nil {
			return err
		}
		if ep, _ := m.Get("Entry-Point"); ep != d.EntryPoint {
			return errors.Errorf("manifest entry point %q, want %q", ep, d.EntryPoint)
		}
	}
	a.log.Info("bundle written", zap.String("out", o.out), zap.Int("artifacts", len(artifacts)), zap.Int("duplicates", len(report.Duplicates)))
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Wrote %s (%d entries, %d dependencies, %d duplicates excluded)\n", o.out, len(report.Entries), len(artifacts), len(report.Duplicates))
	fmt.Fprintf(w, "Entry-Point: %s\n", d.EntryPoint)
	return nil
}
