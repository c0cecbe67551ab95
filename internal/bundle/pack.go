package bundle

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ManifestPath is where the manifest lives inside every packed archive.
const ManifestPath = "META-INF/MANIFEST.MF"

// ErrDuplicateEntry is returned under DuplicatesFail when two inputs share a path.
var ErrDuplicateEntry = errors.New("duplicate archive entry")

// epoch is stamped on every entry so identical inputs give identical bytes.
var epoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Attribute is a single manifest line.
type Attribute struct {
	Key   string
	Value string
}

// Manifest is an ordered list of attributes.
type Manifest []Attribute

// Get returns the value of key, if present.
func (m Manifest) Get(key string) (string, bool) {
	for _, a := range m {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Bytes renders "Key: Value" lines terminated by CRLF and a trailing blank line.
func (m Manifest) Bytes() []byte {
	var b bytes.Buffer
	for _, a := range m {
		b.WriteString(a.Key)
		b.WriteString(": ")
		b.WriteString(a.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// ParseManifest is the inverse of Manifest.Bytes.
func ParseManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, errors.Errorf("malformed manifest line %q", line)
		}
		m = append(m, Attribute{Key: key, Value: value})
	}
	return m, sc.Err()
}

// ManifestFor builds the manifest of a descriptor.
func ManifestFor(d *Descriptor) Manifest {
	m := Manifest{
		{Key: "Manifest-Version", Value: "1.0"},
		{Key: "Entry-Point", Value: d.EntryPoint},
		{Key: "Implementation-Title", Value: d.Name},
		{Key: "Implementation-Version", Value: d.Version},
	}
	if d.Group != "" {
		m = append(m, Attribute{Key: "Implementation-Vendor-Id", Value: d.Group})
	}
	if d.Compatibility.Target != "" {
		m = append(m, Attribute{Key: "Build-Compatibility", Value: d.Compatibility.Target})
	}
	return m
}

// Report summarises a packing run.
type Report struct {
	Entries    []string
	Duplicates []string
}

// Packager writes fat archives.
type Packager struct {
	log *zap.Logger
}

func NewPackager(log *zap.Logger) *Packager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Packager{log: log.Named("packager")}
}

type packState struct {
	zw       *zip.Writer
	strategy DuplicatesStrategy
	seen     map[string]string // entry -> origin
	report   Report
}

// Package writes the manifest, then own (archive path -> local file) in sorted
// order, then every artifact's entries in the given order. The first copy of a
// path wins.
func (p *Packager) Package(ctx context.Context, w io.Writer, d *Descriptor, own map[string]string, artifacts []Artifact) (Report, error) {
	st := &packState{
		zw:       zip.NewWriter(w),
		strategy: d.Duplicates,
		seen:     make(map[string]string),
	}
	if err := st.add(ManifestPath, "manifest", bytes.NewReader(ManifestFor(d).Bytes())); err != nil {
		return st.report, err
	}

	names := make([]string, 0, len(own))
	for name := range own {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return st.report, err
		}
		entry, err := cleanEntry(name)
		if err != nil {
			return st.report, err
		}
		if entry == "" {
			continue
		}
		if err := st.addFile(entry, own[name]); err != nil {
			return st.report, err
		}
	}

	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return st.report, err
		}
		if err := st.merge(a); err != nil {
			return st.report, err
		}
	}
	if err := st.zw.Close(); err != nil {
		return st.report, errors.Wrap(err, "finalize archive")
	}
	if len(st.report.Duplicates) > 0 {
		p.log.Info("excluded duplicate entries", zap.Int("count", len(st.report.Duplicates)))
	}
	p.log.Info("packed archive", zap.String("entry_point", d.EntryPoint), zap.Int("entries", len(st.report.Entries)))
	return st.report, nil
}

// cleanEntry normalises an archive path. Directory entries come back empty.
func cleanEntry(name string) (string, error) {
	n := strings.ReplaceAll(name, "\\", "/")
	if strings.HasSuffix(n, "/") {
		return "", nil
	}
	for _, seg := range strings.Split(n, "/") {
		if seg == ".." {
			return "", errors.Errorf("entry %q escapes the archive root", name)
		}
	}
	n = path.Clean("/" + n)[1:]
	if n == "" || n == "." {
		return "", nil
	}
	return n, nil
}

// claim reports whether entry is new; duplicates are recorded or rejected.
func (s *packState) claim(entry, origin string) (bool, error) {
	if prev, dup := s.seen[entry]; dup {
		if s.strategy == DuplicatesFail {
			return false, errors.Wrapf(ErrDuplicateEntry, "%s in %s (first from %s)", entry, origin, prev)
		}
		s.report.Duplicates = append(s.report.Duplicates, entry)
		return false, nil
	}
	s.seen[entry] = origin
	return true, nil
}

func (s *packState) add(entry, origin string, r io.Reader) error {
	ok, err := s.claim(entry, origin)
	if err != nil || !ok {
		return err
	}
	hdr := &zip.FileHeader{Name: entry, Method: zip.Deflate, Modified: epoch}
	hdr.SetMode(0o644)
	fw, err := s.zw.CreateHeader(hdr)
	if err != nil {
		return errors.Wrapf(err, "create entry %s", entry)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return errors.Wrapf(err, "write entry %s", entry)
	}
	s.report.Entries = append(s.report.Entries, entry)
	return nil
}

func (s *packState) addFile(entry, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return errors.Wrap(err, "open project file")
	}
	defer f.Close()
	return s.add(entry, file, f)
}

func (s *packState) merge(a Artifact) error {
	zr, err := zip.OpenReader(a.Path)
	if err != nil {
		return errors.Wrapf(err, "open %s", a.Coordinate)
	}
	defer zr.Close()
	origin := a.Coordinate.String()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entry, err := cleanEntry(f.Name)
		if err != nil {
			return errors.Wrapf(err, "artifact %s", origin)
		}
		if entry == "" {
			continue
		}
		// Merged archives never contribute their own manifest.
		if strings.EqualFold(entry, ManifestPath) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return errors.Wrapf(err, "read %s from %s", entry, origin)
		}
		err = s.add(entry, origin, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadManifest opens a packed archive and returns its manifest.
func ReadManifest(archive string) (Manifest, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != ManifestPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return ParseManifest(rc)
	}
	return nil, errors.Errorf("%s has no %s", archive, ManifestPath)
}
