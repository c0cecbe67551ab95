// Package bundle reads the project's build descriptor, resolves the dependency
// archives it declares, and packs everything into one self-contained archive
// whose manifest names the entry point.
package bundle

import (
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Scope of a dependency. Only runtime dependencies are packed.
type Scope string

const (
	ScopeRuntime Scope = "runtime"
	ScopeTest    Scope = "test"
)

// DuplicatesStrategy decides what happens when two inputs carry the same path.
type DuplicatesStrategy string

const (
	DuplicatesExclude DuplicatesStrategy = "exclude"
	DuplicatesFail    DuplicatesStrategy = "fail"
)

// Coordinate identifies a dependency archive.
type Coordinate struct {
	Group   string
	Name    string
	Version string
}

func (c Coordinate) String() string { return c.Group + ":" + c.Name + ":" + c.Version }

// Layout is the repository-relative path of the archive:
// <group with dots as slashes>/<name>/<version>/<name>-<version>.zip
func (c Coordinate) Layout() string {
	return path.Join(strings.ReplaceAll(c.Group, ".", "/"), c.Name, c.Version, c.Name+"-"+c.Version+".zip")
}

// ParseCoordinate parses "group:name:version".
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return Coordinate{}, errors.Errorf("coordinate %q: want group:name:version", s)
	}
	c := Coordinate{Group: strings.TrimSpace(parts[0]), Name: strings.TrimSpace(parts[1]), Version: strings.TrimSpace(parts[2])}
	if c.Group == "" || c.Name == "" || c.Version == "" {
		return Coordinate{}, errors.Errorf("coordinate %q: empty field", s)
	}
	return c, nil
}

// Dependency is a declared coordinate and its scope.
type Dependency struct {
	Coordinate
	Scope Scope
}

// Compatibility is the language level the project is built for.
type Compatibility struct {
	Source string `yaml:"source" toml:"source"`
	Target string `yaml:"target" toml:"target"`
}

// Descriptor is the parsed build descriptor.
type Descriptor struct {
	Group         string
	Name          string
	Version       string
	Compatibility Compatibility
	EntryPoint    string
	Repositories  []string
	Dependencies  []Dependency
	Duplicates    DuplicatesStrategy

	// Dir is the directory the descriptor was loaded from; relative repository
	// and include paths resolve against it.
	Dir string
}

type rawDependency struct {
	Coordinate string `yaml:"coordinate" toml:"coordinate"`
	Scope      string `yaml:"scope" toml:"scope"`
}

type rawDescriptor struct {
	Group         string          `yaml:"group" toml:"group"`
	Name          string          `yaml:"name" toml:"name"`
	Version       string          `yaml:"version" toml:"version"`
	Compatibility Compatibility   `yaml:"compatibility" toml:"compatibility"`
	EntryPoint    string          `yaml:"entryPoint" toml:"entryPoint"`
	Repositories  []string        `yaml:"repositories" toml:"repositories"`
	Dependencies  []rawDependency `yaml:"dependencies" toml:"dependencies"`
	Duplicates    string          `yaml:"duplicates" toml:"duplicates"`
}

// Load reads a .yaml/.yml or .toml descriptor and validates it.
func Load(file string) (*Descriptor, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "read descriptor")
	}
	var raw rawDescriptor
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &raw)
	case ".toml":
		err = toml.Unmarshal(b, &raw)
	default:
		return nil, errors.Errorf("descriptor %s: unsupported format", file)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse descriptor %s", file)
	}
	d, err := raw.build()
	if err != nil {
		return nil, errors.Wrapf(err, "descriptor %s", file)
	}
	d.Dir = filepath.Dir(file)
	if err := d.Validate(); err != nil {
		return nil, errors.Wrapf(err, "descriptor %s", file)
	}
	return d, nil
}

func (r rawDescriptor) build() (*Descriptor, error) {
	d := &Descriptor{
		Group:         strings.TrimSpace(r.Group),
		Name:          strings.TrimSpace(r.Name),
		Version:       strings.TrimSpace(r.Version),
		Compatibility: r.Compatibility,
		EntryPoint:    strings.TrimSpace(r.EntryPoint),
		Repositories:  r.Repositories,
		Duplicates:    DuplicatesStrategy(strings.ToLower(strings.TrimSpace(r.Duplicates))),
	}
	if d.Duplicates == "" {
		d.Duplicates = DuplicatesExclude
	}
	for _, rd := range r.Dependencies {
		c, err := ParseCoordinate(rd.Coordinate)
		if err != nil {
			return nil, err
		}
		scope := Scope(strings.ToLower(strings.TrimSpace(rd.Scope)))
		if scope == "" {
			scope = ScopeRuntime
		}
		d.Dependencies = append(d.Dependencies, Dependency{Coordinate: c, Scope: scope})
	}
	return d, nil
}

// Validate checks the descriptor is complete and consistent.
func (d *Descriptor) Validate() error {
	switch {
	case d.Name == "":
		return errors.New("name is required")
	case d.Version == "":
		return errors.New("version is required")
	case d.EntryPoint == "":
		return errors.New("entryPoint is required")
	}
	switch d.Duplicates {
	case DuplicatesExclude, DuplicatesFail:
	default:
		return errors.Errorf("unknown duplicates strategy %q", d.Duplicates)
	}
	if d.Compatibility.Source != "" && d.Compatibility.Target != "" {
		cmp, err := compareLevels(d.Compatibility.Source, d.Compatibility.Target)
		if err != nil {
			return err
		}
		if cmp > 0 {
			return errors.Errorf("source level %s is newer than target level %s", d.Compatibility.Source, d.Compatibility.Target)
		}
	}
	seen := make(map[Coordinate]struct{}, len(d.Dependencies))
	for _, dep := range d.Dependencies {
		if dep.Group == "" || dep.Name == "" || dep.Version == "" {
			return errors.Errorf("dependency %q: empty field", dep.Coordinate)
		}
		switch dep.Scope {
		case ScopeRuntime, ScopeTest:
		default:
			return errors.Errorf("dependency %s: unknown scope %q", dep.Coordinate, dep.Scope)
		}
		if _, dup := seen[dep.Coordinate]; dup {
			return errors.Errorf("dependency %s declared twice", dep.Coordinate)
		}
		seen[dep.Coordinate] = struct{}{}
	}
	return nil
}

// Runtime returns the dependencies that are packed, in declaration order.
func (d *Descriptor) Runtime() []Dependency {
	var out []Dependency
	for _, dep := range d.Dependencies {
		if dep.Scope == ScopeRuntime {
			out = append(out, dep)
		}
	}
	return out
}

// compareLevels compares dotted numeric levels such as "1.8" and "1.24".
func compareLevels(a, b string) (int, error) {
	pa, err := parseLevel(a)
	if err != nil {
		return 0, err
	}
	pb, err := parseLevel(b)
	if err != nil {
		return 0, err
	}
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x != y {
			if x < y {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

func parseLevel(s string) ([]int, error) {
	fields := strings.Split(strings.TrimPrefix(strings.TrimSpace(s), "go"), ".")
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, errors.Errorf("invalid compatibility level %q", s)
		}
		out[i] = n
	}
	return out, nil
}
