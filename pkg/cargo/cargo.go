// Package cargo extracts dependency information from Cargo.toml and
// Cargo.lock files.
//
// The parsers are deliberately minimal line scanners, not full TOML
// readers: the only information needed is dependency names, resolved
// versions, and section membership. Quoted tables, inline tables, and
// multi-line values are out of scope.
package cargo

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// VersionUnknown is the version assigned to a direct dependency that has
// no matching Cargo.lock record.
const VersionUnknown = "unknown"

var (
	sectionRE = regexp.MustCompile(`^\[(.*)\]$`)
	depNameRE = regexp.MustCompile(`^([a-zA-Z0-9_-]+)\s*=`)
	nameRE    = regexp.MustCompile(`^name\s*=\s*"([^"]+)"`)
	versionRE = regexp.MustCompile(`^version\s*=\s*"([^"]+)"`)
)

// Project locates and parses the Cargo files of a source tree.
type Project struct {
	Root string
}

// NewProject creates a Project rooted at dir.
func NewProject(dir string) *Project {
	return &Project{Root: dir}
}

func (p *Project) rootManifest() string { return filepath.Join(p.Root, "Cargo.toml") }

// LockfilePath returns the path of the root Cargo.lock.
func (p *Project) LockfilePath() string { return filepath.Join(p.Root, "Cargo.lock") }

// DiscoverManifests returns every Cargo.toml under the project root.
// The root manifest comes first if it exists; the rest are sorted by path
// and deduplicated.
func (p *Project) DiscoverManifests() ([]string, error) {
	root := p.rootManifest()

	var manifests []string
	if _, err := os.Stat(root); err == nil {
		manifests = append(manifests, root)
	}

	var rest []string
	err := filepath.WalkDir(p.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if d.IsDir() || d.Name() != "Cargo.toml" || path == root {
			return nil
		}
		rest = append(rest, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(rest)
	return append(manifests, rest...), nil
}

// ParseManifest extracts direct dependency names from a single Cargo.toml.
//
// Any section whose header contains the substring "dependencies"
// (case-insensitive) is scanned, which covers [dependencies],
// [dev-dependencies], [build-dependencies], and target-specific variants
// indiscriminately. Names are returned in encounter order, deduplicated.
// A missing file yields an empty result, not an error.
func ParseManifest(path string) ([]string, error) {
	deps, _, err := scanManifest(path)
	return deps, err
}

// PackageName returns the [package] name declared by a Cargo.toml, or ""
// if the file has none.
func PackageName(path string) (string, error) {
	_, name, err := scanManifest(path)
	return name, err
}

func scanManifest(path string) (deps []string, pkgName string, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	seen := make(map[string]bool)
	inDeps := false
	inPackage := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := sectionRE.FindStringSubmatch(line); m != nil {
			section := m[1]
			inDeps = strings.Contains(strings.ToLower(section), "dependencies")
			inPackage = section == "package"
			continue
		}

		if inPackage && pkgName == "" {
			if m := nameRE.FindStringSubmatch(line); m != nil {
				pkgName = m[1]
			}
			continue
		}

		if inDeps {
			if m := depNameRE.FindStringSubmatch(line); m != nil {
				if name := m[1]; !seen[name] {
					seen[name] = true
					deps = append(deps, name)
				}
			}
		}
	}

	return deps, pkgName, scanner.Err()
}

// ParseLockfile extracts name/version pairs from every [[package]] record
// in a Cargo.lock. A record missing either field is dropped. When the
// same name appears in multiple records (semver-major splits), the last
// record in file order wins. A missing lockfile yields an empty map so
// the caller can degrade with a warning instead of failing the run.
func ParseLockfile(path string) (map[string]string, error) {
	versions := make(map[string]string)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return versions, err
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var name, version string
	flush := func() {
		if name != "" && version != "" {
			versions[name] = version
		}
		name, version = "", ""
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "[[package]]" {
			flush()
			continue
		}
		if m := nameRE.FindStringSubmatch(line); m != nil && name == "" {
			name = m[1]
			continue
		}
		if m := versionRE.FindStringSubmatch(line); m != nil && version == "" {
			version = m[1]
		}
	}
	flush()

	return versions, scanner.Err()
}
