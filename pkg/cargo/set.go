package cargo

import (
	"path/filepath"
	"sort"
)

// DependencySet maps dependency names to resolved versions, optionally
// annotated with the manifests that declared each name.
type DependencySet struct {
	// Versions maps each dependency name to its Cargo.lock version, or
	// VersionUnknown when the lockfile has no record for it.
	Versions map[string]string

	// Sources maps a dependency name to the manifests that declare it,
	// as paths relative to the project root in discovery order. Nil when
	// the set was built from a single manifest or from the lockfile.
	Sources map[string][]string
}

// Names returns the dependency names in sorted order.
func (s DependencySet) Names() []string {
	names := make([]string, 0, len(s.Versions))
	for name := range s.Versions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of dependencies in the set.
func (s DependencySet) Len() int { return len(s.Versions) }

// Direct builds the dependency set of the root Cargo.toml, resolving
// versions against the lockfile mapping. Every direct name is present in
// the result even when the lockfile omits it.
func (p *Project) Direct(locked map[string]string) (DependencySet, error) {
	deps, err := ParseManifest(p.rootManifest())
	if err != nil {
		return DependencySet{}, err
	}
	return resolveVersions(deps, locked), nil
}

// AllCrates builds the union of direct dependencies across every
// Cargo.toml in the project, tracking which manifests declared each name.
func (p *Project) AllCrates(locked map[string]string) (DependencySet, error) {
	manifests, err := p.DiscoverManifests()
	if err != nil {
		return DependencySet{}, err
	}

	sources := make(map[string][]string)
	var order []string
	for _, manifest := range manifests {
		deps, err := ParseManifest(manifest)
		if err != nil {
			return DependencySet{}, err
		}
		rel, err := filepath.Rel(p.Root, manifest)
		if err != nil {
			rel = manifest
		}
		for _, name := range deps {
			if _, ok := sources[name]; !ok {
				order = append(order, name)
			}
			sources[name] = appendPath(sources[name], rel)
		}
	}

	set := resolveVersions(order, locked)
	set.Sources = sources
	return set, nil
}

// Locked builds a dependency set from the entire lockfile, covering
// transitive dependencies. All versions are known by construction.
func Locked(locked map[string]string) DependencySet {
	versions := make(map[string]string, len(locked))
	for name, version := range locked {
		versions[name] = version
	}
	return DependencySet{Versions: versions}
}

// FirstParty returns the package names declared by the project's own
// manifests. These are workspace members, built and linked together, so
// they are never third-party bundled dependencies.
func (p *Project) FirstParty() ([]string, error) {
	manifests, err := p.DiscoverManifests()
	if err != nil {
		return nil, err
	}
	var names []string
	seen := make(map[string]bool)
	for _, manifest := range manifests {
		name, err := PackageName(manifest)
		if err != nil {
			return nil, err
		}
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

func resolveVersions(names []string, locked map[string]string) DependencySet {
	versions := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := locked[name]; ok {
			versions[name] = v
		} else {
			versions[name] = VersionUnknown
		}
	}
	return DependencySet{Versions: versions}
}

// appendPath appends rel unless already present, keeping paths unique per
// dependency while preserving discovery order.
func appendPath(paths []string, rel string) []string {
	for _, p := range paths {
		if p == rel {
			return paths
		}
	}
	return append(paths, rel)
}
