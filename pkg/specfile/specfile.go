// Package specfile patches RPM spec files with generated BuildRequires
// and Provides declarations between marker comments.
//
// The markers are part of the external contract and must match
// byte-for-byte. Everything strictly between a region's start and end
// marker is owned by this package and replaced on each run; all other
// lines, the markers included, are preserved verbatim. Applying the same
// input twice therefore produces byte-identical output.
package specfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/matzehuels/crateaudit/pkg/cargo"
	"github.com/matzehuels/crateaudit/pkg/errors"
	"github.com/matzehuels/crateaudit/pkg/fedora"
)

// Marker lines delimiting the two generated regions.
const (
	RustStartMarker    = "# Rust dependencies"
	RustEndMarker      = "# End rust dependencies"
	BundledStartMarker = "# Bundled dependencies"
	BundledEndMarker   = "# End bundled dependencies"
)

// previewLimit caps how many declarations each preview section lists.
const previewLimit = 10

// Updater rewrites the marker regions of a single spec file.
type Updater struct {
	path       string
	firstParty map[string]bool
}

// NewUpdater creates an updater for the spec file at path. Names in
// firstParty denote crates belonging to the packaged project itself;
// they are never emitted as bundled dependencies. The file must exist.
func NewUpdater(path string, firstParty []string) (*Updater, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "spec file not found: %s", path)
	}
	fp := make(map[string]bool, len(firstParty))
	for _, name := range firstParty {
		fp[name] = true
	}
	return &Updater{path: path, firstParty: fp}, nil
}

// Preview returns the change summary without touching the file. The
// regions are still located first so a malformed spec fails the same way
// a real update would.
func (u *Updater) Preview(set cargo.DependencySet, verdicts map[string]fedora.Verdict) (string, error) {
	return u.update(set, verdicts, true)
}

// Apply rewrites the marker regions and returns the same summary Preview
// would have produced. On any error the file is left untouched.
func (u *Updater) Apply(set cargo.DependencySet, verdicts map[string]fedora.Verdict) (string, error) {
	return u.update(set, verdicts, false)
}

func (u *Updater) update(set cargo.DependencySet, verdicts map[string]fedora.Verdict, dryRun bool) (string, error) {
	data, err := os.ReadFile(u.path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "read spec file: %s", u.path)
	}
	lines := strings.Split(string(data), "\n")

	// Locate both regions before generating anything so a malformed
	// descriptor aborts with no partial write.
	rust, err := locateRegion(lines, RustStartMarker, RustEndMarker)
	if err != nil {
		return "", err
	}
	bundled, err := locateRegion(lines, BundledStartMarker, BundledEndMarker)
	if err != nil {
		return "", err
	}

	buildRequires, provides := u.partition(set, verdicts)
	preview := renderPreview(buildRequires, provides)

	if dryRun {
		return preview, nil
	}

	patched := patch(lines, rust, buildRequires)
	// Re-locate the bundled region: patching the first region may have
	// shifted line indices.
	bundled, err = locateRegion(patched, BundledStartMarker, BundledEndMarker)
	if err != nil {
		return "", err
	}
	patched = patch(patched, bundled, provides)

	if err := os.WriteFile(u.path, []byte(strings.Join(patched, "\n")), 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "write spec file: %s", u.path)
	}
	return preview, nil
}

// partition splits the dependency set into BuildRequires declarations for
// crates that exist in Fedora and Provides declarations for those that
// must be bundled. First-party crates are skipped entirely. Names are
// processed in sorted order for deterministic output.
func (u *Updater) partition(set cargo.DependencySet, verdicts map[string]fedora.Verdict) (buildRequires, provides []string) {
	for _, name := range set.Names() {
		if u.firstParty[name] {
			continue
		}
		if verdicts[name].Exists {
			buildRequires = append(buildRequires, fmt.Sprintf("BuildRequires: rust-%s-devel", name))
		} else {
			provides = append(provides, fmt.Sprintf("Provides: bundled(crate(%s)) = %s", name, set.Versions[name]))
		}
	}
	return buildRequires, provides
}

// region holds the line indices of a marker pair; start strictly
// precedes end.
type region struct {
	start, end int
}

// locateRegion finds the first start marker and the first end marker
// after it. Marker matching is by substring so trailing comments or
// whitespace around the marker text do not break the contract.
func locateRegion(lines []string, startMarker, endMarker string) (region, error) {
	start, end := -1, -1
	for i, line := range lines {
		if start == -1 && strings.Contains(line, startMarker) {
			start = i
			continue
		}
		if start != -1 && strings.Contains(line, endMarker) {
			end = i
			break
		}
	}
	if start == -1 || end == -1 {
		return region{}, errors.New(errors.ErrCodeMalformedSpec,
			"could not find %q / %q markers in spec file", startMarker, endMarker)
	}
	return region{start: start, end: end}, nil
}

// patch replaces the content strictly between the region's markers with
// the given declarations.
func patch(lines []string, r region, decls []string) []string {
	out := make([]string, 0, len(lines)+len(decls))
	out = append(out, lines[:r.start+1]...)
	out = append(out, decls...)
	out = append(out, lines[r.end:]...)
	return out
}

func renderPreview(buildRequires, provides []string) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	b.WriteString("\n" + rule + "\n")
	b.WriteString("SPEC FILE UPDATE PREVIEW\n")
	b.WriteString(rule + "\n\n")

	writeSection(&b, fmt.Sprintf("BuildRequires to add (%d):", len(buildRequires)), buildRequires)
	writeSection(&b, fmt.Sprintf("Provides (bundled) to add (%d):", len(provides)), provides)

	b.WriteString(rule + "\n")
	return b.String()
}

func writeSection(b *strings.Builder, header string, decls []string) {
	if len(decls) == 0 {
		return
	}
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	shown := decls
	if len(shown) > previewLimit {
		shown = shown[:previewLimit]
	}
	for _, decl := range shown {
		b.WriteString("  " + decl + "\n")
	}
	if rest := len(decls) - previewLimit; rest > 0 {
		b.WriteString(fmt.Sprintf("  ... and %d more\n", rest))
	}
	b.WriteString("\n")
}
