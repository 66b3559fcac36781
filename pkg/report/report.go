// Package report assembles and renders the results of a dependency
// check, in both machine-readable JSON and human-readable text form.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/matzehuels/crateaudit/pkg/cargo"
	"github.com/matzehuels/crateaudit/pkg/fedora"
)

// Entry describes one dependency's outcome.
type Entry struct {
	Version string `json:"version"`
	Message string `json:"message"`
	// Packages lists the matched Fedora packages; omitted for missing
	// dependencies.
	Packages []string `json:"fedora_packages,omitempty"`
	// DefinedIn lists the manifests declaring this dependency, present
	// only when the check ran with source tracking.
	DefinedIn []string `json:"defined_in,omitempty"`
}

// Report is the full result of one dependency check run.
type Report struct {
	DependencyType string           `json:"dependency_type"`
	Total          int              `json:"total"`
	FoundCount     int              `json:"found"`
	MissingCount   int              `json:"missing"`
	Found          map[string]Entry `json:"found_packages"`
	Missing        map[string]Entry `json:"missing_packages"`
}

// Build partitions the dependency set by verdict into a Report. depType
// is a human-readable label for which dependency selection was audited
// (e.g. "direct (root only)", "total").
func Build(set cargo.DependencySet, verdicts map[string]fedora.Verdict, depType string) *Report {
	r := &Report{
		DependencyType: depType,
		Total:          set.Len(),
		Found:          make(map[string]Entry),
		Missing:        make(map[string]Entry),
	}
	for name, version := range set.Versions {
		v := verdicts[name]
		entry := Entry{
			Version:   version,
			Message:   v.Message,
			DefinedIn: set.Sources[name],
		}
		if v.Exists {
			entry.Packages = v.Packages
			r.Found[name] = entry
		} else {
			r.Missing[name] = entry
		}
	}
	r.FoundCount = len(r.Found)
	r.MissingCount = len(r.Missing)
	return r
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText renders the human-readable report with percentages and
// provenance annotations.
func (r *Report) WriteText(w io.Writer) {
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	title := "TOP-LEVEL DEPENDENCY"
	if strings.Contains(r.DependencyType, "total") {
		title = "ALL DEPENDENCY"
	}

	fmt.Fprintf(w, "\n%s\n%s CHECK REPORT\n%s\n", rule, title, rule)
	fmt.Fprintf(w, "\nTotal %s dependencies: %d\n", r.DependencyType, r.Total)
	fmt.Fprintf(w, "Found in Fedora: %d (%s)\n", r.FoundCount, percent(r.FoundCount, r.Total))
	fmt.Fprintf(w, "Missing from Fedora: %d (%s)\n", r.MissingCount, percent(r.MissingCount, r.Total))

	if len(r.Missing) > 0 {
		fmt.Fprintf(w, "\n%s\nMISSING DEPENDENCIES:\n%s\n", thin, thin)
		for _, name := range sortedKeys(r.Missing) {
			entry := r.Missing[name]
			fmt.Fprintf(w, "  %-40s v%-15s %s\n", name, entry.Version, entry.Message)
			if len(entry.DefinedIn) > 0 {
				fmt.Fprintf(w, "    defined in: %s\n", strings.Join(entry.DefinedIn, ", "))
			}
		}
	}

	if len(r.Found) > 0 {
		fmt.Fprintf(w, "\n%s\nFOUND DEPENDENCIES:\n%s\n", thin, thin)
		for _, name := range sortedKeys(r.Found) {
			entry := r.Found[name]
			pkg := "unknown"
			if len(entry.Packages) > 0 {
				pkg = entry.Packages[0]
			}
			fmt.Fprintf(w, "  %-40s v%-15s => %s\n", name, entry.Version, pkg)
			// Provenance is only interesting for found deps when the
			// crate is declared in more than one place.
			if len(entry.DefinedIn) > 1 {
				fmt.Fprintf(w, "    used in: %s\n", strings.Join(entry.DefinedIn, ", "))
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", rule)
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

func sortedKeys(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
