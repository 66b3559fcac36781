// Package fedora checks whether Rust crates are already packaged in
// Fedora repositories, with a persistent TTL-bounded verdict cache.
package fedora

// Verdict is the outcome of one existence check against the Fedora
// repositories.
type Verdict struct {
	// Exists reports whether any Fedora package provides the crate.
	Exists bool

	// Message is a short human-readable summary of the outcome,
	// including timeout and invocation failures.
	Message string

	// Packages lists the matched Fedora package identifiers in the
	// order the query tool returned them. The first element is treated
	// as the canonical package. Empty for negative verdicts.
	Packages []string
}
