package fedora

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single repository query.
const DefaultTimeout = 10 * time.Second

// defaultTool is the query tool invoked for existence checks.
const defaultTool = "dnf"

// RunFunc executes the query tool and returns its combined standard
// output. It exists so tests can substitute the external invocation.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Checker resolves crate existence verdicts. It consults an in-run memo
// first, then the persistent store, and only then invokes the query tool.
// Every verdict, positive or negative, is written back to both layers:
// timeouts and invocation failures are indistinguishable from "not found"
// downstream and are cached for the same TTL.
type Checker struct {
	store   *Store
	timeout time.Duration
	tool    string
	run     RunFunc
	memo    map[string]Verdict
}

// NewChecker creates a checker backed by store. A nil store disables
// persistence; the in-run memo still applies. If timeout is zero,
// DefaultTimeout is used; if tool is empty, "dnf" is used.
func NewChecker(store *Store, timeout time.Duration, tool string) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if tool == "" {
		tool = defaultTool
	}
	return &Checker{
		store:   store,
		timeout: timeout,
		tool:    tool,
		run:     runCommand,
		memo:    make(map[string]Verdict),
	}
}

// Check returns the existence verdict for a crate.
//
// Fedora publishes a virtual provide rust(<crate>) and packages the
// crate itself as rust-<crate>-devel. Both capability strings are tried
// in that order; the first pattern with a zero exit status and non-empty
// output wins.
func (c *Checker) Check(ctx context.Context, crate string) Verdict {
	if v, ok := c.memo[crate]; ok {
		return v
	}
	if c.store != nil {
		if v, ok := c.store.Get(crate); ok {
			c.memo[crate] = v
			return v
		}
	}

	patterns := []string{
		fmt.Sprintf("rust(%s)", crate),
		fmt.Sprintf("rust-%s-devel", crate),
	}

	for _, pattern := range patterns {
		out, err := c.query(ctx, pattern)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return c.record(crate, Verdict{Message: "timeout while querying Fedora repos"})
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				// Non-zero exit means the capability is not provided;
				// fall through to the next pattern.
				continue
			}
			return c.record(crate, Verdict{Message: fmt.Sprintf("error: %v", err)})
		}

		if packages := splitLines(out); len(packages) > 0 {
			return c.record(crate, Verdict{
				Exists:   true,
				Message:  fmt.Sprintf("found as %s", packages[0]),
				Packages: packages,
			})
		}
	}

	return c.record(crate, Verdict{Message: "not found in Fedora"})
}

func (c *Checker) query(ctx context.Context, pattern string) ([]byte, error) {
	queryCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.run(queryCtx, c.tool, "repoquery", "--quiet", "--whatprovides", pattern)
	if err != nil && queryCtx.Err() == context.DeadlineExceeded {
		return nil, context.DeadlineExceeded
	}
	return out, err
}

func (c *Checker) record(crate string, v Verdict) Verdict {
	c.memo[crate] = v
	if c.store != nil {
		c.store.Put(crate, v)
	}
	return v
}

// splitLines trims each output line and drops blanks, preserving the
// query tool's native ordering.
func splitLines(out []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
