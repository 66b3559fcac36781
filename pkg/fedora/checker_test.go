package fedora

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// fakeRunner scripts the query tool: pattern -> output. Patterns missing
// from the map behave like a non-zero dnf exit (capability not provided).
type fakeRunner struct {
	outputs map[string]string
	calls   []string
	err     error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	pattern := args[len(args)-1]
	f.calls = append(f.calls, pattern)
	if f.err != nil {
		return nil, f.err
	}
	out, ok := f.outputs[pattern]
	if !ok {
		return nil, &exec.ExitError{}
	}
	return []byte(out), nil
}

func newTestChecker(t *testing.T, f *fakeRunner) *Checker {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "cache.json"), 0)
	c := NewChecker(store, time.Second, "dnf")
	c.run = f.run
	return c
}

func TestCheckVirtualProvide(t *testing.T) {
	f := &fakeRunner{outputs: map[string]string{
		"rust(serde)": "rust-serde-devel\nrust-serde+default-devel\n",
	}}
	c := newTestChecker(t, f)

	v := c.Check(context.Background(), "serde")
	if !v.Exists {
		t.Fatalf("expected positive verdict: %+v", v)
	}
	if v.Message != "found as rust-serde-devel" {
		t.Errorf("message = %q", v.Message)
	}
	if len(v.Packages) != 2 || v.Packages[0] != "rust-serde-devel" {
		t.Errorf("packages = %v", v.Packages)
	}
	if len(f.calls) != 1 || f.calls[0] != "rust(serde)" {
		t.Errorf("calls = %v, the virtual provide should match first", f.calls)
	}
}

func TestCheckDevelFallback(t *testing.T) {
	f := &fakeRunner{outputs: map[string]string{
		"rust-foo-devel": "rust-foo-devel\n",
	}}
	c := newTestChecker(t, f)

	v := c.Check(context.Background(), "foo")
	if !v.Exists {
		t.Fatalf("expected positive verdict: %+v", v)
	}
	want := []string{"rust(foo)", "rust-foo-devel"}
	if len(f.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
	for i := range want {
		if f.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, f.calls[i], want[i])
		}
	}
}

func TestCheckNotFound(t *testing.T) {
	c := newTestChecker(t, &fakeRunner{})

	v := c.Check(context.Background(), "no-such-crate")
	if v.Exists {
		t.Fatalf("expected negative verdict: %+v", v)
	}
	if v.Message != "not found in Fedora" {
		t.Errorf("message = %q", v.Message)
	}
	if len(v.Packages) != 0 {
		t.Errorf("packages should be empty: %v", v.Packages)
	}
}

func TestCheckBlankOutputIsNegative(t *testing.T) {
	f := &fakeRunner{outputs: map[string]string{
		"rust(ghost)":      "\n  \n",
		"rust-ghost-devel": "",
	}}
	c := newTestChecker(t, f)

	v := c.Check(context.Background(), "ghost")
	if v.Exists {
		t.Errorf("blank output should be negative: %+v", v)
	}
}

func TestCheckTimeout(t *testing.T) {
	f := &fakeRunner{err: context.DeadlineExceeded}
	store := NewStore(filepath.Join(t.TempDir(), "cache.json"), 0)
	c := NewChecker(store, time.Nanosecond, "dnf")
	c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return f.run(ctx, name, args...)
	}

	v := c.Check(context.Background(), "slow-crate")
	if v.Exists {
		t.Fatalf("timeout should be negative: %+v", v)
	}
	if v.Message != "timeout while querying Fedora repos" {
		t.Errorf("message = %q", v.Message)
	}
	if len(v.Packages) != 0 {
		t.Errorf("packages should be empty on timeout: %v", v.Packages)
	}

	// The timeout verdict is cached like any other negative.
	if cached, ok := store.Get("slow-crate"); !ok || cached.Exists {
		t.Errorf("timeout verdict should be cached: %+v ok=%v", cached, ok)
	}
}

func TestCheckMemo(t *testing.T) {
	f := &fakeRunner{outputs: map[string]string{"rust(serde)": "rust-serde-devel\n"}}
	c := newTestChecker(t, f)

	first := c.Check(context.Background(), "serde")
	second := c.Check(context.Background(), "serde")
	if len(f.calls) != 1 {
		t.Errorf("second check should hit the memo, calls = %v", f.calls)
	}
	if first.Exists != second.Exists || first.Message != second.Message {
		t.Errorf("memoized verdict differs: %+v vs %+v", first, second)
	}
}

func TestCheckUsesPersistentCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	store := NewStore(path, 0)
	store.Put("serde", Verdict{Exists: true, Message: "found as rust-serde-devel", Packages: []string{"rust-serde-devel"}})
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush error: %v", err)
	}

	// Fresh run: the checker must answer from the cache without invoking
	// the query tool.
	f := &fakeRunner{}
	c := NewChecker(NewStore(path, 0), time.Second, "dnf")
	c.run = f.run

	v := c.Check(context.Background(), "serde")
	if !v.Exists {
		t.Fatalf("expected cached positive verdict: %+v", v)
	}
	if len(f.calls) != 0 {
		t.Errorf("query tool should not be invoked on cache hit: %v", f.calls)
	}
}

func TestCheckNegativeCachedAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	// First run: timeout, cached.
	c1 := NewChecker(NewStore(path, 0), time.Nanosecond, "dnf")
	c1.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, context.DeadlineExceeded
	}
	c1.Check(context.Background(), "foo")
	if err := c1.store.Flush(); err != nil {
		t.Fatalf("Flush error: %v", err)
	}

	// Second run within TTL: same verdict, no invocation.
	f := &fakeRunner{}
	c2 := NewChecker(NewStore(path, 0), time.Second, "dnf")
	c2.run = f.run

	v := c2.Check(context.Background(), "foo")
	if v.Exists {
		t.Errorf("cached timeout verdict should stay negative: %+v", v)
	}
	if v.Message != "timeout while querying Fedora repos" {
		t.Errorf("message = %q", v.Message)
	}
	if len(f.calls) != 0 {
		t.Errorf("oracle should not be invoked again within TTL: %v", f.calls)
	}
}

func TestCheckNilStore(t *testing.T) {
	f := &fakeRunner{outputs: map[string]string{"rust(serde)": "rust-serde-devel\n"}}
	c := NewChecker(nil, time.Second, "")
	c.run = f.run

	v := c.Check(context.Background(), "serde")
	if !v.Exists {
		t.Fatalf("nil store should not affect verdicts: %+v", v)
	}
	c.Check(context.Background(), "serde")
	if len(f.calls) != 1 {
		t.Errorf("memo should still apply without a store: %v", f.calls)
	}
}
