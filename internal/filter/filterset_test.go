package filter

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestFilterSet(t *testing.T) *FilterSet {
	t.Helper()
	return NewFilterSet(filepath.Join(t.TempDir(), "missing-filters.yaml"), Options{})
}

// TestHallucinationFilter mirrors scenario S4.
func TestHallucinationFilter(t *testing.T) {
	fs := newTestFilterSet(t)
	got := fs.Filter("Thank you. Let's ship it.")
	want := "Let's ship it."
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFilterIdempotent(t *testing.T) {
	fs := newTestFilterSet(t)
	inputs := []string{"Thank you. hello world", "uhhh so  anyway", "caf\xc3\xa9 test"}
	for _, in := range inputs {
		once := fs.Filter(in)
		twice := fs.Filter(once)
		if once != twice {
			t.Fatalf("filter not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestNonASCIIStripped(t *testing.T) {
	fs := newTestFilterSet(t)
	got := fs.Filter("naïve")
	if got != "nave" {
		t.Fatalf("expected non-ASCII stripped, got %q", got)
	}
}

// TestFuzzyDedup mirrors scenario S5.
func TestFuzzyDedup(t *testing.T) {
	d := NewDedupWindow()
	base := time.Now()
	d.nowFunc = func() time.Time { return base }
	if dup := d.CheckAndRecord("open the door"); dup {
		t.Fatal("first occurrence should not be a duplicate")
	}
	d.nowFunc = func() time.Time { return base.Add(3 * time.Second) }
	if dup := d.CheckAndRecord("open the door."); !dup {
		t.Fatal("near-duplicate within window should be rejected")
	}
}

func TestDedupExpiresAfterWindow(t *testing.T) {
	d := NewDedupWindow()
	base := time.Now()
	d.nowFunc = func() time.Time { return base }
	d.CheckAndRecord("open the door")
	d.nowFunc = func() time.Time { return base.Add(8 * time.Second) }
	if dup := d.CheckAndRecord("open the door."); dup {
		t.Fatal("entry older than 7s should no longer count as a duplicate")
	}
}
