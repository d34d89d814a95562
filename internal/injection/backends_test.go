package injection

import (
	"strings"
	"testing"
)

func TestSplitForWtypeKeycode22_SafeText(t *testing.T) {
	text := "hello world this has no punctuation issues at all here"
	chunks := splitForWtypeKeycode22(text)
	if strings.Join(chunks, "") != text {
		t.Fatalf("chunks must reconstruct the original text, got %q", strings.Join(chunks, ""))
	}
}

func TestSplitForWtypeKeycode22_NeverLandsUnsafeCharAt14th(t *testing.T) {
	// Construct text where the 14th distinct character is an unsafe
	// punctuation mark, and confirm the split keeps it out of a chunk of
	// exactly 14 distinct leading characters.
	text := "abcdefghijklm.nopqrstuvwxyz"
	chunks := splitForWtypeKeycode22(text)
	if strings.Join(chunks, "") != text {
		t.Fatalf("chunks must reconstruct the original text, got %q", strings.Join(chunks, ""))
	}
	for _, c := range chunks {
		seen := map[rune]bool{}
		for i, r := range c {
			if !seen[r] {
				seen[r] = true
				if len(seen) == 14 && unsafeAt22[r] {
					t.Fatalf("chunk %q has unsafe char %q as 14th distinct char at index %d", c, r, i)
				}
			}
		}
	}
}

func TestSplitForWtypeKeycode22_Empty(t *testing.T) {
	if got := splitForWtypeKeycode22(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestChunk(t *testing.T) {
	text := strings.Repeat("a", 2000)
	chunks := chunk(text, chunkSize)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks of size %d for 2000 chars, got %d", chunkSize, len(chunks))
	}
	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c)
	}
	if rebuilt.String() != text {
		t.Fatal("chunks must reconstruct the original text")
	}
}

func TestChunk_Empty(t *testing.T) {
	if got := chunk("", chunkSize); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestBackendNames(t *testing.T) {
	backends := []Backend{
		NewWtypeBackend(),
		NewShiftInsertBackend(),
		NewMiddleClickBackend(),
		NewYdotoolBackend(),
		NewXdotoolBackend(),
		clipboardBackend{},
	}
	seen := map[string]bool{}
	for _, b := range backends {
		if b.Name() == "" {
			t.Fatalf("backend %T has empty Name()", b)
		}
		if seen[b.Name()] {
			t.Fatalf("duplicate backend name %q", b.Name())
		}
		seen[b.Name()] = true
	}
}
