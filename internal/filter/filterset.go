// Package filter implements the hallucination/filler/non-ASCII text filter
// and the fuzzy near-duplicate rejection window.
package filter

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antzucaro/matchr"
	"gopkg.in/yaml.v3"
)

// Rule is one compiled substitution: every match of Pattern is replaced
// with Replacement (always empty string in the default rule sets, but the
// config format allows otherwise).
type Rule struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	compiled    *regexp.Regexp
}

// fileConfig is the on-disk shape of filters.yaml.
type fileConfig struct {
	Hallucinations []Rule `yaml:"hallucinations"`
	Fillers        []Rule `yaml:"fillers"`
}

var nonASCIIPattern = regexp.MustCompile(`[^\x20-\x7E]`)

// snapshot is one immutable, fully-compiled rule set; readers always see a
// consistent snapshot even while a reload is in flight (the design note's
// "recompile into a new immutable snapshot and atomically swap it").
type snapshot struct {
	hallucinations []Rule
	fillers        []Rule
}

// Options toggle which substitution stages run, mirroring the CLI flags
// --allow-bye-thank-you, --allow-non-ascii, --allow-fillers (each "allow"
// flag disables the corresponding filter stage).
type Options struct {
	DisableHallucinations bool
	DisableFillers        bool
	DisableNonASCII       bool
}

// FilterSet loads hallucination/filler patterns from a YAML file, polling
// its mtime and reloading on change (never restarting the process).
type FilterSet struct {
	path    string
	opts    Options
	mtime   atomic.Int64
	current atomic.Pointer[snapshot]
}

// NewFilterSet loads path immediately (falling back to the built-in
// defaults if the file is absent or fails to parse) and returns a
// FilterSet ready for repeated Reload/Filter calls.
func NewFilterSet(path string, opts Options) *FilterSet {
	fs := &FilterSet{path: path, opts: opts}
	fs.current.Store(compileDefaults())
	fs.Reload()
	return fs
}

// Reload re-reads the config file if its mtime has advanced since the last
// load. Parse errors retain the previous rules and are reported via the
// returned error (callers log a warning and continue, per the error
// handling policy for filter-config parse errors).
func (fs *FilterSet) Reload() error {
	info, err := os.Stat(fs.path)
	if err != nil {
		return nil // absent file: keep whatever is loaded (defaults on first call)
	}
	mtime := info.ModTime().UnixNano()
	if mtime == fs.mtime.Load() {
		return nil
	}

	data, err := os.ReadFile(fs.path)
	if err != nil {
		return err
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	for _, rules := range [][]Rule{cfg.Hallucinations, cfg.Fillers} {
		for _, r := range rules {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				return fmt.Errorf("filter pattern %q: %w", r.Pattern, err)
			}
		}
	}
	snap := &snapshot{
		hallucinations: compileRules(cfg.Hallucinations),
		fillers:        compileRules(cfg.Fillers),
	}
	fs.current.Store(snap)
	fs.mtime.Store(mtime)
	return nil
}

func compileRules(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			continue
		}
		r.compiled = re
		out = append(out, r)
	}
	return out
}

// compileDefaults ships a richer pattern catalogue than the minimal
// bye/thank-you pair: common single-word hallucinations and filler sounds
// that real transcription output produces.
func compileDefaults() *snapshot {
	hallucinations := []Rule{
		{Pattern: `(?i)^\s*Bye\.\s*`},
		{Pattern: `(?i)^\s*Thank you\.\s*`},
		{Pattern: `(?i)^\s*MBC\s*`},
		{Pattern: `(?i)^\s*Amen\s*`},
		{Pattern: `(?i)^\s*Hehe\s*`},
		{Pattern: `(?i)^\s*phew\s*`},
		{Pattern: `(?i)^\s*Huh\s*`},
		{Pattern: `(?i)^\s*Hmph\s*`},
		{Pattern: `(?i)om[\s-]*nom[\s-]*nom`},
		{Pattern: `A+H+`},
		{Pattern: `A+R{4,}`},
		{Pattern: `(?i)(?:a{5,}|b{5,}|c{5,}|d{5,}|e{5,}|f{5,}|g{5,}|h{5,}|i{5,}|j{5,}|k{5,}|l{5,}|m{5,}|n{5,}|o{5,}|p{5,}|q{5,}|r{5,}|s{5,}|t{5,}|u{5,}|v{5,}|w{5,}|x{5,}|y{5,}|z{5,})`}, // any run of 5+ identical letters (Go regexp has no backreferences)
	}
	fillers := []Rule{
		{Pattern: `(?i)\bu[hm]+\b`},
		{Pattern: `(?i)\ber+m*\b`},
		{Pattern: `(?i)\bhm+\b`},
		{Pattern: `(?i)\bmhm+\b`},
		{Pattern: `(?i)\buh-huh\b`},
		{Pattern: `(?i)\bmm+\b`},
		{Pattern: `(?i)\bahem\b`},
		{Pattern: `(?i)^\s*oh!\s*$`},
		{Pattern: `(?i)^\s*ah\.\s*$`},
		{Pattern: `^\s*\.\.\.\s*$`},
		{Pattern: `^\s*,+`},
	}
	return &snapshot{
		hallucinations: compileRules(hallucinations),
		fillers:        compileRules(fillers),
	}
}

// Filter applies the enabled substitution stages in order (hallucination,
// filler, non-ASCII), then collapses whitespace and trims. Filter is
// idempotent: Filter(Filter(x)) == Filter(x). The stages are repeated until
// the text stops changing (at most maxFilterPasses times), since removing
// one leading hallucination can expose another. The rules file is
// reloaded first if its mtime has changed.
func (fs *FilterSet) Filter(text string) string {
	if err := fs.Reload(); err != nil {
		log.Printf("filter: keeping previous rules, reload of %s failed: %v", fs.path, err)
	}
	snap := fs.current.Load()
	out := text
	for pass := 0; pass < maxFilterPasses; pass++ {
		prev := out
		if !fs.opts.DisableHallucinations {
			out = applyRules(snap.hallucinations, out)
		}
		if !fs.opts.DisableFillers {
			out = applyRules(snap.fillers, out)
		}
		if !fs.opts.DisableNonASCII {
			out = nonASCIIPattern.ReplaceAllString(out, "")
		}
		out = strings.Join(strings.Fields(out), " ")
		out = strings.TrimSpace(out)
		if out == prev {
			break
		}
	}
	return out
}

const maxFilterPasses = 8

func applyRules(rules []Rule, text string) string {
	for _, r := range rules {
		if r.compiled == nil {
			continue
		}
		text = r.compiled.ReplaceAllString(text, r.Replacement)
	}
	return text
}

// recentEntry is one emitted transcript kept for fuzzy-duplicate rejection.
type recentEntry struct {
	at   time.Time
	text string
}

const (
	dedupRatioThreshold = 0.85
	dedupMaxAge         = 7 * time.Second
	dedupMaxCount       = 7
)

// DedupWindow is the sliding window of recently emitted transcripts used to
// reject near-duplicate re-transcriptions. It survives reconnects: callers
// must not reset it alongside the session state.
type DedupWindow struct {
	mu      sync.Mutex
	recent  []recentEntry
	nowFunc func() time.Time
}

// NewDedupWindow returns an empty window.
func NewDedupWindow() *DedupWindow {
	return &DedupWindow{nowFunc: time.Now}
}

// CheckAndRecord returns true if text is a near-duplicate of one of the
// dedupMaxCount most-recent entries within dedupMaxAge (checked most-recent
// first, matching original_source's reversed(recent_transcripts) order).
// If text is not a duplicate, it is recorded in the window and false is
// returned.
func (d *DedupWindow) CheckAndRecord(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.nowFunc()

	checked := 0
	for i := len(d.recent) - 1; i >= 0 && checked < dedupMaxCount; i-- {
		entry := d.recent[i]
		if now.Sub(entry.at) > dedupMaxAge {
			continue
		}
		checked++
		ratio := matchr.JaroWinkler(text, entry.text, false)
		if ratio >= dedupRatioThreshold {
			return true
		}
	}

	d.recent = append(d.recent, recentEntry{at: now, text: text})
	if len(d.recent) > dedupMaxCount*4 {
		d.recent = append([]recentEntry(nil), d.recent[len(d.recent)-dedupMaxCount*2:]...)
	}
	return false
}
