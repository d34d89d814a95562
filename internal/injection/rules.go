package injection

import (
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Rule maps a substring of the focused window's class to the backend name
// that should type into it.
type Rule struct {
	Match  string `yaml:"match"`
	Method string `yaml:"method"`
}

type rulesFile struct {
	Default string `yaml:"default"`
	Rules   []Rule `yaml:"rules"`
}

// RuleSet resolves a window class to a backend name, reloading rulesPath
// whenever its mtime advances. Matching is first-match, case-insensitive
// substring, falling back to the configured default.
type RuleSet struct {
	path    string
	mtime   atomic.Int64
	current atomic.Pointer[rulesFile]
}

// NewRuleSet loads path immediately if present and returns a RuleSet that
// falls back to fallbackDefault until a file supplies its own default.
func NewRuleSet(path, fallbackDefault string) *RuleSet {
	rs := &RuleSet{path: path}
	rs.current.Store(&rulesFile{Default: fallbackDefault})
	rs.Reload()
	return rs
}

// Reload re-reads the rules file if its mtime has advanced. A missing file
// or parse error leaves the previously loaded rules in place.
func (rs *RuleSet) Reload() error {
	if rs.path == "" {
		return nil
	}
	info, err := os.Stat(rs.path)
	if err != nil {
		return nil
	}
	mtime := info.ModTime().UnixNano()
	if mtime == rs.mtime.Load() {
		return nil
	}

	data, err := os.ReadFile(rs.path)
	if err != nil {
		return err
	}
	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return err
	}
	if rf.Default == "" {
		rf.Default = rs.current.Load().Default
	}
	rs.current.Store(&rf)
	rs.mtime.Store(mtime)
	return nil
}

// MethodFor reloads the rule set if needed and returns the backend name to
// use for windowClass.
func (rs *RuleSet) MethodFor(windowClass string) string {
	rs.Reload()
	rf := rs.current.Load()
	lower := strings.ToLower(windowClass)
	for _, r := range rf.Rules {
		match := strings.ToLower(r.Match)
		if match != "" && strings.Contains(lower, match) {
			return r.Method
		}
	}
	return rf.Default
}
