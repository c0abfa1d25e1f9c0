// Package ruleset parses the SHIMGUIN_SHIMS configuration string into an
// immutable mapping from original symbol name to replacement symbol name,
// built once at process-init time.
package ruleset

import (
	"fmt"
	"strings"
)

// Separator between an original symbol name and its replacement within one
// rule segment.
const Separator = "->"

// DefaultDenyList contains the pseudo-objects skipped during patching
// because their contents aren't available on disk. SHIMGUIN_DENYLIST can
// extend this set.
var DefaultDenyList = []string{"linux-vdso.so.1"}

// RuleSet is an immutable mapping from original symbol name to replacement
// symbol name, built once at load time and never mutated afterward.
type RuleSet struct {
	rules map[string]string
}

// Parse builds a RuleSet from a configuration string of the form
// "orig1->repl1,orig2->repl2,...". Empty comma-separated segments are
// ignored (so a trailing comma is legal). A non-empty segment missing the
// "->" separator is a fatal configuration error.
//
// On duplicate keys the last occurrence wins, matching ordinary map-literal
// assignment semantics. Duplicate keys are not expected in practice.
func Parse(ruleSpec string) (*RuleSet, error) {
	rules := make(map[string]string)

	for _, segment := range strings.Split(ruleSpec, ",") {
		if segment == "" {
			continue
		}
		orig, repl, ok := strings.Cut(segment, Separator)
		if !ok {
			return nil, fmt.Errorf("ruleset: no %q found in segment %q", Separator, segment)
		}
		if orig == "" {
			return nil, fmt.Errorf("ruleset: empty original symbol name in segment %q", segment)
		}
		rules[orig] = repl
	}

	return &RuleSet{rules: rules}, nil
}

// Get returns the replacement symbol name for orig, and whether one exists.
func (r *RuleSet) Get(orig string) (string, bool) {
	repl, ok := r.rules[orig]
	return repl, ok
}

// Len returns the number of rules in the set.
func (r *RuleSet) Len() int {
	return len(r.rules)
}

// Names returns all original symbol names in the rule set. The order is
// unspecified.
func (r *RuleSet) Names() []string {
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	return names
}

// ParseDenyList builds a deny-list set from a comma-separated string of
// pseudo-object names, merged with DefaultDenyList. An empty list yields
// just the default.
func ParseDenyList(list string) map[string]bool {
	deny := make(map[string]bool, len(DefaultDenyList))
	for _, name := range DefaultDenyList {
		deny[name] = true
	}
	for _, name := range strings.Split(list, ",") {
		if name != "" {
			deny[name] = true
		}
	}
	return deny
}
