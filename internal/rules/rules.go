package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"vhevents/internal/directive"
	appLog "vhevents/internal/log"
)

// Rule classifies bookings whose text matches Pattern.
type Rule struct {
	// Pattern is a regular expression searched (not anchored) in the
	// booking summary, case-insensitively.
	Pattern string `yaml:"pattern" json:"pattern"`
	// Name, if set, replaces the booking's label.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	// Weekly marks the booking as part of the weekly schedule.
	Weekly bool `yaml:"weekly,omitempty" json:"weekly,omitempty"`
	// Time, if set, is a time directive (see package directive).
	Time string `yaml:"time,omitempty" json:"time,omitempty"`
	// TermTime marks bookings that only run in school term. It is carried
	// through from the template but does not affect classification.
	TermTime bool `yaml:"term_time,omitempty" json:"term_time,omitempty"`
}

// Outcome is the result of classifying one text against a rule set.
type Outcome struct {
	Weekly    bool
	Label     string
	Directive string
}

type compiled struct {
	rule Rule
	re   *regexp.Regexp
}

// Set is an ordered, compiled rule list. The zero value and nil both match
// nothing.
type Set struct {
	rules []compiled
}

var ErrEmptyPattern = errors.New("rule pattern is empty")

// Compile compiles rules in order. A bad pattern fails the whole set. A bad
// time directive is only logged: the rule still classifies, and the
// directive is ignored when applied.
func Compile(rs []Rule) (*Set, error) {
	set := &Set{rules: make([]compiled, 0, len(rs))}
	for i, r := range rs {
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("rule %d: %w", i+1, ErrEmptyPattern)
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d: pattern %q: %w", i+1, r.Pattern, err)
		}
		if err := directive.Validate(r.Time); err != nil {
			appLog.Warn("rule has invalid time directive; times will be left unadjusted",
				"rule", i+1, "pattern", r.Pattern, "directive", r.Time)
		}
		set.rules = append(set.rules, compiled{rule: r, re: re})
	}
	return set, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(rs []Rule) *Set {
	s, err := Compile(rs)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of rules in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Classify folds every rule over the initial outcome {false, text, ""}.
// A matching rule always sets Weekly, and sets Label and Directive only when
// it carries a value, so the last matching rule wins for each field.
func (s *Set) Classify(text string) Outcome {
	out := Outcome{Label: text}
	if s == nil {
		return out
	}
	for _, c := range s.rules {
		out = c.apply(out, text)
	}
	return out
}

func (c compiled) apply(out Outcome, text string) Outcome {
	if !c.re.MatchString(text) {
		return out
	}
	out.Weekly = c.rule.Weekly
	if c.rule.Name != "" {
		out.Label = c.rule.Name
	}
	if c.rule.Time != "" {
		out.Directive = c.rule.Time
	}
	return out
}

// ParseLegacy converts the older "pattern|Label" weekly list into rules.
// Every entry produces a weekly rule.
func ParseLegacy(entries []string) []Rule {
	out := make([]Rule, 0, len(entries))
	for _, e := range entries {
		pattern, name, _ := strings.Cut(e, "|")
		out = append(out, Rule{Pattern: pattern, Name: name, Weekly: true})
	}
	return out
}

// ParseYes interprets a spreadsheet yes/no cell: anything containing "y"
// or "true" (any case) is yes.
func ParseYes(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "y") || strings.Contains(s, "true")
}
